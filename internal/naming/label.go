package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format selects one of the renderings a Label or Partition supports.
type Format int

const (
	// CamelCase renders "ArcName".
	CamelCase Format = iota
	// LowerHyphen renders "arc-name".
	LowerHyphen
	// LowerHyphenPath renders "arc-name" for labels and "a/b" for partitions.
	LowerHyphenPath
	// LowerUnderscore renders "arc_name".
	LowerUnderscore
	// UpperUnderscore renders "ARC_NAME".
	UpperUnderscore
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case CamelCase:
		return "camelCase"
	case LowerHyphen:
		return "lowerHyphen"
	case LowerHyphenPath:
		return "lowerHyphenPath"
	case LowerUnderscore:
		return "lowerUnderscore"
	case UpperUnderscore:
		return "upperUnderscore"
	default:
		return "unknown"
	}
}

// joiner returns the text placed between two label parts.
func (f Format) joiner() string {
	switch f {
	case CamelCase:
		return ""
	case LowerUnderscore, UpperUnderscore:
		return "_"
	default:
		return "-"
	}
}

type kind uint8

const (
	kindNull kind = iota
	kindWord
	kindLiteral
	kindUpper
	kindNamed
	kindCompound
)

// Label is an immutable, composable name token.
//
// A Label is either null (the zero value) or present. Present labels are one
// of: a word label (Of), a literal (Literal), an upper-only token
// (UpperOnly), a key=value pair (Named) or a compound of other labels (With).
// Every rendering of a present label is non-empty.
type Label struct {
	kind  kind
	raw   string
	words []string
	parts []Label
}

// Null is the null label. It renders as the empty string and is absorbed by
// every composition.
var Null = Label{}

// Of returns a word label for s. The input may be camel case, hyphenated,
// underscored or space separated; it is split into lower-case words.
// Of("") returns Null.
func Of(s string) Label {
	words := splitWords(s)
	if len(words) == 0 {
		return Null
	}
	return Label{kind: kindWord, raw: s, words: words}
}

// Literal returns a label that renders as s under every format.
// Literal("") returns Null.
func Literal(s string) Label {
	if s == "" {
		return Null
	}
	return Label{kind: kindLiteral, raw: s}
}

// IsNull reports whether l carries no content.
func (l Label) IsNull() bool {
	return l.kind == kindNull
}

// With composes l followed by other. Null on either side is absorbed.
func (l Label) With(other Label) Label {
	switch {
	case other.IsNull():
		return l
	case l.IsNull():
		return other
	}
	parts := make([]Label, 0, len(l.parts)+len(other.parts)+2)
	parts = appendParts(parts, l)
	parts = appendParts(parts, other)
	return Label{kind: kindCompound, parts: parts}
}

func appendParts(dst []Label, l Label) []Label {
	if l.kind == kindCompound {
		return append(dst, l.parts...)
	}
	return append(dst, l)
}

// Named returns a label rendering as "key=value" where l is the key.
// A null value degrades to the key itself; a null key yields the value.
func (l Label) Named(value Label) Label {
	switch {
	case value.IsNull():
		return l
	case l.IsNull():
		return value
	}
	return Label{kind: kindNamed, parts: []Label{l, value}}
}

// UpperOnly returns a label whose CamelCase rendering is the raw value upper
// cased and whose every other rendering is the raw value verbatim.
//
// Stage tokens use this so downstream consumers never re-case them.
func (l Label) UpperOnly() Label {
	if l.IsNull() {
		return l
	}
	raw := l.raw
	if l.kind != kindWord && l.kind != kindLiteral && l.kind != kindUpper {
		raw = l.Render(LowerHyphen)
	}
	return Label{kind: kindUpper, raw: raw}
}

// Render returns the rendering of l under format f.
func (l Label) Render(f Format) string {
	switch l.kind {
	case kindNull:
		return ""
	case kindLiteral:
		return l.raw
	case kindUpper:
		if f == CamelCase {
			return cases.Upper(language.Und).String(l.raw)
		}
		return l.raw
	case kindWord:
		return renderWords(l.words, f)
	case kindNamed:
		return l.parts[0].Render(f) + "=" + l.parts[1].Render(f)
	case kindCompound:
		rendered := make([]string, len(l.parts))
		for i, p := range l.parts {
			rendered[i] = p.Render(f)
		}
		return strings.Join(rendered, f.joiner())
	default:
		return ""
	}
}

// CamelCase renders l as "ArcName".
func (l Label) CamelCase() string { return l.Render(CamelCase) }

// LowerHyphen renders l as "arc-name".
func (l Label) LowerHyphen() string { return l.Render(LowerHyphen) }

// LowerHyphenPath renders l for use inside a path segment.
func (l Label) LowerHyphenPath() string { return l.Render(LowerHyphenPath) }

// LowerUnderscore renders l as "arc_name".
func (l Label) LowerUnderscore() string { return l.Render(LowerUnderscore) }

// UpperUnderscore renders l as "ARC_NAME".
func (l Label) UpperUnderscore() string { return l.Render(UpperUnderscore) }

// String returns the lower-hyphen rendering.
func (l Label) String() string { return l.Render(LowerHyphen) }

func renderWords(words []string, f Format) string {
	switch f {
	case CamelCase:
		title := cases.Title(language.Und)
		var b strings.Builder
		for _, w := range words {
			b.WriteString(title.String(w))
		}
		return b.String()
	case UpperUnderscore:
		return cases.Upper(language.Und).String(strings.Join(words, "_"))
	default:
		return strings.Join(words, f.joiner())
	}
}

// splitWords breaks s into lower-case words at '-', '_', whitespace and
// camel case boundaries. "HTTPServer" splits as "http", "server".
func splitWords(s string) []string {
	runes := []rune(s)
	lower := cases.Lower(language.Und)

	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, lower.String(string(cur)))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
