package uri

import (
	"strings"

	"github.com/roach88/arclot/internal/naming"
)

// placeholder renders the template token for a field.
func placeholder(field string) string {
	return "{" + field + "}"
}

// isPlaceholder reports whether s has the "{...}" shape of a template token.
func isPlaceholder(s string) bool {
	return len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}'
}

// fill returns value, or the field placeholder when value is empty and
// placeholders are requested.
func fill(value, field string, placeholders bool) string {
	if value == "" && placeholders {
		return placeholder(field)
	}
	return value
}

// namedIf returns "key=value", or null when value is empty.
func namedIf(key, value string) naming.Partition {
	if value == "" {
		return naming.NullPartition
	}
	return naming.NamedKey(key, value)
}

// keyword returns the literal family segment.
func keyword(s string) naming.Partition {
	return naming.PartitionOf(naming.Literal(s))
}

// split tokenizes a key on "/", dropping empty segments.
func split(p string) []string {
	raw := strings.Split(p, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// locate finds the family keyword and returns the store (the segments before
// it) and the segments after it. Without the keyword the whole input is
// treated as the segments.
func locate(segs []string, kw string) (store string, rest []string) {
	for i, s := range segs {
		if s != kw {
			continue
		}
		if i+1 < len(segs) && strings.HasPrefix(segs[i+1], "name=") {
			return clean(strings.Join(segs[:i], "/")), segs[i+1:]
		}
	}
	return "", segs
}

// value extracts the value of a "key=value" segment. Placeholders parse as
// absent.
func value(seg, key string) (string, bool) {
	v, ok := strings.CutPrefix(seg, key+"=")
	if !ok {
		return "", false
	}
	return clean(v), true
}

// clean maps placeholder tokens to the empty (absent) value.
func clean(s string) string {
	if isPlaceholder(s) {
		return ""
	}
	return s
}
