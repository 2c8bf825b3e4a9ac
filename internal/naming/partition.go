package naming

import "strings"

type segment struct {
	label   Label
	literal bool
	sep     bool
}

// Partition is an immutable path built from labels.
//
// The zero value is the null partition. Segments are joined with "/" under
// LowerHyphenPath and with the format's label joiner otherwise. Literal
// segments never receive a joiner; separator segments only render under
// LowerHyphenPath.
type Partition struct {
	segs []segment
}

// NullPartition is the null partition.
var NullPartition = Partition{}

// Sep is an explicit path separator, used to terminate listing prefixes.
var Sep = Partition{segs: []segment{{label: Literal("/"), sep: true}}}

// PartitionOf returns a single segment partition for l.
func PartitionOf(l Label) Partition {
	if l.IsNull() {
		return NullPartition
	}
	return Partition{segs: []segment{{label: l}}}
}

// PartitionLiteral returns a segment that is appended to the preceding
// segment without a separator.
func PartitionLiteral(s string) Partition {
	if s == "" {
		return NullPartition
	}
	return Partition{segs: []segment{{label: Literal(s), literal: true}}}
}

// NamedKey returns the segment "key=value". An empty value degrades to "key".
func NamedKey(key, value string) Partition {
	return PartitionOf(Of(key).Named(Literal(value)))
}

// IsNull reports whether p has no segments.
func (p Partition) IsNull() bool {
	return len(p.segs) == 0
}

func (p Partition) isSep() bool {
	return len(p.segs) == 1 && p.segs[0].sep
}

// With appends other to p. Null on either side is absorbed, two bare
// separators collapse to null, and a separator following a separator is
// dropped.
func (p Partition) With(other Partition) Partition {
	switch {
	case other.IsNull():
		return p
	case p.IsNull():
		return other
	case p.isSep() && other.isSep():
		return NullPartition
	}

	segs := make([]segment, 0, len(p.segs)+len(other.segs))
	segs = append(segs, p.segs...)
	for _, s := range other.segs {
		if s.sep && segs[len(segs)-1].sep {
			continue
		}
		segs = append(segs, s)
	}
	return Partition{segs: segs}
}

// WithLabel appends l as a new segment.
func (p Partition) WithLabel(l Label) Partition {
	return p.With(PartitionOf(l))
}

// Render returns the rendering of p under format f.
func (p Partition) Render(f Format) string {
	joiner := f.joiner()
	if f == LowerHyphenPath {
		joiner = "/"
	}

	var b strings.Builder
	afterSep := false
	for _, s := range p.segs {
		if s.sep {
			if f == LowerHyphenPath {
				b.WriteString(s.label.raw)
				afterSep = true
			}
			continue
		}
		if b.Len() > 0 && !s.literal && !afterSep {
			b.WriteString(joiner)
		}
		b.WriteString(s.label.Render(f))
		afterSep = false
	}
	return b.String()
}

// Path renders p as a "/" separated path.
func (p Partition) Path() string { return p.Render(LowerHyphenPath) }

// CamelCase renders p with camel case segments concatenated.
func (p Partition) CamelCase() string { return p.Render(CamelCase) }

// LowerHyphen renders p with hyphen joined segments.
func (p Partition) LowerHyphen() string { return p.Render(LowerHyphen) }

// LowerUnderscore renders p with underscore joined segments.
func (p Partition) LowerUnderscore() string { return p.Render(LowerUnderscore) }

// UpperUnderscore renders p with upper case underscore joined segments.
func (p Partition) UpperUnderscore() string { return p.Render(UpperUnderscore) }

// String returns the path rendering.
func (p Partition) String() string { return p.Path() }
