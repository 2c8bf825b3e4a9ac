// Package naming provides the composable name builders every identifier and
// storage path in arclot is generated from.
//
// Two value types are provided:
//   - Label: a word-oriented name rendered in several case formats
//     (CamelCase, LowerHyphen, LowerHyphenPath, LowerUnderscore,
//     UpperUnderscore).
//   - Partition: a path-oriented sequence of labels joined by "/".
//
// # Null Algebra
//
// The zero value of both types is the null element. Composition absorbs it
// on either side:
//
//	x.With(Null) == x
//	Null.With(x) == x
//
// which lets optional segments be chained without nil checks:
//
//	naming.Of(stage).UpperOnly().With(naming.Of("arclot")).LowerHyphen()
//
// renders "arclot" when stage is empty and "dev-arclot" otherwise.
//
// # Path Rules
//
// Partition.With inserts "/" between non-null segments. Literal segments
// (PartitionLiteral) are appended directly, so a state token followed by the
// literal ".arc" renders as "running.arc". Appending Sep to a partition that
// already ends with a separator is a no-op, and Sep.With(Sep) is null.
//
// These rules are relied upon by the parsers in internal/uri; changing them
// breaks round-tripping of every persisted key.
package naming
