package model

import (
	"github.com/roach88/arclot/internal/naming"
)

// ArcState is the persisted execution state of one arc for one lot.
//
// NOTE: These values are persisted as marker object names ("running.arc")
// and are part of the stable storage contract.
type ArcState string

const (
	ArcRunning  ArcState = "running"
	ArcComplete ArcState = "complete"
	ArcPartial  ArcState = "partial"
	ArcMissing  ArcState = "missing"
)

// arcStates is the static name registry for ArcState.
var arcStates = map[string]ArcState{
	"running":  ArcRunning,
	"complete": ArcComplete,
	"partial":  ArcPartial,
	"missing":  ArcMissing,
}

// ArcStates returns every ArcState in lifecycle order.
func ArcStates() []ArcState {
	return []ArcState{ArcRunning, ArcComplete, ArcPartial, ArcMissing}
}

// ParseArcState resolves name against the ArcState registry.
func ParseArcState(name string) (ArcState, bool) {
	s, ok := arcStates[name]
	return s, ok
}

// Valid reports whether s is a registered ArcState.
func (s ArcState) Valid() bool {
	_, ok := arcStates[string(s)]
	return ok
}

// IsTerminal reports whether s ends the lifecycle for a lot.
func (s ArcState) IsTerminal() bool {
	switch s {
	case ArcComplete, ArcPartial, ArcMissing:
		return true
	default:
		return false
	}
}

// Segment renders s as the path segment of a marker object, "running.arc".
func (s ArcState) Segment() naming.Partition {
	switch s {
	case ArcRunning, ArcComplete, ArcPartial, ArcMissing:
		return naming.PartitionOf(naming.Literal(string(s))).With(naming.PartitionLiteral(ArcMarkerSuffix))
	default:
		return naming.NullPartition
	}
}

// ArcMarkerSuffix terminates every arc state marker key.
const ArcMarkerSuffix = ".arc"

// ManifestState describes the outcome a workload recorded for one sink.
//
// NOTE: These values are persisted as path segments of manifest keys.
type ManifestState string

const (
	ManifestEmpty    ManifestState = "empty"
	ManifestPartial  ManifestState = "partial"
	ManifestComplete ManifestState = "complete"
	ManifestRemoved  ManifestState = "removed"
)

var manifestStates = map[string]ManifestState{
	"empty":    ManifestEmpty,
	"partial":  ManifestPartial,
	"complete": ManifestComplete,
	"removed":  ManifestRemoved,
}

// ManifestStates returns every ManifestState.
func ManifestStates() []ManifestState {
	return []ManifestState{ManifestEmpty, ManifestPartial, ManifestComplete, ManifestRemoved}
}

// ParseManifestState resolves name against the ManifestState registry.
func ParseManifestState(name string) (ManifestState, bool) {
	s, ok := manifestStates[name]
	return s, ok
}

// Valid reports whether s is a registered ManifestState.
func (s ManifestState) Valid() bool {
	_, ok := manifestStates[string(s)]
	return ok
}

// SupportsAttempts reports whether more than one manifest may be written for
// the same lot in state s, each qualified by an attempt id.
func (s ManifestState) SupportsAttempts() bool {
	switch s {
	case ManifestPartial, ManifestRemoved:
		return true
	default:
		return false
	}
}

// Segment renders s as a manifest path segment.
func (s ManifestState) Segment() naming.Partition {
	switch s {
	case ManifestEmpty, ManifestPartial, ManifestComplete, ManifestRemoved:
		return naming.PartitionOf(naming.Literal(string(s)))
	default:
		return naming.NullPartition
	}
}
