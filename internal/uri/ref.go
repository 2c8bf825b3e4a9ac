package uri

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

// Ref addresses an object, or a listing prefix, inside a store.
type Ref struct {
	Store string
	Key   string
}

// String renders "store/key".
func (r Ref) String() string {
	if r.Store == "" {
		return r.Key
	}
	return r.Store + "/" + r.Key
}

// IsPrefix reports whether r is a listing prefix rather than an object key.
func (r Ref) IsPrefix() bool {
	return strings.HasSuffix(r.Key, "/")
}

// Name returns the last segment of the key, "running.arc" for a marker.
func (r Ref) Name() string {
	return path.Base(strings.TrimSuffix(r.Key, "/"))
}

// ParseRef splits "store/key" into a Ref.
//
// Store names and keys are assembled from configuration and lot ids, never
// from free-form input, so anything outside printable ASCII is rejected.
func ParseRef(s string) (Ref, error) {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return Ref{}, fmt.Errorf("forbidden symbol %q in object reference", r)
		}
	}
	s = strings.TrimPrefix(s, "/")
	store, key, ok := strings.Cut(s, "/")
	if !ok || store == "" || key == "" {
		return Ref{}, fmt.Errorf("object reference %q must have format <store>/<key>", s)
	}
	return Ref{Store: store, Key: key}, nil
}

// StateURI is implemented by every URI family.
type StateURI interface {
	// URI renders the storage reference, failing when a required field is
	// absent or fields conflict.
	URI() (Ref, error)

	// Template renders the full grammar with "{field}" placeholders for every
	// unset field. It is meant for help output, never for storage calls.
	Template() string

	// IsPath reports whether the value is a listing prefix.
	IsPath() bool

	// IsIdentifier reports whether the value addresses a single object.
	IsIdentifier() bool
}

var (
	_ StateURI = ArcStateURI{}
	_ StateURI = ManifestURI{}
	_ StateURI = MetadataURI{}
)
