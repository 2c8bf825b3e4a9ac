// Package objstore defines the object store primitives arc state is built on.
//
// The store is a flat key/value register with list-by-prefix, create-if-absent
// and no-clobber move. Those are the only operations the state machine relies
// on; there are no multi-key transactions.
package objstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/arclot/internal/uri"
)

// Sentinel errors returned by every backend. Check with errors.Is.
var (
	ErrNotFound = errors.New("object not found")
	ErrExists   = errors.New("object already exists")
)

// Store is an object store.
//
// Keys never end in "/". List treats its argument as a raw key prefix and
// returns every object below it, in key order.
type Store interface {
	// Exists reports whether an object is stored at ref.
	Exists(ctx context.Context, ref uri.Ref) (bool, error)

	// List returns the refs of all objects whose key starts with prefix.Key.
	List(ctx context.Context, prefix uri.Ref) ([]uri.Ref, error)

	// Get returns the object bytes, or ErrNotFound.
	Get(ctx context.Context, ref uri.Ref) ([]byte, error)

	// Put writes the object, replacing any existing one.
	Put(ctx context.Context, ref uri.Ref, data []byte) error

	// Create writes the object only if nothing is stored at ref, returning
	// ErrExists otherwise.
	Create(ctx context.Context, ref uri.Ref, data []byte) error

	// Move renames src to dst. It fails with ErrNotFound when src is missing
	// and with ErrExists when dst is taken; in both cases nothing changes.
	// Of two concurrent moves of one source, exactly one succeeds and the
	// other reports ErrNotFound.
	Move(ctx context.Context, src, dst uri.Ref) error

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref uri.Ref) error
}

func validKey(ref uri.Ref) error {
	if ref.Store == "" || ref.Key == "" || ref.IsPrefix() {
		return &KeyError{Ref: ref}
	}
	return nil
}

// KeyError reports a ref that cannot address an object.
type KeyError struct {
	Ref uri.Ref
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid object key %q", e.Ref.String())
}
