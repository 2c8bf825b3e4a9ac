package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/roach88/arclot/internal/uri"
)

// GCS is a Store over Google Cloud Storage. Ref.Store is the bucket name.
//
// Create uses a does-not-exist precondition. GCS has no atomic move, so Move
// copies under a does-not-exist precondition on the destination and a
// generation match on the source, then deletes the source generation it
// copied. If that generation is already gone another mover won, and the copy
// is deleted again.
type GCS struct {
	client *storage.Client

	afterCopy func()
}

// NewGCS connects a GCS store with the given client options.
func NewGCS(ctx context.Context, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new storage client: %w", err)
	}
	return &GCS{client: client}, nil
}

// NewGCSFromClient wraps an existing client.
func NewGCSFromClient(client *storage.Client) *GCS {
	return &GCS{client: client}
}

var _ Store = (*GCS)(nil)

// Close releases the client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) object(ref uri.Ref) *storage.ObjectHandle {
	return g.client.Bucket(ref.Store).Object(ref.Key)
}

// Exists implements Store.
func (g *GCS) Exists(ctx context.Context, ref uri.Ref) (bool, error) {
	_, err := g.object(ref).Attrs(ctx)
	switch err = gcsError(err); {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("stat gs://%s: %w", ref, err)
	}
}

// List implements Store.
func (g *GCS) List(ctx context.Context, prefix uri.Ref) ([]uri.Ref, error) {
	it := g.client.Bucket(prefix.Store).Objects(ctx, &storage.Query{Prefix: prefix.Key})
	var refs []uri.Ref
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s: %w", prefix, err)
		}
		refs = append(refs, uri.Ref{Store: prefix.Store, Key: attrs.Name})
	}
	return refs, nil
}

// Get implements Store.
func (g *GCS) Get(ctx context.Context, ref uri.Ref) ([]byte, error) {
	r, err := g.object(ref).NewReader(ctx)
	if err = gcsError(err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read gs://%s: %w", ref, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s: %w", ref, err)
	}
	return data, nil
}

// Put implements Store.
func (g *GCS) Put(ctx context.Context, ref uri.Ref, data []byte) error {
	if err := validKey(ref); err != nil {
		return err
	}
	if err := write(ctx, g.object(ref), data); err != nil {
		return fmt.Errorf("write gs://%s: %w", ref, err)
	}
	return nil
}

// Create implements Store.
func (g *GCS) Create(ctx context.Context, ref uri.Ref, data []byte) error {
	if err := validKey(ref); err != nil {
		return err
	}
	obj := g.object(ref).If(storage.Conditions{DoesNotExist: true})
	switch err := gcsError(write(ctx, obj, data)); {
	case err == nil:
		return nil
	case errors.Is(err, ErrExists):
		return err
	default:
		return fmt.Errorf("create gs://%s: %w", ref, err)
	}
}

// Move implements Store.
func (g *GCS) Move(ctx context.Context, src, dst uri.Ref) error {
	if err := validKey(dst); err != nil {
		return err
	}
	attrs, err := g.object(src).Attrs(ctx)
	if err = gcsError(err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("move gs://%s: %w", src, err)
	}

	from := g.object(src).If(storage.Conditions{GenerationMatch: attrs.Generation})
	to := g.object(dst).If(storage.Conditions{DoesNotExist: true})
	copied, err := to.CopierFrom(from).Run(ctx)
	if err != nil {
		err = gcsError(err)
		if errors.Is(err, ErrExists) {
			// The precondition covers both sides; tell them apart.
			if ok, _ := g.Exists(ctx, dst); !ok {
				return ErrNotFound
			}
		}
		if errors.Is(err, ErrExists) || errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("copy gs://%s to gs://%s: %w", src, dst, err)
	}
	if g.afterCopy != nil {
		g.afterCopy()
	}

	if err := gcsError(from.Delete(ctx)); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExists) {
			// The generation we copied is gone, so another mover won.
			// Drop our copy.
			undo := g.object(dst).If(storage.Conditions{GenerationMatch: copied.Generation})
			if err := gcsError(undo.Delete(ctx)); err != nil && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("undo copy gs://%s: %w", dst, err)
			}
			return ErrNotFound
		}
		// The destination is in place; a leftover source shows up as a
		// second marker and is reported by the next read.
		slog.Warn("move left source object behind", "src", src.String(), "dst", dst.String(), "error", err)
		return fmt.Errorf("delete gs://%s after copy: %w", src, err)
	}
	return nil
}

// Delete implements Store.
func (g *GCS) Delete(ctx context.Context, ref uri.Ref) error {
	err := gcsError(g.object(ref).Delete(ctx))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete gs://%s: %w", ref, err)
	}
	return nil
}

func write(ctx context.Context, obj *storage.ObjectHandle, data []byte) error {
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// gcsError maps missing objects and failed preconditions to the package
// sentinels.
func gcsError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusPreconditionFailed:
			return ErrExists
		}
	}
	return err
}
