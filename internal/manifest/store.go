package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/lot"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

// Store reads and writes manifest.json documents.
type Store struct {
	Objects objstore.Store
	Clock   lot.Clock
}

// NewStore returns a document store on the system clock.
func NewStore(objects objstore.Store) *Store {
	return &Store{Objects: objects, Clock: lot.SystemClock{}}
}

// Write stores m at the identifier u and returns u with its attempt id
// resolved. Manifests are immutable: writing an identifier twice fails with
// a precondition error.
func (s *Store) Write(ctx context.Context, u uri.ManifestURI, m model.Manifest) (uri.ManifestURI, error) {
	if !u.IsIdentifier() {
		return u, arcerr.Precondition("manifest write requires an identifier, got a path").
			ForDataset(u.DatasetID()).AtLot(u.Lot).With("uri", u.String())
	}
	u = u.EnsureAttempt(s.now())
	ref, err := u.URI()
	if err != nil {
		return u, err
	}

	m.State = u.State
	m.LotID = u.Lot
	if m.URIs == nil {
		m.URIs = []string{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return u, fmt.Errorf("encode manifest %s: %w", ref, err)
	}

	if err := s.Objects.Create(ctx, ref, data); err != nil {
		if errors.Is(err, objstore.ErrExists) {
			return u, arcerr.Precondition("manifest already written").
				ForDataset(u.DatasetID()).AtLot(u.Lot).With("uri", ref.String()).Wrap(err)
		}
		return u, fmt.Errorf("write manifest %s: %w", ref, err)
	}
	return u, nil
}

// Read loads the manifest at the identifier u.
func (s *Store) Read(ctx context.Context, u uri.ManifestURI) (model.Manifest, error) {
	if !u.IsIdentifier() {
		return model.Manifest{}, arcerr.Precondition("manifest read requires an identifier, got a path").
			ForDataset(u.DatasetID()).AtLot(u.Lot)
	}
	if u.State.SupportsAttempts() && u.Attempt == "" {
		return model.Manifest{}, arcerr.Precondition("manifest read requires an attempt for state %q", u.State).
			ForDataset(u.DatasetID()).AtLot(u.Lot)
	}
	ref, err := u.URI()
	if err != nil {
		return model.Manifest{}, err
	}
	data, err := s.Objects.Get(ctx, ref)
	if err != nil {
		return model.Manifest{}, fmt.Errorf("read manifest %s: %w", ref, err)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return model.Manifest{}, fmt.Errorf("decode manifest %s: %w", ref, err)
	}
	return m, nil
}

// Find returns the current manifest identifier under a dataset lot path.
// A complete or empty manifest wins over attempts; otherwise the latest
// attempt wins. found is false when the lot has no manifest. Both a complete
// and an empty manifest for the same lot is an inconsistent state.
func (s *Store) Find(ctx context.Context, path uri.ManifestURI) (current uri.ManifestURI, found bool, err error) {
	if !path.IsPath() || path.Lot == "" {
		return path, false, arcerr.Precondition("manifest lookup requires a lot path").
			ForDataset(path.DatasetID()).AtLot(path.Lot)
	}
	prefix, err := path.URI()
	if err != nil {
		return path, false, err
	}
	refs, err := s.Objects.List(ctx, prefix)
	if err != nil {
		return path, false, fmt.Errorf("list manifests %s: %w", prefix, err)
	}

	var final []uri.ManifestURI
	var latest uri.ManifestURI
	for _, ref := range refs {
		if ref.Name() != uri.ManifestFile {
			continue
		}
		u := uri.ParseManifestURI(ref.String())
		if !u.IsIdentifier() {
			continue
		}
		if !u.State.SupportsAttempts() {
			final = append(final, u)
			continue
		}
		if !found || laterAttempt(u.Attempt, latest.Attempt) {
			latest = u
			found = true
		}
	}

	switch len(final) {
	case 0:
		return latest, found, nil
	case 1:
		return final[0], true, nil
	default:
		e := arcerr.Inconsistent("found %d final manifests", len(final)).
			ForDataset(path.DatasetID()).AtLot(path.Lot)
		for _, u := range final {
			e = e.With(string(u.State), u.String())
		}
		return path, false, e
	}
}

func (s *Store) now() time.Time {
	if s.Clock == nil {
		return lot.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

// laterAttempt compares epoch-millis attempt ids numerically, falling back
// to string order for ids that are not numbers.
func laterAttempt(a, b string) bool {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	if errA != nil || errB != nil {
		return a > b
	}
	return x > y
}
