package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/testutil"
	"github.com/roach88/arclot/internal/uri"
)

var testDataset = model.Dataset{Name: "events", Version: "1", PathURI: "gs://data/events"}

func newTestStore(t *testing.T) (*Store, *testutil.FixedClock) {
	t.Helper()
	clock := testutil.NewFixedClock(time.UnixMilli(1672531500000))
	return &Store{Objects: objstore.NewMemory(), Clock: clock}, clock
}

func TestStore_WriteRead(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	id := uri.NewManifestURI("m", testDataset).WithLot("20230101T0005").WithState(model.ManifestComplete)
	written, err := s.Write(ctx, id, model.Manifest{
		URIType: model.URIIdentifier,
		Dataset: testDataset,
		URIs:    []string{"gs://data/events/part-0.json"},
	})
	require.NoError(t, err)
	assert.Equal(t, id, written)

	m, err := s.Read(ctx, written)
	require.NoError(t, err)
	assert.Equal(t, model.ManifestComplete, m.State)
	assert.Equal(t, "20230101T0005", m.LotID)
	assert.Equal(t, []string{"gs://data/events/part-0.json"}, m.URIs)
	assert.Equal(t, testDataset, m.Dataset)
}

func TestStore_WriteIsImmutable(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	id := uri.NewManifestURI("m", testDataset).WithLot("L").WithState(model.ManifestEmpty)
	_, err := s.Write(ctx, id, model.Manifest{})
	require.NoError(t, err)

	_, err = s.Write(ctx, id, model.Manifest{})
	require.Error(t, err)
	assert.True(t, arcerr.IsPrecondition(err))
}

func TestStore_WriteRequiresIdentifier(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Write(context.Background(), uri.NewManifestURI("m", testDataset).WithLot("L"), model.Manifest{})
	assert.True(t, arcerr.IsPrecondition(err))
}

func TestStore_AttemptsFromClock(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	partial := uri.NewManifestURI("m", testDataset).WithLot("L").WithState(model.ManifestPartial)

	first, err := s.Write(ctx, partial, model.Manifest{})
	require.NoError(t, err)
	assert.Equal(t, "1672531500000", first.Attempt)

	clock.Advance(time.Second)
	second, err := s.Write(ctx, partial, model.Manifest{})
	require.NoError(t, err)
	assert.Equal(t, "1672531501000", second.Attempt)

	_, err = s.Read(ctx, partial)
	assert.True(t, arcerr.IsPrecondition(err), "attempt states need an explicit attempt to read")
}

func TestStore_Find(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	lotPath := uri.NewManifestURI("m", testDataset).WithLot("L")

	_, found, err := s.Find(ctx, lotPath)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.Write(ctx, lotPath.WithState(model.ManifestPartial), model.Manifest{})
	require.NoError(t, err)
	clock.Advance(9 * time.Second)
	latest, err := s.Write(ctx, lotPath.WithState(model.ManifestPartial), model.Manifest{})
	require.NoError(t, err)

	got, found, err := s.Find(ctx, lotPath)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, latest, got)

	final, err := s.Write(ctx, lotPath.WithState(model.ManifestComplete), model.Manifest{})
	require.NoError(t, err)
	got, found, err = s.Find(ctx, lotPath)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, final, got)

	_, err = s.Write(ctx, lotPath.WithState(model.ManifestEmpty), model.Manifest{})
	require.NoError(t, err)
	_, _, err = s.Find(ctx, lotPath)
	assert.True(t, arcerr.IsInconsistent(err))
}

func TestStore_FindRequiresLotPath(t *testing.T) {
	s, _ := newTestStore(t)
	_, _, err := s.Find(context.Background(), uri.NewManifestURI("m", testDataset))
	assert.True(t, arcerr.IsPrecondition(err))
}

func TestLaterAttempt(t *testing.T) {
	assert.True(t, laterAttempt("10000", "9999"))
	assert.False(t, laterAttempt("9999", "10000"))
	assert.True(t, laterAttempt("b", "a"))
}
