package arcstate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

const testLot = "20230101T0005"

var testArc = uri.NewArcStateURI("arc-store", model.Project{Name: "orders", Version: "1"}, "ingest")

func newTestManager(t *testing.T, store objstore.Store) *Manager {
	t.Helper()
	m, err := NewManager(store, testArc)
	require.NoError(t, err)
	return m
}

func markerRef(t *testing.T, lot string, state model.ArcState) uri.Ref {
	t.Helper()
	ref, err := testArc.WithLot(lot).WithState(state).URI()
	require.NoError(t, err)
	return ref
}

func TestNewManager_Validation(t *testing.T) {
	store := objstore.NewMemory()

	_, err := NewManager(store, testArc.WithLot(testLot))
	assert.True(t, arcerr.IsPrecondition(err))

	_, err = NewManager(store, testArc.WithState(model.ArcRunning))
	assert.True(t, arcerr.IsPrecondition(err))

	_, err = NewManager(store, uri.ArcStateURI{Store: "s"})
	assert.True(t, arcerr.IsInconsistent(err))
}

func TestFindStateFor_Absent(t *testing.T) {
	m := newTestManager(t, objstore.NewMemory())

	state, found, err := m.FindStateFor(context.Background(), testLot)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, state)
}

func TestFindStateFor_IgnoresOtherObjects(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	m := newTestManager(t, store)

	require.NoError(t, store.Put(ctx, uri.Ref{Store: "arc-store", Key: "arcs/name=orders/version=1/arc=ingest/lot=" + testLot + "/notes.txt"}, nil))
	require.NoError(t, store.Put(ctx, markerRef(t, "20230101T0010", model.ArcRunning), nil))

	_, found, err := m.FindStateFor(ctx, testLot)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindStateFor_MultipleMarkers(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	m := newTestManager(t, store)

	require.NoError(t, store.Put(ctx, markerRef(t, testLot, model.ArcRunning), nil))
	require.NoError(t, store.Put(ctx, markerRef(t, testLot, model.ArcComplete), nil))

	_, _, err := m.FindStateFor(ctx, testLot)
	require.Error(t, err)
	assert.True(t, arcerr.IsInconsistent(err))
	assert.Contains(t, err.Error(), "lot="+testLot)
	assert.Contains(t, err.Error(), "complete,running")
}

func TestSetStateFor_CreateThenMove(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	m := newTestManager(t, store)

	prior, found, err := m.SetStateFor(ctx, testLot, model.ArcRunning)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, prior)

	state, found, err := m.FindStateFor(ctx, testLot)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, model.ArcRunning, state)

	prior, found, err = m.SetStateFor(ctx, testLot, model.ArcComplete)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, model.ArcRunning, prior)

	assert.Equal(t, 1, store.Len(), "exactly one marker per lot")
	ok, err := store.Exists(ctx, markerRef(t, testLot, model.ArcComplete))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetStateFor_SameStateIsPrecondition(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, objstore.NewMemory())

	_, _, err := m.SetStateFor(ctx, testLot, model.ArcRunning)
	require.NoError(t, err)

	prior, found, err := m.SetStateFor(ctx, testLot, model.ArcRunning)
	require.Error(t, err)
	assert.True(t, arcerr.IsPrecondition(err))
	assert.Contains(t, err.Error(), "already in current state")
	assert.True(t, found)
	assert.Equal(t, model.ArcRunning, prior)
}

func TestSetStateFor_RequiresLot(t *testing.T) {
	m := newTestManager(t, objstore.NewMemory())
	_, _, err := m.SetStateFor(context.Background(), "", model.ArcRunning)
	assert.True(t, arcerr.IsPrecondition(err))
}

func TestWritePath_RejectsPathURI(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	m := newTestManager(t, store)

	path := testArc.WithLot(testLot)
	require.True(t, path.IsPath())

	err := m.create(ctx, path)
	require.Error(t, err)
	assert.True(t, arcerr.IsPrecondition(err))

	err = m.move(ctx, path, testArc.WithLot(testLot).WithState(model.ArcComplete))
	assert.True(t, arcerr.IsPrecondition(err))

	err = m.move(ctx, testArc.WithLot(testLot).WithState(model.ArcRunning), path)
	assert.True(t, arcerr.IsPrecondition(err))

	assert.Equal(t, 0, store.Len())
}

// staleStore serves listings captured before the first write, simulating a
// second invocation that read state before the first one wrote.
type staleStore struct {
	objstore.Store
	mu    sync.Mutex
	stale map[string][]uri.Ref
}

func (s *staleStore) List(ctx context.Context, prefix uri.Ref) ([]uri.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if refs, ok := s.stale[prefix.Key]; ok {
		return refs, nil
	}
	return s.Store.List(ctx, prefix)
}

func TestSetStateFor_RaceOnCreate(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemory()
	lotPrefix, err := testArc.WithLot(testLot).URI()
	require.NoError(t, err)

	first := newTestManager(t, mem)
	second := newTestManager(t, &staleStore{Store: mem, stale: map[string][]uri.Ref{lotPrefix.Key: nil}})

	_, _, err = first.SetStateFor(ctx, testLot, model.ArcRunning)
	require.NoError(t, err)

	_, found, err := second.SetStateFor(ctx, testLot, model.ArcRunning)
	require.Error(t, err)
	assert.False(t, found)
	assert.True(t, arcerr.IsInconsistent(err), "got %v", err)
	assert.ErrorIs(t, err, objstore.ErrExists)
	assert.Equal(t, 1, mem.Len())
}

func TestSetStateFor_RaceOnMove(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemory()
	lotPrefix, err := testArc.WithLot(testLot).URI()
	require.NoError(t, err)

	first := newTestManager(t, mem)
	_, _, err = first.SetStateFor(ctx, testLot, model.ArcRunning)
	require.NoError(t, err)

	running := []uri.Ref{markerRef(t, testLot, model.ArcRunning)}
	second := newTestManager(t, &staleStore{Store: mem, stale: map[string][]uri.Ref{lotPrefix.Key: running}})

	_, _, err = first.SetStateFor(ctx, testLot, model.ArcComplete)
	require.NoError(t, err)

	prior, found, err := second.SetStateFor(ctx, testLot, model.ArcPartial)
	require.Error(t, err)
	assert.True(t, arcerr.IsInconsistent(err), "got %v", err)
	assert.ErrorIs(t, err, objstore.ErrNotFound)
	assert.True(t, found)
	assert.Equal(t, model.ArcRunning, prior)

	state, _, err := first.FindStateFor(ctx, testLot)
	require.NoError(t, err)
	assert.Equal(t, model.ArcComplete, state, "the first transition is not overwritten")
}

func TestSetStateFor_ConcurrentStarts(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemory()
	m := newTestManager(t, mem)

	const racers = 10
	errs := make([]error, racers)
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = m.SetStateFor(ctx, testLot, model.ArcRunning)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, arcerr.IsFatal(err), "got %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, mem.Len())
}

func TestLots(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	m := newTestManager(t, store)

	_, _, err := m.SetStateFor(ctx, "20230101T0010", model.ArcRunning)
	require.NoError(t, err)
	_, _, err = m.SetStateFor(ctx, "20230101T0005", model.ArcRunning)
	require.NoError(t, err)
	_, _, err = m.SetStateFor(ctx, "20230101T0005", model.ArcComplete)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, markerRef(t, "20230101T0010", model.ArcMissing), nil))

	lots, err := m.Lots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 2)

	assert.Equal(t, "20230101T0005", lots[0].Lot)
	state, ok := lots[0].State()
	assert.True(t, ok)
	assert.Equal(t, model.ArcComplete, state)

	assert.Equal(t, "20230101T0010", lots[1].Lot)
	_, ok = lots[1].State()
	assert.False(t, ok)
	assert.ElementsMatch(t, []model.ArcState{model.ArcRunning, model.ArcMissing}, lots[1].States)
}
