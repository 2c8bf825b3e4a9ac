package handler

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/arcstate"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/notify"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

const testLot = "20230101T0005"

func testConfig() Config {
	return Config{
		Placement:     model.Placement{Provider: "gcp", Stage: "dev", Account: "acct", Region: "us-east1"},
		Project:       model.Project{Name: "orders", Version: "1"},
		Arc:           "ingest",
		Role:          "ingest",
		ArcStore:      "arc-store",
		ManifestStore: "manifest-store",
		Sinks: map[string]model.SinkDataset{
			"out":   model.NewSinkDataset(model.Dataset{Name: "events", Version: "1"}),
			"audit": model.NewSinkDataset(model.Dataset{Name: "audit", Version: "2"}),
		},
	}
}

func testEvent() model.ArcNotifyEvent {
	return model.ArcNotifyEvent{ID: "trigger-1", LotID: testLot, Dataset: model.Dataset{Name: "raw", Version: "1"}}
}

func manifestID(t *testing.T, cfg Config, role string, state model.ManifestState) string {
	t.Helper()
	u := uri.NewManifestURI(cfg.ManifestStore, cfg.Sinks[role].Dataset).WithLot(testLot).WithState(state)
	if state.SupportsAttempts() {
		u = u.WithAttempt("1")
	}
	return u.String()
}

func stateOf(t *testing.T, store objstore.Store) (model.ArcState, bool) {
	t.Helper()
	m, err := arcstate.NewManager(store, testConfig().ArcURI())
	require.NoError(t, err)
	s, found, err := m.FindStateFor(context.Background(), testLot)
	require.NoError(t, err)
	return s, found
}

func TestConfig_ManifestPaths(t *testing.T) {
	assert.Equal(t, map[string]string{
		"out":   "manifest-store/datasets/name=events/version=1/lot=" + testLot + "/",
		"audit": "manifest-store/datasets/name=audit/version=2/lot=" + testLot + "/",
	}, testConfig().ManifestPaths(testLot))
	assert.Equal(t, []string{"audit", "out"}, testConfig().SinkRoles())
}

func TestStart_FirstTrigger(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	h, err := NewStart(testConfig(), store)
	require.NoError(t, err)

	exec, err := h.Handle(ctx, testEvent())
	require.NoError(t, err)
	assert.Equal(t, model.ArcRunning, exec.CurrentState)
	assert.Empty(t, exec.PreviousState)
	assert.Equal(t, "ingest", exec.Role)
	assert.Equal(t, testEvent(), exec.ArcNotifyEvent)
	assert.Equal(t, testConfig().ManifestPaths(testLot), exec.SinkManifestURIs)

	s, found := stateOf(t, store)
	assert.True(t, found)
	assert.Equal(t, model.ArcRunning, s)
}

// countingStore counts marker writes.
type countingStore struct {
	objstore.Store
	writes int
}

func (c *countingStore) Create(ctx context.Context, ref uri.Ref, data []byte) error {
	c.writes++
	return c.Store.Create(ctx, ref, data)
}

func (c *countingStore) Move(ctx context.Context, src, dst uri.Ref) error {
	c.writes++
	return c.Store.Move(ctx, src, dst)
}

func TestStart_LogsTriggerTime(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h, err := NewStart(testConfig(), objstore.NewMemory())
	require.NoError(t, err)

	event := testEvent()
	event.ID = notify.UUIDv7Generator{}.Generate()
	_, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "triggered=")

	buf.Reset()
	_, err = h.Handle(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "arc lot already started")
	assert.NotContains(t, buf.String(), "triggered=")
}

func TestStart_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: objstore.NewMemory()}
	h, err := NewStart(testConfig(), store)
	require.NoError(t, err)

	first, err := h.Handle(ctx, testEvent())
	require.NoError(t, err)
	second, err := h.Handle(ctx, testEvent())
	require.NoError(t, err)

	assert.Equal(t, model.ArcRunning, first.CurrentState)
	assert.Equal(t, model.ArcRunning, second.CurrentState)
	assert.Equal(t, model.ArcRunning, second.PreviousState)
	assert.Equal(t, 1, store.writes, "second start must not write")
}

func TestStart_ShortCircuitsComplete(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemory()
	ref, err := testConfig().ArcURI().WithLot(testLot).WithState(model.ArcComplete).URI()
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, ref, nil))

	h, err := NewStart(testConfig(), store)
	require.NoError(t, err)
	exec, err := h.Handle(ctx, testEvent())
	require.NoError(t, err)
	assert.Equal(t, model.ArcComplete, exec.CurrentState)
	assert.Equal(t, model.ArcComplete, exec.PreviousState)
}

func TestStart_RestartsPartialAndMissing(t *testing.T) {
	for _, prior := range []model.ArcState{model.ArcPartial, model.ArcMissing} {
		t.Run(string(prior), func(t *testing.T) {
			ctx := context.Background()
			store := objstore.NewMemory()
			ref, err := testConfig().ArcURI().WithLot(testLot).WithState(prior).URI()
			require.NoError(t, err)
			require.NoError(t, store.Create(ctx, ref, nil))

			h, err := NewStart(testConfig(), store)
			require.NoError(t, err)
			exec, err := h.Handle(ctx, testEvent())
			require.NoError(t, err)
			assert.Equal(t, prior, exec.PreviousState)
			assert.Equal(t, model.ArcRunning, exec.CurrentState)

			s, _ := stateOf(t, store)
			assert.Equal(t, model.ArcRunning, s)
		})
	}
}

func TestStart_RequiresLot(t *testing.T) {
	h, err := NewStart(testConfig(), objstore.NewMemory())
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), model.ArcNotifyEvent{})
	assert.True(t, arcerr.IsPrecondition(err))
}

// racingStore lets another invocation start the lot between the handler's
// read and its transition.
type racingStore struct {
	objstore.Store
	race  func()
	lists int
}

func (r *racingStore) List(ctx context.Context, prefix uri.Ref) ([]uri.Ref, error) {
	refs, err := r.Store.List(ctx, prefix)
	r.lists++
	if r.lists == 1 && r.race != nil {
		r.race()
	}
	return refs, err
}

func TestStart_DetectsRaceBetweenReadAndWrite(t *testing.T) {
	ctx := context.Background()
	mem := objstore.NewMemory()
	ref, err := testConfig().ArcURI().WithLot(testLot).WithState(model.ArcPartial).URI()
	require.NoError(t, err)
	require.NoError(t, mem.Create(ctx, ref, nil))

	store := &racingStore{Store: mem}
	store.race = func() {
		other, err := NewStart(testConfig(), mem)
		require.NoError(t, err)
		_, err = other.Handle(ctx, testEvent())
		require.NoError(t, err)
	}

	h, err := NewStart(testConfig(), store)
	require.NoError(t, err)
	_, err = h.Handle(ctx, testEvent())
	require.Error(t, err)
	assert.True(t, arcerr.IsFatal(err), "got %v", err)
}

func startedStore(t *testing.T) objstore.Store {
	t.Helper()
	store := objstore.NewMemory()
	h, err := NewStart(testConfig(), store)
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), testEvent())
	require.NoError(t, err)
	return store
}

func TestComplete_PublishesOnComplete(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := startedStore(t)
	recorder := notify.NewRecorder()

	h, err := NewComplete(cfg, store, recorder)
	require.NoError(t, err)

	in := model.ArcStateContext{
		CurrentState:   model.ArcRunning,
		ArcNotifyEvent: testEvent(),
		SinkManifestURIs: map[string]string{
			"out":   manifestID(t, cfg, "out", model.ManifestComplete),
			"audit": manifestID(t, cfg, "audit", model.ManifestEmpty),
		},
	}
	out, err := h.Handle(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.ArcRunning, out.PreviousState)
	assert.Equal(t, model.ArcComplete, out.CurrentState)
	assert.Equal(t, in.SinkManifestURIs, out.SinkManifestURIs)

	s, _ := stateOf(t, store)
	assert.Equal(t, model.ArcComplete, s)

	events := recorder.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "audit", events[0].Role)
	assert.Equal(t, "out", events[1].Role)
	assert.Equal(t, testLot, events[1].LotID)
	assert.Equal(t, in.SinkManifestURIs["out"], events[1].Manifest)
	assert.Equal(t, cfg.Placement, events[1].Placement)
}

func TestComplete_Partial(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := startedStore(t)
	recorder := notify.NewRecorder()

	h, err := NewComplete(cfg, store, recorder)
	require.NoError(t, err)
	out, err := h.Handle(ctx, model.ArcStateContext{
		ArcNotifyEvent: testEvent(),
		SinkManifestURIs: map[string]string{
			"out":   manifestID(t, cfg, "out", model.ManifestComplete),
			"audit": manifestID(t, cfg, "audit", model.ManifestPartial),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ArcPartial, out.CurrentState)
	assert.Empty(t, recorder.Events())
}

func TestComplete_WorkloadError(t *testing.T) {
	ctx := context.Background()
	store := startedStore(t)

	h, err := NewComplete(testConfig(), store, notify.NewRecorder())
	require.NoError(t, err)
	out, err := h.Handle(ctx, model.ArcStateContext{
		ArcNotifyEvent: testEvent(),
		WorkloadErrors: map[string]string{"errorMessage": "out of memory"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ArcMissing, out.CurrentState)
	assert.Equal(t, map[string]string{"errorMessage": "out of memory"}, out.WorkloadErrors)
}

func TestComplete_NothingReported(t *testing.T) {
	store := startedStore(t)
	h, err := NewComplete(testConfig(), store, notify.NewRecorder())
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), model.ArcStateContext{ArcNotifyEvent: testEvent()})
	require.Error(t, err)
	assert.True(t, arcerr.IsInconsistent(err))
	assert.Contains(t, err.Error(), "lot="+testLot)

	s, _ := stateOf(t, store)
	assert.Equal(t, model.ArcRunning, s, "a rejected report leaves the lot running")
}

func TestComplete_WrongLotManifest(t *testing.T) {
	store := startedStore(t)
	h, err := NewComplete(testConfig(), store, notify.NewRecorder())
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), model.ArcStateContext{
		ArcNotifyEvent:   testEvent(),
		SinkManifestURIs: map[string]string{"out": "manifest-store/datasets/name=events/version=1/lot=20230101T0000/complete/manifest.json"},
	})
	assert.True(t, arcerr.IsInconsistent(err))
}

func TestComplete_NotRunningIsRace(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := startedStore(t)
	recorder := notify.NewRecorder()

	h, err := NewComplete(cfg, store, recorder)
	require.NoError(t, err)
	in := model.ArcStateContext{
		ArcNotifyEvent:   testEvent(),
		SinkManifestURIs: map[string]string{"out": manifestID(t, cfg, "out", model.ManifestPartial)},
	}
	_, err = h.Handle(ctx, in)
	require.NoError(t, err)

	in.SinkManifestURIs = map[string]string{"out": manifestID(t, cfg, "out", model.ManifestComplete)}
	_, err = h.Handle(ctx, in)
	require.Error(t, err)
	assert.True(t, arcerr.IsInconsistent(err), "got %v", err)
	assert.Contains(t, err.Error(), "expected=running")
	assert.Contains(t, err.Error(), "found=partial")
	assert.Empty(t, recorder.Events())
}

func TestComplete_Duplicate(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	store := startedStore(t)
	recorder := notify.NewRecorder()

	h, err := NewComplete(cfg, store, recorder)
	require.NoError(t, err)
	in := model.ArcStateContext{
		ArcNotifyEvent:   testEvent(),
		SinkManifestURIs: map[string]string{"out": manifestID(t, cfg, "out", model.ManifestComplete)},
	}
	_, err = h.Handle(ctx, in)
	require.NoError(t, err)

	_, err = h.Handle(ctx, in)
	require.Error(t, err)
	assert.True(t, arcerr.IsPrecondition(err))
	assert.Len(t, recorder.Events(), 1)
}
