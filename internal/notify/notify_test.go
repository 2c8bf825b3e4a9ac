package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/testutil"
)

func TestEventID_Deterministic(t *testing.T) {
	a := EventID("out", "20230101T0000", "m/datasets/name=d/version=1/lot=20230101T0000/complete/manifest.json")
	b := EventID("out", "20230101T0000", "m/datasets/name=d/version=1/lot=20230101T0000/complete/manifest.json")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, EventID("audit", "20230101T0000", "m/datasets/name=d/version=1/lot=20230101T0000/complete/manifest.json"))
	assert.NotEqual(t, a, EventID("out", "20230101T0005", "m/datasets/name=d/version=1/lot=20230101T0000/complete/manifest.json"))
}

func TestEventID_FieldBoundaries(t *testing.T) {
	assert.NotEqual(t, EventID("ab", "c", ""), EventID("a", "bc", ""))
}

func TestHashWithDomain_Separated(t *testing.T) {
	assert.NotEqual(t, hashWithDomain("a", []byte("b")), hashWithDomain("ab", nil))
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	before := time.Now().Add(-time.Second)

	id := gen.Generate()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, gen.Generate())

	ts, ok := TimeOf(id)
	require.True(t, ok)
	assert.True(t, ts.After(before), "embedded time %s", ts)
}

func TestTimeOf_RejectsOtherIDs(t *testing.T) {
	_, ok := TimeOf("not-a-uuid")
	assert.False(t, ok)

	_, ok = TimeOf("550e8400-e29b-41d4-a716-446655440000")
	assert.False(t, ok)
}

func TestTrigger(t *testing.T) {
	dataset := model.Dataset{Name: "events", Version: "1"}
	placement := model.Placement{Provider: "gcp", Stage: "dev"}

	event := Trigger(testutil.NewFixedIDGenerator("id-1"), "20230101T0000", dataset, placement)
	assert.Equal(t, model.ArcNotifyEvent{
		ID:        "id-1",
		LotID:     "20230101T0000",
		Dataset:   dataset,
		Placement: placement,
	}, event)
}

func TestRecorder_DropsRepeatedIDs(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()

	require.NoError(t, r.Publish(ctx, model.ArcNotifyEvent{ID: "1", Role: "out"}))
	assert.ErrorIs(t, r.Publish(ctx, model.ArcNotifyEvent{ID: "1", Role: "out"}), ErrDuplicate)
	require.NoError(t, r.Publish(ctx, model.ArcNotifyEvent{ID: "2", Role: "audit"}))

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "out", events[0].Role)
	assert.Equal(t, "audit", events[1].Role)
}

func TestRecorder_Concurrent(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()

	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 20; i++ {
		go func() {
			defer wg.Done()
			_ = r.Publish(ctx, model.ArcNotifyEvent{ID: "same"})
		}()
	}
	wg.Wait()
	assert.Len(t, r.Events(), 1)
}

func TestLogged_PassesThrough(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()
	require.NoError(t, Logged(r).Publish(ctx, model.ArcNotifyEvent{ID: "1"}))
	assert.Len(t, r.Events(), 1)
	assert.ErrorIs(t, Logged(r).Publish(ctx, model.ArcNotifyEvent{ID: "1"}), ErrDuplicate)

	boom := errors.New("boom")
	failing := PublisherFunc(func(context.Context, model.ArcNotifyEvent) error { return boom })
	assert.ErrorIs(t, Logged(failing).Publish(ctx, model.ArcNotifyEvent{ID: "1"}), boom)
}
