package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_FrozenUntilMoved(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 7, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())

	assert.Equal(t, start.Add(5*time.Minute), clock.Advance(5*time.Minute))
	assert.Equal(t, start.Add(5*time.Minute), clock.Now())

	later := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestFixedClock_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("plus2", 2*60*60)
	clock := NewFixedClock(time.Date(2023, 1, 1, 2, 0, 0, 0, loc))

	assert.Equal(t, time.UTC, clock.Now().Location())
	assert.Equal(t, 0, clock.Now().Hour())
}

func TestFixedClock_ThreadSafe(t *testing.T) {
	clock := NewFixedClock(time.Unix(0, 0))
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Unix(numGoroutines, 0).UTC(), clock.Now())
}

func TestFixedIDGenerator(t *testing.T) {
	gen := NewFixedIDGenerator("evt-1")
	assert.Equal(t, "evt-1", gen.Generate())
	assert.Equal(t, "evt-1", gen.Generate())

	assert.Equal(t, "test-event-default", NewFixedIDGenerator("").Generate())
}
