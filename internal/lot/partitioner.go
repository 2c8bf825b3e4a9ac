package lot

import "time"

// Clock supplies the wall clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Partitioner resolves lots relative to a clock.
type Partitioner struct {
	Unit  IntervalUnit
	Clock Clock
}

// NewPartitioner returns a partitioner on the system clock.
func NewPartitioner(unit IntervalUnit) Partitioner {
	return Partitioner{Unit: unit, Clock: SystemClock{}}
}

func (p Partitioner) now() time.Time {
	if p.Clock == nil {
		return SystemClock{}.Now()
	}
	return p.Clock.Now()
}

// Current returns the lot containing now.
func (p Partitioner) Current() string {
	return p.Unit.Lot(p.now())
}

// Previous returns the most recently closed lot. Boundary triggers fire at
// the start of an interval and process the one that just ended.
func (p Partitioner) Previous() string {
	return p.Unit.Lot(p.now().Add(-p.Unit.width))
}

// At returns the lot containing t.
func (p Partitioner) At(t time.Time) string {
	return p.Unit.Lot(t)
}
