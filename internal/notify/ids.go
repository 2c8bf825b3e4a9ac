package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/roach88/arclot/internal/model"
)

// IDGenerator produces ids for trigger events.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Trigger builds the event a timer or operator raises for a dataset lot.
func Trigger(gen IDGenerator, lot string, dataset model.Dataset, placement model.Placement) model.ArcNotifyEvent {
	return model.ArcNotifyEvent{
		ID:        gen.Generate(),
		LotID:     lot,
		Dataset:   dataset,
		Placement: placement,
	}
}

// TimeOf returns the creation time embedded in a UUIDv7 id.
func TimeOf(id string) (time.Time, bool) {
	u, err := uuid.Parse(id)
	if err != nil || u.Version() != 7 {
		return time.Time{}, false
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), true
}
