package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/arclot/internal/model"
)

// ErrDuplicate reports an event whose id was already delivered. Nothing was
// sent; callers treat it as success.
var ErrDuplicate = errors.New("duplicate event")

// Publisher delivers an event downstream. Implementations must tolerate the
// same event id being published more than once, and may report the repeat
// with ErrDuplicate.
type Publisher interface {
	Publish(ctx context.Context, event model.ArcNotifyEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event model.ArcNotifyEvent) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, event model.ArcNotifyEvent) error {
	return f(ctx, event)
}

// Recorder keeps published events in memory, dropping repeated ids.
//
// Thread-safety: Recorder is safe for concurrent use via internal mutex.
type Recorder struct {
	mu     sync.Mutex
	seen   map[string]bool
	events []model.ArcNotifyEvent
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{seen: make(map[string]bool)}
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, event model.ArcNotifyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[event.ID] {
		return ErrDuplicate
	}
	r.seen[event.ID] = true
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []model.ArcNotifyEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ArcNotifyEvent{}, r.events...)
}

// Logged wraps a publisher so every publish is logged.
func Logged(next Publisher) Publisher {
	return PublisherFunc(func(ctx context.Context, event model.ArcNotifyEvent) error {
		err := next.Publish(ctx, event)
		if errors.Is(err, ErrDuplicate) {
			slog.Debug("duplicate event dropped", "id", event.ID, "role", event.Role, "lot", event.LotID)
			return err
		}
		if err != nil {
			slog.Error("publish failed", "id", event.ID, "role", event.Role, "lot", event.LotID, "error", err)
			return err
		}
		slog.Info("published", "id", event.ID, "role", event.Role, "lot", event.LotID, "dataset", event.Dataset.String())
		return nil
	})
}
