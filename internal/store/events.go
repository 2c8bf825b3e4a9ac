package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/notify"
)

// Publish appends a notification to the event log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; republishing an event
// with the same id leaves the log unchanged and returns notify.ErrDuplicate.
func (s *Store) Publish(ctx context.Context, event model.ArcNotifyEvent) error {
	if event.ID == "" {
		return fmt.Errorf("publish event: empty id")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notify_events (id, role, lot, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, event.ID, event.Role, event.LotID, string(payload))
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notify.ErrDuplicate
	}
	return nil
}

// ReadEvents returns the events published for a lot in publish order.
// An empty lot returns every event.
//
// Returns an empty slice (not nil) if no events exist.
func (s *Store) ReadEvents(ctx context.Context, lot string) ([]model.ArcNotifyEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM notify_events
		WHERE ? = '' OR lot = ?
		ORDER BY seq ASC
	`, lot, lot)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []model.ArcNotifyEvent{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var event model.ArcNotifyEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
