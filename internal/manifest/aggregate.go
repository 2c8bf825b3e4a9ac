// Package manifest aggregates sink manifests into an arc state and reads and
// writes manifest documents.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/notify"
	"github.com/roach88/arclot/internal/uri"
)

// Decide computes the arc state from a workload's error payload and the
// manifest state of every sink role:
//
//  1. no manifests and no error: inconsistent
//  2. no manifests, an error: missing
//  3. any partial: partial
//  4. all empty: complete
//  5. at least one complete, the rest complete or empty: complete
//  6. anything else, removed included: inconsistent
//
// When manifests are present they decide; a concurrent error payload is
// logged and otherwise ignored.
func Decide(errs map[string]string, manifests map[string]model.ManifestState) (model.ArcState, error) {
	if len(manifests) == 0 {
		if len(errs) == 0 {
			return "", arcerr.Inconsistent("workload reported neither manifests nor an error")
		}
		return model.ArcMissing, nil
	}
	if len(errs) > 0 {
		slog.Warn("workload reported errors alongside manifests", "errors", describe(errs), "manifests", describeStates(manifests))
	}

	counts := make(map[model.ManifestState]int)
	for _, s := range manifests {
		counts[s]++
	}

	switch {
	case counts[model.ManifestPartial] > 0:
		return model.ArcPartial, nil
	case counts[model.ManifestEmpty] == len(manifests):
		return model.ArcComplete, nil
	case counts[model.ManifestComplete] > 0 &&
		counts[model.ManifestComplete]+counts[model.ManifestEmpty] == len(manifests):
		return model.ArcComplete, nil
	}

	e := arcerr.Inconsistent("unexpected manifest state combination")
	for role, s := range manifests {
		e = e.With("manifest."+role, string(s))
	}
	return "", e
}

// States resolves the manifest state of every sink role from the manifest
// identifiers a workload returned.
func States(manifests map[string]string) (map[string]model.ManifestState, error) {
	states := make(map[string]model.ManifestState, len(manifests))
	for role, s := range manifests {
		u := uri.ParseManifestURI(s)
		if !u.IsIdentifier() {
			return nil, arcerr.Inconsistent("sink %q returned a manifest path without state", role).
				ForDataset(u.DatasetID()).AtLot(u.Lot).With("uri", s)
		}
		states[role] = u.State
	}
	return states, nil
}

// Aggregator fans out notifications for completed lots.
type Aggregator struct {
	Publisher notify.Publisher
}

// Notify publishes one event per sink role when state is complete and
// returns the events delivered. Other states publish nothing, and events the
// publisher reports as duplicates are left out. Sinks listed
// in sinks with publishing disabled are skipped; roles missing from sinks
// are published with the dataset recovered from the manifest URI.
func (a Aggregator) Notify(ctx context.Context, lot string, placement model.Placement, state model.ArcState, sinks map[string]model.SinkDataset, manifests map[string]string) ([]model.ArcNotifyEvent, error) {
	if state != model.ArcComplete {
		return nil, nil
	}

	roles := make([]string, 0, len(manifests))
	for role := range manifests {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	var events []model.ArcNotifyEvent
	for _, role := range roles {
		dataset, known := sinks[role]
		if known && !dataset.Publish {
			continue
		}
		ds := dataset.Dataset
		if !known {
			u := uri.ParseManifestURI(manifests[role])
			ds = model.Dataset{Name: u.Dataset, Version: u.Version}
		}

		event := model.ArcNotifyEvent{
			ID:        notify.EventID(role, lot, manifests[role]),
			LotID:     lot,
			Dataset:   ds,
			Placement: placement,
			Role:      role,
			Manifest:  manifests[role],
		}
		err := a.Publisher.Publish(ctx, event)
		if errors.Is(err, notify.ErrDuplicate) {
			continue
		}
		if err != nil {
			return events, fmt.Errorf("notify %s lot %s: %w", role, lot, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func describe(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func describeStates(m map[string]model.ManifestState) string {
	s := make(map[string]string, len(m))
	for k, v := range m {
		s[k] = string(v)
	}
	return describe(s)
}
