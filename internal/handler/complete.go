package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/arcstate"
	"github.com/roach88/arclot/internal/manifest"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/notify"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

// Complete settles a running lot from the workload's report.
type Complete struct {
	config     Config
	states     *arcstate.Manager
	aggregator manifest.Aggregator
}

// NewComplete returns the complete handler of the configured arc. Events for
// completed lots go to publisher.
func NewComplete(config Config, store objstore.Store, publisher notify.Publisher) (*Complete, error) {
	states, err := config.manager(store)
	if err != nil {
		return nil, err
	}
	return &Complete{
		config:     config,
		states:     states,
		aggregator: manifest.Aggregator{Publisher: publisher},
	}, nil
}

// Handle decides the lot's state from the reported manifests and errors,
// persists it, and publishes sink events when the lot completed.
//
// The lot must be in the state the input context names as current, running
// when unset. A different prior state is a race and fails after the
// transition has been attempted; nothing is published in that case.
func (h *Complete) Handle(ctx context.Context, in model.ArcStateContext) (model.ArcStateContext, error) {
	lot := in.LotID()
	arc := h.states.Arc().ArcID()
	if lot == "" {
		return model.ArcStateContext{}, arcerr.Precondition("completion carries no lot").ForArc(arc)
	}
	for role, s := range in.SinkManifestURIs {
		if u := uri.ParseManifestURI(s); u.Lot != lot {
			return model.ArcStateContext{}, arcerr.Inconsistent("sink %q reported a manifest for another lot", role).
				ForArc(arc).AtLot(lot).With("uri", s)
		}
	}

	states, err := manifest.States(in.SinkManifestURIs)
	if err != nil {
		return model.ArcStateContext{}, err
	}
	next, err := manifest.Decide(in.WorkloadErrors, states)
	if err != nil {
		var e *arcerr.Error
		if errors.As(err, &e) {
			e.ForArc(arc).AtLot(lot)
		}
		return model.ArcStateContext{}, err
	}

	expected := in.CurrentState
	if expected == "" {
		expected = model.ArcRunning
	}

	prior, found, err := h.states.SetStateFor(ctx, lot, next)
	if err != nil {
		return model.ArcStateContext{}, err
	}
	if !found || prior != expected {
		return model.ArcStateContext{}, arcerr.Inconsistent("race detected completing arc lot").
			ForArc(arc).AtLot(lot).States(string(expected), string(prior))
	}

	slog.Info("arc lot settled", "arc", arc, "lot", lot, "prior", string(prior), "state", string(next))

	if _, err := h.aggregator.Notify(ctx, lot, h.config.Placement, next, h.config.Sinks, in.SinkManifestURIs); err != nil {
		return model.ArcStateContext{}, err
	}

	return model.ArcStateContext{
		PreviousState:    prior,
		CurrentState:     next,
		Role:             h.config.Role,
		ArcNotifyEvent:   in.ArcNotifyEvent,
		SinkManifestURIs: in.SinkManifestURIs,
		WorkloadErrors:   in.WorkloadErrors,
	}, nil
}
