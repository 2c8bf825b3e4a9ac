package handler

import (
	"context"
	"log/slog"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/arcstate"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/notify"
	"github.com/roach88/arclot/internal/objstore"
)

// Start moves a lot into running when its trigger arrives.
type Start struct {
	config Config
	states *arcstate.Manager
}

// NewStart returns the start handler of the configured arc.
func NewStart(config Config, store objstore.Store) (*Start, error) {
	states, err := config.manager(store)
	if err != nil {
		return nil, err
	}
	return &Start{config: config, states: states}, nil
}

// Handle transitions the event's lot to running and returns the context the
// workload runs with.
//
// A lot that is already running or complete is returned unchanged without a
// write, so duplicate triggers are harmless. A lot left partial or missing by
// an earlier run starts again. The prior state reported by the transition
// must match the state read before it; anything else means another
// invocation moved the lot in between.
func (h *Start) Handle(ctx context.Context, event model.ArcNotifyEvent) (model.ArcExecContext, error) {
	lot := event.LotID
	arc := h.states.Arc().ArcID()
	if lot == "" {
		return model.ArcExecContext{}, arcerr.Precondition("start event carries no lot").ForArc(arc)
	}

	current, found, err := h.states.FindStateFor(ctx, lot)
	if err != nil {
		return model.ArcExecContext{}, err
	}

	log := slog.With("arc", arc, "lot", lot)
	if at, ok := notify.TimeOf(event.ID); ok {
		log = log.With("triggered", at)
	}

	exec := model.ArcExecContext{
		Role:             h.config.Role,
		ArcNotifyEvent:   event,
		SinkManifestURIs: h.config.ManifestPaths(lot),
	}

	if found && (current == model.ArcRunning || current == model.ArcComplete) {
		log.Info("arc lot already started", "state", string(current))
		exec.PreviousState = current
		exec.CurrentState = current
		return exec, nil
	}

	prior, priorFound, err := h.states.SetStateFor(ctx, lot, model.ArcRunning)
	if err != nil {
		return model.ArcExecContext{}, err
	}
	if priorFound != found || prior != current {
		return model.ArcExecContext{}, arcerr.Inconsistent("race detected starting arc lot").
			ForArc(arc).AtLot(lot).States(string(current), string(prior))
	}

	log.Info("arc lot started", "prior", string(prior), "role", h.config.Role)
	exec.PreviousState = prior
	exec.CurrentState = model.ArcRunning
	return exec, nil
}
