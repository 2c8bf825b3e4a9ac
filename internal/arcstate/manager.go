// Package arcstate persists the execution state of arc lots as marker
// objects.
//
// A lot's state is the name of the single marker object under its path,
// "running.arc" for example. Transitions create the first marker or move the
// existing one, so at most one marker exists per lot outside the narrow race
// window between reading and writing. Races surface as inconsistent state
// errors; nothing here retries.
package arcstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/arclot/internal/arcerr"
	"github.com/roach88/arclot/internal/model"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

// Manager reads and transitions the state of one arc's lots.
type Manager struct {
	store objstore.Store
	arc   uri.ArcStateURI
}

// NewManager returns a manager for the arc addressed by arc. arc must be a
// complete path with lot and state unset.
func NewManager(store objstore.Store, arc uri.ArcStateURI) (*Manager, error) {
	if arc.Lot != "" || arc.IsIdentifier() {
		return nil, arcerr.Precondition("arc state manager requires an arc path without lot or state").
			ForArc(arc.ArcID()).AtLot(arc.Lot).States("", string(arc.State))
	}
	if _, err := arc.URI(); err != nil {
		return nil, err
	}
	return &Manager{store: store, arc: arc}, nil
}

// Arc returns the arc path the manager is scoped to.
func (m *Manager) Arc() uri.ArcStateURI {
	return m.arc
}

// FindStateFor returns the persisted state of lot. found is false when the
// lot has no marker, which is a normal outcome. More than one marker is an
// inconsistent state.
func (m *Manager) FindStateFor(ctx context.Context, lot string) (state model.ArcState, found bool, err error) {
	if lot == "" {
		return "", false, arcerr.Precondition("find state requires a lot").ForArc(m.arc.ArcID())
	}
	prefix, err := m.arc.WithLot(lot).URI()
	if err != nil {
		return "", false, err
	}
	refs, err := m.store.List(ctx, prefix)
	if err != nil {
		return "", false, fmt.Errorf("list markers for %s lot %s: %w", m.arc.ArcID(), lot, err)
	}

	var matches []model.ArcState
	for _, ref := range refs {
		if s, ok := markerState(ref); ok {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return matches[0], true, nil
	default:
		return "", false, arcerr.Inconsistent("found %d state markers", len(matches)).
			ForArc(m.arc.ArcID()).AtLot(lot).With("markers", joinStates(matches))
	}
}

// SetStateFor transitions lot to state and returns the state it moved from.
// found is false when the lot had no marker.
//
// Setting the current state again fails with a precondition error. A store
// reporting the target taken or the source gone means another invocation
// transitioned the lot concurrently, reported as an inconsistent state.
// Callers compare the returned prior state with the one they expected.
func (m *Manager) SetStateFor(ctx context.Context, lot string, state model.ArcState) (prior model.ArcState, found bool, err error) {
	current, found, err := m.FindStateFor(ctx, lot)
	if err != nil {
		return "", false, err
	}
	if found && current == state {
		return current, true, arcerr.Precondition("already in current state").
			ForArc(m.arc.ArcID()).AtLot(lot).States(string(state), string(current))
	}

	to := m.arc.WithLot(lot).WithState(state)
	if !found {
		err = m.create(ctx, to)
	} else {
		err = m.move(ctx, m.arc.WithLot(lot).WithState(current), to)
	}
	if err != nil {
		return current, found, err
	}

	slog.Debug("arc state set", "arc", m.arc.ArcID(), "lot", lot, "prior", string(current), "state", string(state))
	return current, found, nil
}

// create writes an empty marker at an identifier.
func (m *Manager) create(ctx context.Context, to uri.ArcStateURI) error {
	ref, err := m.identifier(to)
	if err != nil {
		return err
	}
	if err := m.store.Create(ctx, ref, nil); err != nil {
		return m.writeError(err, to, "", to.State)
	}
	return nil
}

// move renames the marker at from to to.
func (m *Manager) move(ctx context.Context, from, to uri.ArcStateURI) error {
	src, err := m.identifier(from)
	if err != nil {
		return err
	}
	dst, err := m.identifier(to)
	if err != nil {
		return err
	}
	if err := m.store.Move(ctx, src, dst); err != nil {
		return m.writeError(err, to, from.State, to.State)
	}
	return nil
}

// identifier resolves a write target, rejecting paths.
func (m *Manager) identifier(u uri.ArcStateURI) (uri.Ref, error) {
	if !u.IsIdentifier() {
		return uri.Ref{}, arcerr.Precondition("state write requires an identifier, got a path").
			ForArc(u.ArcID()).AtLot(u.Lot).With("uri", u.String())
	}
	return u.URI()
}

func (m *Manager) writeError(err error, to uri.ArcStateURI, from, target model.ArcState) error {
	if errors.Is(err, objstore.ErrExists) || errors.Is(err, objstore.ErrNotFound) {
		slog.Warn("concurrent arc state transition", "arc", to.ArcID(), "lot", to.Lot, "prior", string(from), "state", string(target))
		return arcerr.Inconsistent("race detected writing arc state").
			ForArc(to.ArcID()).AtLot(to.Lot).States(string(from), string(target)).Wrap(err)
	}
	return fmt.Errorf("write arc state %s: %w", to, err)
}

// LotState is the marker set found for one lot.
type LotState struct {
	Lot    string
	States []model.ArcState
}

// State returns the lot's state when exactly one marker exists.
func (l LotState) State() (model.ArcState, bool) {
	if len(l.States) != 1 {
		return "", false
	}
	return l.States[0], true
}

// Lots returns every lot of the arc that has at least one marker, ordered
// by lot. Lots with more than one marker are returned as they are so status
// reports can show them.
func (m *Manager) Lots(ctx context.Context) ([]LotState, error) {
	prefix, err := m.arc.URI()
	if err != nil {
		return nil, err
	}
	refs, err := m.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list lots for %s: %w", m.arc.ArcID(), err)
	}

	byLot := make(map[string][]model.ArcState)
	for _, ref := range refs {
		parsed := uri.ParseArcStateURI(ref.String())
		s, ok := markerState(ref)
		if !ok || parsed.Lot == "" {
			continue
		}
		byLot[parsed.Lot] = append(byLot[parsed.Lot], s)
	}

	lots := make([]LotState, 0, len(byLot))
	for lot, states := range byLot {
		lots = append(lots, LotState{Lot: lot, States: states})
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].Lot < lots[j].Lot })
	return lots, nil
}

func markerState(ref uri.Ref) (model.ArcState, bool) {
	name, ok := strings.CutSuffix(ref.Name(), model.ArcMarkerSuffix)
	if !ok {
		return "", false
	}
	return model.ParseArcState(name)
}

func joinStates(states []model.ArcState) string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
