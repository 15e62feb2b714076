package tracker_test

import (
	"context"
	"errors"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

type fakeEncounter struct {
	id         string
	combatants []*combat.Combatant
	listErr    error
	// failAfter fails the n-th BatchUpdate call (1-based); 0 never fails.
	failAfter int
	batches   [][]combat.InitiativeUpdate
}

func (e *fakeEncounter) ID() string { return e.id }

func (e *fakeEncounter) Combatants(context.Context) ([]*combat.Combatant, error) {
	return e.combatants, e.listErr
}

func (e *fakeEncounter) BatchUpdate(_ context.Context, updates []combat.InitiativeUpdate) error {
	if e.failAfter > 0 && len(e.batches)+1 == e.failAfter {
		return errors.New("store unavailable")
	}
	cp := append([]combat.InitiativeUpdate(nil), updates...)
	e.batches = append(e.batches, cp)
	combat.Apply(e.combatants, updates)
	return nil
}

// initiatives returns every combatant's current initiative keyed by ID.
func (e *fakeEncounter) initiatives() map[string]float64 {
	out := make(map[string]float64)
	for _, c := range e.combatants {
		if v, ok := c.InitiativeValue(); ok {
			out[c.ID] = v
		}
	}
	return out
}

type fakeHost struct {
	active    *fakeEncounter
	byID      map[string]*fakeEncounter
	lookupErr error
	settings  map[string]any
	warnings  []string
	rendered  []string
	renderErr error
}

func (h *fakeHost) ActiveEncounter(context.Context) (tracker.Encounter, error) {
	if h.lookupErr != nil {
		return nil, h.lookupErr
	}
	if h.active == nil {
		return nil, tracker.ErrNoActiveEncounter
	}
	return h.active, nil
}

func (h *fakeHost) Encounter(_ context.Context, ref tracker.EncounterRef) (tracker.Encounter, error) {
	if e, ok := h.byID[string(ref)]; ok {
		return e, nil
	}
	return nil, tracker.ErrEncounterNotFound
}

func (h *fakeHost) Setting(key string) (any, bool) {
	v, ok := h.settings[key]
	return v, ok
}

func (h *fakeHost) NotifyWarning(msg string) { h.warnings = append(h.warnings, msg) }

func (h *fakeHost) RenderTracker(_ context.Context, enc tracker.Encounter) error {
	h.rendered = append(h.rendered, enc.ID())
	return h.renderErr
}

// queuedRolls returns queued totals in order and records formulas.
type queuedRolls struct {
	totals   []float64
	formulas []string
	err      error
}

func (q *queuedRolls) Evaluate(_ context.Context, formula string) (float64, error) {
	q.formulas = append(q.formulas, formula)
	if q.err != nil {
		return 0, q.err
	}
	if len(q.totals) == 0 {
		return 0, errors.New("no rolls queued")
	}
	v := q.totals[0]
	q.totals = q.totals[1:]
	return v, nil
}

func member(id, tag string, init *float64) *combat.Combatant {
	c := &combat.Combatant{ID: id, Name: id, Initiative: init, Flags: combat.Flags{}}
	if tag != "" {
		c.Flags.Set(combat.ModuleScope, combat.GroupFlagKey, tag)
	}
	return c
}
