// Package tracker implements the combat tracker's group-initiative and
// reverse-order actions against an injected host.
//
// The package never reaches for host globals: the active encounter, the
// settings, user notifications and re-rendering all come through HostContext.
package tracker

import (
	"context"
	"errors"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
)

// ErrNoActiveEncounter is returned by a host when no encounter is active.
var ErrNoActiveEncounter = errors.New("no active encounter")

// ErrEncounterNotFound is returned by a host when an encounter reference does not resolve.
var ErrEncounterNotFound = errors.New("encounter not found")

// User-visible warnings.
const (
	MsgNoCombatToRoll    = "No active combat to roll initiative for."
	MsgNoCombatToReverse = "No active combat to reverse."
)

// EncounterRef identifies an encounter by ID. The zero value means "the active encounter".
type EncounterRef string

// Encounter is the host-owned combat whose combatants the actions read and update.
type Encounter interface {
	// ID returns the encounter's stable identifier.
	ID() string
	// Combatants returns the encounter's combatants in host order.
	Combatants(ctx context.Context) ([]*combat.Combatant, error)
	// BatchUpdate writes initiative values keyed by combatant ID.
	BatchUpdate(ctx context.Context, updates []combat.InitiativeUpdate) error
}

// HostContext is everything the actions need from the surrounding application.
type HostContext interface {
	// ActiveEncounter returns the current encounter or ErrNoActiveEncounter.
	ActiveEncounter(ctx context.Context) (Encounter, error)
	// Encounter resolves ref or returns ErrEncounterNotFound.
	Encounter(ctx context.Context, ref EncounterRef) (Encounter, error)
	// Setting returns a registered setting's current value.
	Setting(key string) (any, bool)
	// NotifyWarning shows msg to the user.
	NotifyWarning(msg string)
	// RenderTracker redraws the turn order of enc.
	RenderTracker(ctx context.Context, enc Encounter) error
}

// RollEvaluator evaluates a dice formula to a number.
type RollEvaluator interface {
	Evaluate(ctx context.Context, formula string) (float64, error)
}
