// Package storage defines the encounter store contract shared by the
// memory, SQLite, and PostgreSQL backends.
package storage

import (
	"context"
	"errors"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

// ErrCombatantNotFound is returned when an update names a combatant that is
// not part of the encounter. The whole batch is rejected.
var ErrCombatantNotFound = errors.New("combatant not found")

// Store persists encounters and hands out live handles to them.
//
// Active and Get wrap tracker.ErrNoActiveEncounter and
// tracker.ErrEncounterNotFound respectively.
type Store interface {
	// Save creates or replaces an encounter. Saving an active encounter
	// deactivates every other one.
	Save(ctx context.Context, enc combat.Encounter) error
	// Load returns a snapshot of the encounter.
	Load(ctx context.Context, id string) (combat.Encounter, error)
	// List returns every encounter without combatants, in creation order.
	List(ctx context.Context) ([]combat.Encounter, error)
	// SetActive makes id the only active encounter.
	SetActive(ctx context.Context, id string) error
	// Active returns a handle to the active encounter.
	Active(ctx context.Context) (tracker.Encounter, error)
	// Get returns a handle to the encounter id.
	Get(ctx context.Context, id string) (tracker.Encounter, error)
	// Close releases the store's resources.
	Close() error
}
