// Package memory provides an in-process encounter store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/storage"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

// Store keeps encounters in memory. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	encounters map[string]combat.Encounter
	order      []string
}

var _ storage.Store = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{encounters: make(map[string]combat.Encounter)}
}

// Save implements storage.Store.
func (s *Store) Save(_ context.Context, enc combat.Encounter) error {
	if err := enc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.encounters[enc.ID]; !ok {
		s.order = append(s.order, enc.ID)
	}
	s.encounters[enc.ID] = enc.Clone()
	if enc.Active {
		s.activateLocked(enc.ID)
	}
	return nil
}

// Load implements storage.Store.
func (s *Store) Load(_ context.Context, id string) (combat.Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enc, ok := s.encounters[id]
	if !ok {
		return combat.Encounter{}, fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
	}
	return enc.Clone(), nil
}

// List implements storage.Store.
func (s *Store) List(context.Context) ([]combat.Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]combat.Encounter, 0, len(s.order))
	for _, id := range s.order {
		enc := s.encounters[id]
		enc.Combatants = nil
		out = append(out, enc)
	}
	return out, nil
}

// SetActive implements storage.Store.
func (s *Store) SetActive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.encounters[id]; !ok {
		return fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
	}
	s.activateLocked(id)
	return nil
}

func (s *Store) activateLocked(id string) {
	for k, enc := range s.encounters {
		enc.Active = k == id
		s.encounters[k] = enc
	}
}

// Active implements storage.Store.
func (s *Store) Active(context.Context) (tracker.Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if s.encounters[id].Active {
			return &handle{store: s, id: id}, nil
		}
	}
	return nil, tracker.ErrNoActiveEncounter
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, id string) (tracker.Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.encounters[id]; !ok {
		return nil, fmt.Errorf("encounter %s: %w", id, tracker.ErrEncounterNotFound)
	}
	return &handle{store: s, id: id}, nil
}

// Close implements storage.Store.
func (s *Store) Close() error { return nil }

// handle is a live view of one stored encounter.
type handle struct {
	store *Store
	id    string
}

func (h *handle) ID() string { return h.id }

func (h *handle) Combatants(context.Context) ([]*combat.Combatant, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	enc, ok := h.store.encounters[h.id]
	if !ok {
		return nil, fmt.Errorf("encounter %s: %w", h.id, tracker.ErrEncounterNotFound)
	}
	return enc.Clone().Combatants, nil
}

// BatchUpdate applies every update or none of them.
func (h *handle) BatchUpdate(ctx context.Context, updates []combat.InitiativeUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	enc, ok := h.store.encounters[h.id]
	if !ok {
		return fmt.Errorf("encounter %s: %w", h.id, tracker.ErrEncounterNotFound)
	}
	next := enc.Clone()
	if missing := combat.Apply(next.Combatants, updates); len(missing) > 0 {
		return fmt.Errorf("encounter %s: %w: %v", h.id, storage.ErrCombatantNotFound, missing)
	}
	h.store.encounters[h.id] = next
	return nil
}
