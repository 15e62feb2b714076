// Package storagetest is the behavioral contract every storage.Store must meet.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/storage"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

// Store is the contract under test.
type Store = storage.Store

// Fixture returns a three-combatant encounter: two goblins sharing an actor
// with a group flag, and an unrolled hero.
func Fixture(id string, active bool) combat.Encounter {
	goblin := &combat.Actor{
		ID:    id + "-goblin",
		Name:  "Goblin",
		Flags: combat.Flags{combat.ModuleScope: {combat.GroupFlagKey: "goblins"}},
	}
	return combat.Encounter{
		ID:     id,
		Name:   "Ambush " + id,
		Active: active,
		Round:  1,
		Combatants: []*combat.Combatant{
			{ID: id + "-g1", Name: "Goblin 1", Initiative: combat.Float(5), Actor: goblin},
			{ID: id + "-g2", Name: "Goblin 2", Initiative: combat.Float(12), Actor: goblin, Hidden: true},
			{ID: id + "-hero", Name: "Hero", Flags: combat.Flags{"other": {"note": "x"}}},
		},
	}
}

// Run exercises a fresh store from newStore against the contract.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("NoActiveEncounter", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Active(context.Background())
		assert.ErrorIs(t, err, tracker.ErrNoActiveEncounter)
	})

	t.Run("MissingEncounter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, tracker.ErrEncounterNotFound)
		_, err = s.Load(ctx, "nope")
		assert.ErrorIs(t, err, tracker.ErrEncounterNotFound)
		assert.ErrorIs(t, s.SetActive(ctx, "nope"), tracker.ErrEncounterNotFound)
	})

	t.Run("SaveAndReadBack", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		want := Fixture("e1", true)
		require.NoError(t, s.Save(ctx, want))

		h, err := s.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, "e1", h.ID())

		cs, err := h.Combatants(ctx)
		require.NoError(t, err)
		require.Len(t, cs, 3)
		assert.Equal(t, []string{"e1-g1", "e1-g2", "e1-hero"}, ids(cs))
		assert.Equal(t, 5.0, *cs[0].Initiative)
		assert.Nil(t, cs[2].Initiative)
		assert.True(t, cs[1].Hidden)
		require.NotNil(t, cs[0].Actor)
		tag, ok := combat.DefaultTagSource().GroupTagOf(cs[0])
		require.True(t, ok)
		assert.Equal(t, "goblins", tag)
		note, ok := cs[2].Flags.Get("other", "note")
		require.True(t, ok)
		assert.Equal(t, "x", note)

		loaded, err := s.Load(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, "Ambush e1", loaded.Name)
		assert.Equal(t, 1, loaded.Round)
		assert.True(t, loaded.Active)
	})

	t.Run("SingleActive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, Fixture("e1", true)))
		require.NoError(t, s.Save(ctx, Fixture("e2", true)))

		h, err := s.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, "e2", h.ID())

		require.NoError(t, s.SetActive(ctx, "e1"))
		h, err = s.Active(ctx)
		require.NoError(t, err)
		assert.Equal(t, "e1", h.ID())

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "e1", list[0].ID)
		assert.True(t, list[0].Active)
		assert.False(t, list[1].Active)
		assert.Empty(t, list[0].Combatants)
	})

	t.Run("BatchUpdate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, Fixture("e1", false)))
		h, err := s.Get(ctx, "e1")
		require.NoError(t, err)

		require.NoError(t, h.BatchUpdate(ctx, []combat.InitiativeUpdate{
			{CombatantID: "e1-g1", Initiative: 7},
			{CombatantID: "e1-hero", Initiative: 12},
		}))
		cs, err := h.Combatants(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7.0, *cs[0].Initiative)
		assert.Equal(t, 12.0, *cs[1].Initiative)
		assert.Equal(t, 12.0, *cs[2].Initiative)
	})

	t.Run("BatchUpdateRejectsUnknownCombatant", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, Fixture("e1", false)))
		require.NoError(t, s.Save(ctx, Fixture("e2", false)))
		h, err := s.Get(ctx, "e1")
		require.NoError(t, err)

		err = h.BatchUpdate(ctx, []combat.InitiativeUpdate{
			{CombatantID: "e1-g1", Initiative: 1},
			{CombatantID: "e2-g1", Initiative: 1},
		})
		assert.ErrorIs(t, err, storage.ErrCombatantNotFound)

		cs, err := h.Combatants(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5.0, *cs[0].Initiative, "a rejected batch changes nothing")
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		enc := Fixture("e1", true)
		require.NoError(t, s.Save(ctx, enc))
		enc.Combatants = enc.Combatants[2:]
		enc.Round = 3
		require.NoError(t, s.Save(ctx, enc))

		loaded, err := s.Load(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Round)
		assert.Equal(t, []string{"e1-hero"}, ids(loaded.Combatants))
	})

	t.Run("SaveRejectsInvalid", func(t *testing.T) {
		s := newStore(t)
		assert.Error(t, s.Save(context.Background(), combat.Encounter{}))
	})

	t.Run("CombatantIDsScopedToEncounter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		hero := func(encID string, init float64) combat.Encounter {
			return combat.Encounter{
				ID:         encID,
				Name:       "Duel " + encID,
				Combatants: []*combat.Combatant{{ID: "hero", Name: "Hero", Initiative: combat.Float(init)}},
			}
		}
		require.NoError(t, s.Save(ctx, hero("e1", 3)))
		require.NoError(t, s.Save(ctx, hero("e2", 9)))

		h, err := s.Get(ctx, "e2")
		require.NoError(t, err)
		require.NoError(t, h.BatchUpdate(ctx, []combat.InitiativeUpdate{{CombatantID: "hero", Initiative: 15}}))

		e1, err := s.Load(ctx, "e1")
		require.NoError(t, err)
		e2, err := s.Load(ctx, "e2")
		require.NoError(t, err)
		assert.Equal(t, []float64{3}, initiatives(e1.Combatants))
		assert.Equal(t, []float64{15}, initiatives(e2.Combatants))
	})

	t.Run("ReverseRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, Fixture("e1", true)))
		h, err := s.Active(ctx)
		require.NoError(t, err)

		cs, err := h.Combatants(ctx)
		require.NoError(t, err)
		_, updates := combat.ReverseOrder(cs)
		require.NoError(t, h.BatchUpdate(ctx, updates))

		cs, err = h.Combatants(ctx)
		require.NoError(t, err)
		assert.Equal(t, []float64{7, 0, 12}, initiatives(cs))
	})
}

func ids(cs []*combat.Combatant) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func initiatives(cs []*combat.Combatant) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i], _ = c.InitiativeValue()
	}
	return out
}
