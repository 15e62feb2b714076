package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/game/dice"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

func newService(host *fakeHost, rolls tracker.RollEvaluator) *tracker.Service {
	return tracker.NewService(host, rolls, combat.DefaultTagSource(), zap.NewNop())
}

func TestPerformGroupInitiative_Scenario(t *testing.T) {
	enc := &fakeEncounter{id: "enc1", combatants: []*combat.Combatant{
		member("A", "g1", nil),
		member("B", "g1", nil),
		member("C", "", nil),
	}}
	host := &fakeHost{active: enc}
	rolls := &queuedRolls{totals: []float64{15, 7}}

	require.NoError(t, newService(host, rolls).PerformGroupInitiative(context.Background()))

	assert.Equal(t, map[string]float64{"A": 15, "B": 15, "C": 7}, enc.initiatives())
	assert.Equal(t, []string{"1d20", "1d20"}, rolls.formulas, "one roll per group with the default formula")
	assert.Len(t, enc.batches, 3, "one update per combatant")
	assert.Equal(t, []string{"enc1"}, host.rendered)
	assert.Empty(t, host.warnings)
}

func TestPerformGroupInitiative_UsesFormulaSetting(t *testing.T) {
	enc := &fakeEncounter{id: "e", combatants: []*combat.Combatant{member("A", "", nil)}}
	host := &fakeHost{active: enc, settings: map[string]any{tracker.SettingInitiativeFormula: "1d20+3"}}
	rolls := &queuedRolls{totals: []float64{9}}

	require.NoError(t, newService(host, rolls).PerformGroupInitiative(context.Background()))
	assert.Equal(t, []string{"1d20+3"}, rolls.formulas)
}

func TestPerformGroupInitiative_BlankFormulaFallsBack(t *testing.T) {
	enc := &fakeEncounter{id: "e", combatants: []*combat.Combatant{member("A", "", nil)}}
	host := &fakeHost{active: enc, settings: map[string]any{tracker.SettingInitiativeFormula: "  "}}
	rolls := &queuedRolls{totals: []float64{9}}

	require.NoError(t, newService(host, rolls).PerformGroupInitiative(context.Background()))
	assert.Equal(t, []string{tracker.DefaultFormula}, rolls.formulas)
}

func TestPerformGroupInitiative_NoActiveEncounter(t *testing.T) {
	host := &fakeHost{}
	rolls := &queuedRolls{totals: []float64{1}}

	require.NoError(t, newService(host, rolls).PerformGroupInitiative(context.Background()))
	assert.Equal(t, []string{tracker.MsgNoCombatToRoll}, host.warnings)
	assert.Empty(t, rolls.formulas)
	assert.Empty(t, host.rendered)
}

func TestPerformGroupInitiative_LookupErrorPropagates(t *testing.T) {
	host := &fakeHost{lookupErr: errors.New("db down")}
	err := newService(host, &queuedRolls{}).PerformGroupInitiative(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, host.warnings)
}

func TestPerformGroupInitiative_EmptyEncounter(t *testing.T) {
	enc := &fakeEncounter{id: "e"}
	host := &fakeHost{active: enc}
	rolls := &queuedRolls{}

	require.NoError(t, newService(host, rolls).PerformGroupInitiative(context.Background()))
	assert.Empty(t, rolls.formulas)
	assert.Empty(t, enc.batches)
	assert.Equal(t, []string{"e"}, host.rendered)
}

func TestPerformGroupInitiative_RollFailureStopsWithoutUpdates(t *testing.T) {
	enc := &fakeEncounter{id: "e", combatants: []*combat.Combatant{member("A", "", nil)}}
	host := &fakeHost{active: enc}
	rolls := &queuedRolls{err: errors.New("bad formula")}

	err := newService(host, rolls).PerformGroupInitiative(context.Background())
	assert.ErrorContains(t, err, "bad formula")
	assert.Empty(t, enc.batches)
	assert.Empty(t, host.rendered)
}

func TestPerformGroupInitiative_PartialUpdatesRemain(t *testing.T) {
	enc := &fakeEncounter{id: "e", failAfter: 3, combatants: []*combat.Combatant{
		member("A", "g", nil),
		member("B", "g", nil),
		member("C", "", nil),
	}}
	host := &fakeHost{active: enc}
	rolls := &queuedRolls{totals: []float64{11, 4}}

	err := newService(host, rolls).PerformGroupInitiative(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "combatant C")
	assert.Equal(t, map[string]float64{"A": 11, "B": 11}, enc.initiatives())
}

func TestPerformGroupInitiative_RenderErrorReturned(t *testing.T) {
	enc := &fakeEncounter{id: "e", combatants: []*combat.Combatant{member("A", "", nil)}}
	host := &fakeHost{active: enc, renderErr: errors.New("closed")}
	err := newService(host, &queuedRolls{totals: []float64{3}}).PerformGroupInitiative(context.Background())
	assert.ErrorContains(t, err, "rendering encounter e")
	assert.Equal(t, map[string]float64{"A": 3}, enc.initiatives())
}

func TestPerformGroupInitiative_Property_UntaggedRollEach(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 25).Draw(rt, "n")
		cs := make([]*combat.Combatant, n)
		totals := make([]float64, n)
		for i := range cs {
			cs[i] = member(fmt.Sprintf("c%d", i), "", nil)
			totals[i] = float64(i + 1)
		}
		enc := &fakeEncounter{id: "e", combatants: cs}
		rolls := &queuedRolls{totals: totals}

		require.NoError(rt, newService(&fakeHost{active: enc}, rolls).PerformGroupInitiative(context.Background()))
		assert.Len(rt, rolls.formulas, n)
		for i, c := range cs {
			v, ok := c.InitiativeValue()
			require.True(rt, ok)
			assert.Equal(rt, float64(i+1), v)
		}
	})
}

func TestPerformGroupInitiative_Property_SharedTagSharesRoll(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 25).Draw(rt, "n")
		cs := make([]*combat.Combatant, n)
		tags := make(map[string]bool)
		for i := range cs {
			tag := rapid.SampledFrom([]string{"", "wolves", "bandits"}).Draw(rt, fmt.Sprintf("tag%d", i))
			cs[i] = member(fmt.Sprintf("c%d", i), tag, nil)
			if tag != "" {
				tags[tag] = true
			}
		}
		enc := &fakeEncounter{id: "e", combatants: cs}
		src := dice.NewSeededSource(uint64(n))
		evaluator := tracker.NewDiceEvaluator(dice.NewLoggedRoller(src, zap.NewNop()))

		require.NoError(rt, newService(&fakeHost{active: enc}, evaluator).PerformGroupInitiative(context.Background()))

		byTag := make(map[string]float64)
		for _, c := range cs {
			v, ok := c.InitiativeValue()
			require.True(rt, ok)
			assert.GreaterOrEqual(rt, v, 1.0)
			assert.LessOrEqual(rt, v, 20.0)
			tag, ok := combat.DefaultTagSource().GroupTagOf(c)
			if !ok {
				continue
			}
			if prev, seen := byTag[tag]; seen {
				assert.Equal(rt, prev, v, "members of %q must share one roll", tag)
			}
			byTag[tag] = v
		}
		assert.Len(rt, byTag, len(tags))
	})
}

func TestPerformReverseOrder_Scenario(t *testing.T) {
	enc := &fakeEncounter{id: "e", combatants: []*combat.Combatant{
		member("A", "", combat.Float(5)),
		member("B", "", combat.Float(12)),
		member("C", "", nil),
	}}
	host := &fakeHost{active: enc}

	require.NoError(t, newService(host, &queuedRolls{}).PerformReverseOrder(context.Background(), ""))

	require.Len(t, enc.batches, 1, "reversal is a single batch")
	assert.Equal(t, []combat.InitiativeUpdate{
		{CombatantID: "A", Initiative: 7},
		{CombatantID: "B", Initiative: 0},
		{CombatantID: "C", Initiative: 12},
	}, enc.batches[0])
	assert.Equal(t, []string{"e"}, host.rendered)
}

func TestPerformReverseOrder_ByRef(t *testing.T) {
	other := &fakeEncounter{id: "other", combatants: []*combat.Combatant{
		member("X", "", combat.Float(3)),
		member("Y", "", combat.Float(10)),
	}}
	active := &fakeEncounter{id: "active", combatants: []*combat.Combatant{member("A", "", combat.Float(1))}}
	host := &fakeHost{active: active, byID: map[string]*fakeEncounter{"other": other}}

	require.NoError(t, newService(host, &queuedRolls{}).PerformReverseOrder(context.Background(), "other"))
	assert.Equal(t, map[string]float64{"X": 7, "Y": 0}, other.initiatives())
	assert.Empty(t, active.batches)
}

func TestPerformReverseOrder_NoEncounter(t *testing.T) {
	host := &fakeHost{}
	svc := newService(host, &queuedRolls{})

	require.NoError(t, svc.PerformReverseOrder(context.Background(), ""))
	assert.Equal(t, []string{tracker.MsgNoCombatToReverse}, host.warnings)

	host.warnings = nil
	require.NoError(t, svc.PerformReverseOrder(context.Background(), "missing"))
	assert.Equal(t, []string{tracker.MsgNoCombatToReverse}, host.warnings)
	assert.Empty(t, host.rendered)
}

func TestPerformReverseOrder_EmptyIsSilent(t *testing.T) {
	enc := &fakeEncounter{id: "e"}
	host := &fakeHost{active: enc}

	require.NoError(t, newService(host, &queuedRolls{}).PerformReverseOrder(context.Background(), ""))
	assert.Empty(t, enc.batches)
	assert.Empty(t, host.warnings)
	assert.Empty(t, host.rendered)
}

func TestPerformReverseOrder_UpdateFailure(t *testing.T) {
	enc := &fakeEncounter{id: "e", failAfter: 1, combatants: []*combat.Combatant{member("A", "", combat.Float(2))}}
	host := &fakeHost{active: enc}

	err := newService(host, &queuedRolls{}).PerformReverseOrder(context.Background(), "")
	assert.ErrorContains(t, err, "reversing encounter e")
	assert.Empty(t, host.rendered)
}

func TestPerformReverseOrder_Property_SumsToMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 25).Draw(rt, "n")
		cs := make([]*combat.Combatant, n)
		before := make(map[string]float64)
		for i := range cs {
			var init *float64
			if rapid.Bool().Draw(rt, fmt.Sprintf("rolled%d", i)) {
				init = combat.Float(float64(rapid.IntRange(-5, 30).Draw(rt, fmt.Sprintf("init%d", i))))
			}
			cs[i] = member(fmt.Sprintf("c%d", i), "", init)
			before[cs[i].ID], _ = cs[i].InitiativeValue()
		}
		maxInit := combat.MaxInitiative(cs)
		enc := &fakeEncounter{id: "e", combatants: cs}

		require.NoError(rt, newService(&fakeHost{active: enc}, &queuedRolls{}).PerformReverseOrder(context.Background(), ""))
		require.Len(rt, enc.batches, 1)
		for _, u := range enc.batches[0] {
			assert.Equal(rt, maxInit, u.Initiative+before[u.CombatantID])
		}
	})
}

func TestDiceEvaluator(t *testing.T) {
	ev := tracker.NewDiceEvaluator(dice.NewLoggedRoller(dice.NewSeededSource(1), zap.NewNop()))

	v, err := ev.Evaluate(context.Background(), "1d20")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v, 1.0)
	assert.LessOrEqual(t, v, 20.0)

	_, err = ev.Evaluate(context.Background(), "1d")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ev.Evaluate(ctx, "1d20")
	assert.ErrorIs(t, err, context.Canceled)
}
