package combat_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
)

func tagged(id, tag string) *combat.Combatant {
	c := &combat.Combatant{ID: id, Name: id, Flags: combat.Flags{}}
	if tag != "" {
		c.Flags.Set(combat.ModuleScope, combat.GroupFlagKey, tag)
	}
	return c
}

func TestFlagTagSource_ActorWins(t *testing.T) {
	c := tagged("A", "combatant-tag")
	c.Actor = &combat.Actor{ID: "actor", Flags: combat.Flags{
		combat.ModuleScope: {combat.GroupFlagKey: "actor-tag"},
	}}
	tag, ok := combat.DefaultTagSource().GroupTagOf(c)
	require.True(t, ok)
	assert.Equal(t, "actor-tag", tag)
}

func TestFlagTagSource_FallsBackToCombatant(t *testing.T) {
	c := tagged("A", "combatant-tag")
	c.Actor = &combat.Actor{ID: "actor"}
	tag, ok := combat.DefaultTagSource().GroupTagOf(c)
	require.True(t, ok)
	assert.Equal(t, "combatant-tag", tag)

	_, ok = combat.DefaultTagSource().GroupTagOf(tagged("B", ""))
	assert.False(t, ok)
	_, ok = combat.DefaultTagSource().GroupTagOf(nil)
	assert.False(t, ok)
}

func TestResolveGroups_EmptyFlagIsUntagged(t *testing.T) {
	a := &combat.Combatant{ID: "A", Flags: combat.Flags{combat.ModuleScope: {combat.GroupFlagKey: ""}}}
	b := &combat.Combatant{ID: "B", Flags: combat.Flags{combat.ModuleScope: {combat.GroupFlagKey: ""}}}

	groups := combat.ResolveGroups([]*combat.Combatant{a, b}, combat.DefaultTagSource())
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.False(t, g.Tagged)
		assert.True(t, g.Singleton())
	}
}

func TestResolveGroups_TagSpelledLikeUngroupedKeyStaysSeparate(t *testing.T) {
	// B's tag collides textually with C's synthetic key.
	src := staticTags{"B": "__ungrouped__:C"}
	b := &combat.Combatant{ID: "B"}
	c := &combat.Combatant{ID: "C"}

	groups := combat.ResolveGroups([]*combat.Combatant{b, c}, src)
	require.Len(t, groups, 2)
	assert.True(t, groups[0].Tagged)
	assert.Equal(t, []*combat.Combatant{b}, groups[0].Members)
	assert.False(t, groups[1].Tagged)
	assert.Equal(t, []*combat.Combatant{c}, groups[1].Members)
}

type staticTags map[string]string

func (s staticTags) GroupTagOf(c *combat.Combatant) (string, bool) {
	v, ok := s[c.ID]
	return v, ok
}

func TestTagSources_FirstWins(t *testing.T) {
	src := combat.TagSources{staticTags{"A": "first"}, staticTags{"A": "second", "B": "only"}}
	tag, ok := src.GroupTagOf(&combat.Combatant{ID: "A"})
	require.True(t, ok)
	assert.Equal(t, "first", tag)
	tag, ok = src.GroupTagOf(&combat.Combatant{ID: "B"})
	require.True(t, ok)
	assert.Equal(t, "only", tag)
	_, ok = src.GroupTagOf(&combat.Combatant{ID: "C"})
	assert.False(t, ok)
}

func TestResolveGroups_Scenario(t *testing.T) {
	cs := []*combat.Combatant{tagged("A", "g1"), tagged("C", ""), tagged("B", "g1")}
	groups := combat.ResolveGroups(cs, combat.DefaultTagSource())
	require.Len(t, groups, 2)

	assert.Equal(t, "g1", groups[0].Key)
	assert.True(t, groups[0].Tagged)
	assert.False(t, groups[0].Singleton())
	assert.Equal(t, []*combat.Combatant{cs[0], cs[2]}, groups[0].Members)

	assert.False(t, groups[1].Tagged)
	assert.True(t, groups[1].Singleton())
	assert.Equal(t, []*combat.Combatant{cs[1]}, groups[1].Members)
}

func TestResolveGroups_TaggedSingletonIsNotUntagged(t *testing.T) {
	groups := combat.ResolveGroups([]*combat.Combatant{tagged("A", "solo")}, combat.DefaultTagSource())
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Tagged)
	assert.False(t, groups[0].Singleton())
}

func TestResolveGroups_Empty(t *testing.T) {
	assert.Empty(t, combat.ResolveGroups(nil, combat.DefaultTagSource()))
}

func TestResolveGroups_Property_Partition(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		cs := make([]*combat.Combatant, n)
		for i := range cs {
			tag := rapid.SampledFrom([]string{"", "", "g1", "g2", "g3"}).Draw(rt, fmt.Sprintf("tag%d", i))
			cs[i] = tagged(fmt.Sprintf("c%d", i), tag)
		}
		groups := combat.ResolveGroups(cs, combat.DefaultTagSource())

		seen := make(map[string]bool)
		total := 0
		for _, g := range groups {
			require.NotEmpty(rt, g.Members)
			assert.False(rt, seen[g.Key], "group keys must be unique")
			seen[g.Key] = true
			for _, m := range g.Members {
				tag, ok := combat.DefaultTagSource().GroupTagOf(m)
				assert.Equal(rt, g.Tagged, ok)
				if ok {
					assert.Equal(rt, g.Key, tag)
				}
			}
			if !g.Tagged {
				assert.Len(rt, g.Members, 1)
			}
			total += len(g.Members)
		}
		assert.Equal(rt, n, total)
	})
}
