package dice_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combat-tracker/internal/game/dice"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		in    string
		terms []dice.Term
	}{
		{"1d20", []dice.Term{{Sign: 1, Count: 1, Sides: 20}}},
		{"d20", []dice.Term{{Sign: 1, Count: 1, Sides: 20}}},
		{"D20 + 2", []dice.Term{{Sign: 1, Count: 1, Sides: 20}, {Sign: 1, Constant: 2}}},
		{"2d20kh1+3", []dice.Term{{Sign: 1, Count: 2, Sides: 20, Keep: 1}, {Sign: 1, Constant: 3}}},
		{"2d20kl1", []dice.Term{{Sign: 1, Count: 2, Sides: 20, Keep: 1, Lowest: true}}},
		{"1d20+1d4-1", []dice.Term{
			{Sign: 1, Count: 1, Sides: 20},
			{Sign: 1, Count: 1, Sides: 4},
			{Sign: -1, Constant: 1},
		}},
		{"-1+d6", []dice.Term{{Sign: -1, Constant: 1}, {Sign: 1, Count: 1, Sides: 6}}},
		{"10", []dice.Term{{Sign: 1, Constant: 10}}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.in, e.Raw)
			assert.Equal(t, tc.terms, e.Terms)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{
		"", "   ", "d", "0d6", "2d1", "1d20+", "1d20++2", "xd6", "2d6kh2", "2d6kx1",
		"4d6kh0", "1001d6", "1d1001", "abc",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := dice.Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("nope") })
	assert.NotPanics(t, func() { dice.MustParse("1d20") })
}

func TestParse_Property_RoundTripsCountAndSides(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, dice.MaxDiceCount).Draw(rt, "count")
		sides := rapid.IntRange(2, dice.MaxDieSides).Draw(rt, "sides")
		e, err := dice.Parse(fmt.Sprintf("%dd%d", count, sides))
		require.NoError(rt, err)
		require.Len(rt, e.Terms, 1)
		assert.Equal(rt, count, e.Terms[0].Count)
		assert.Equal(rt, sides, e.Terms[0].Sides)
	})
}
