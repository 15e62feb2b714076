package host_test

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
	"github.com/cory-johannsen/combat-tracker/internal/host"
	"github.com/cory-johannsen/combat-tracker/internal/storage/memory"
	"github.com/cory-johannsen/combat-tracker/internal/storage/storagetest"
)

func TestFormatInitiative(t *testing.T) {
	assert.Equal(t, "-", host.FormatInitiative(&combat.Combatant{}))
	assert.Equal(t, "-", host.FormatInitiative(&combat.Combatant{Initiative: combat.Float(math.NaN())}))
	assert.Equal(t, "12", host.FormatInitiative(&combat.Combatant{Initiative: combat.Float(12)}))
	assert.Equal(t, "7.5", host.FormatInitiative(&combat.Combatant{Initiative: combat.Float(7.5)}))
}

func TestTurnOrderTable_OrdersRows(t *testing.T) {
	out := host.TurnOrderTable(storagetest.Fixture("e1", true).Combatants)

	g2 := strings.Index(out, "Goblin 2")
	g1 := strings.Index(out, "Goblin 1")
	hero := strings.Index(out, "Hero")
	require.True(t, g2 >= 0 && g1 >= 0 && hero >= 0, out)
	assert.Less(t, g2, g1)
	assert.Less(t, g1, hero)
	assert.Contains(t, out, "hidden")
	assert.Contains(t, out, "Initiative")
}

func TestRenderer_Render(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	require.NoError(t, s.Save(ctx, storagetest.Fixture("e1", true)))
	enc, err := s.Active(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, host.NewRenderer(&buf).Render(ctx, enc))
	assert.True(t, strings.HasPrefix(buf.String(), "Encounter e1\n"))
	assert.Contains(t, buf.String(), "Goblin 1")
}
