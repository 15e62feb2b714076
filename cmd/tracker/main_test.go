package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combat-tracker/internal/config"
	"github.com/cory-johannsen/combat-tracker/internal/storage/storagetest"
	"github.com/cory-johannsen/combat-tracker/internal/tracker"
)

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("logging.level", "error")
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.LoadFromViper(v)
	require.NoError(t, err)
	return &cfg
}

func TestInitializeApp_ReverseOrder(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	app, cleanup, err := initializeApp(ctx, testConfig(t, nil), Seed(7), &out)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, app.Store.Save(ctx, storagetest.Fixture("e1", true)))
	require.NoError(t, app.Registry.Dispatch(ctx, tracker.Event{Action: tracker.ActionReverseOrder}))

	enc, err := app.Store.Load(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 7.0, *enc.Combatants[0].Initiative)
	assert.Equal(t, 0.0, *enc.Combatants[1].Initiative)
	assert.Equal(t, 12.0, *enc.Combatants[2].Initiative)
	assert.Contains(t, out.String(), "Encounter e1")
}

func TestInitializeApp_ScriptTagsGroup(t *testing.T) {
	script := filepath.Join(t.TempDir(), "tags.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
function group_tag(c)
  if c.name == "Hero" then return "goblins" end
end
`), 0644))

	ctx := context.Background()
	var out bytes.Buffer
	app, cleanup, err := initializeApp(ctx, testConfig(t, map[string]any{"tracker.group_script": script}), Seed(3), &out)
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, app.Store.Save(ctx, storagetest.Fixture("e1", true)))
	require.NoError(t, app.Registry.Dispatch(ctx, tracker.Event{Action: tracker.ActionGroupInitiative}))

	enc, err := app.Store.Load(ctx, "e1")
	require.NoError(t, err)
	first := *enc.Combatants[0].Initiative
	for _, c := range enc.Combatants {
		require.NotNil(t, c.Initiative, c.ID)
		assert.Equal(t, first, *c.Initiative, "script joins the hero to the goblins")
	}
}

func TestInitializeApp_BadScriptFails(t *testing.T) {
	_, _, err := initializeApp(context.Background(),
		testConfig(t, map[string]any{"tracker.group_script": filepath.Join(t.TempDir(), "missing.lua")}),
		0, &bytes.Buffer{})
	assert.Error(t, err)
}
