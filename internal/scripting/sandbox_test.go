package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combat-tracker/internal/scripting"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	for _, name := range []string{"os", "io", "debug", "dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_SafeLibsAvailable(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	err := L.DoString(`
		assert(math.floor(2.5) == 2, "math.floor failed")
		assert(string.upper("hello") == "HELLO", "string.upper failed")
	`)
	assert.NoError(t, err)
}

func TestLimit_InstructionLimitExceeded(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	release := scripting.Limit(L, 10)
	defer release()
	assert.Error(t, L.DoString(`while true do end`))
}

func TestLimit_FreshBudgetPerExecution(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	for i := 0; i < 3; i++ {
		release := scripting.Limit(L, 1000)
		require.NoError(t, L.DoString(`local x = 0 for i = 1, 10 do x = x + i end`))
		release()
	}
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 500).Draw(rt, "limit")
		L := scripting.NewSandboxedState()
		defer L.Close()
		release := scripting.Limit(L, limit)
		defer release()
		assert.Error(rt, L.DoString(`while true do end`))
	})
}
