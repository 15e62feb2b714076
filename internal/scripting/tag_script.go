package scripting

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
)

// TagHook is the Lua global a group-tag script must define.
const TagHook = "group_tag"

// TagScript resolves group tags by calling a Lua hook:
//
//	function group_tag(c) -- c.id, c.name, c.initiative, c.flags, c.actor
//	  return "wolves"     -- any non-empty string is the tag; nil means none
//	end
//
// TagScript is safe for concurrent use; calls into the VM are serialized.
type TagScript struct {
	mu     sync.Mutex
	L      *lua.LState
	name   string
	limit  int
	logger *zap.Logger
}

// LoadTagScript reads path and compiles it as a TagScript.
//
// Precondition: path must be a readable Lua file.
func LoadTagScript(path string, instLimit int, logger *zap.Logger) (*TagScript, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return NewTagScript(path, string(src), instLimit, logger)
}

// NewTagScript executes src in a fresh sandbox.
//
// Postcondition: returns an error if src fails to run or does not define group_tag.
func NewTagScript(name, src string, instLimit int, logger *zap.Logger) (*TagScript, error) {
	L := NewSandboxedState()
	release := Limit(L, instLimit)
	err := L.DoString(src)
	release()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	if fn, ok := L.GetGlobal(TagHook).(*lua.LFunction); !ok || fn == nil {
		L.Close()
		return nil, fmt.Errorf("scripting: %q does not define function %s", name, TagHook)
	}
	return &TagScript{L: L, name: name, limit: instLimit, logger: logger}, nil
}

// GroupTagOf implements combat.GroupTagSource. Lua runtime errors are logged
// at Warn level and treated as "no tag".
func (s *TagScript) GroupTagOf(c *combat.Combatant) (string, bool) {
	if c == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	release := Limit(s.L, s.limit)
	defer release()

	err := s.L.CallByParam(lua.P{
		Fn:      s.L.GetGlobal(TagHook),
		NRet:    1,
		Protect: true,
	}, combatantTable(s.L, c))
	if err != nil {
		s.logger.Warn("scripting: Lua runtime error",
			zap.String("script", s.name),
			zap.String("hook", TagHook),
			zap.String("combatant", c.ID),
			zap.Error(err),
		)
		return "", false
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)

	str, ok := ret.(lua.LString)
	if !ok {
		return "", false
	}
	tag := strings.TrimSpace(string(str))
	return tag, tag != ""
}

// Close releases the VM.
func (s *TagScript) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}

func combatantTable(L *lua.LState, c *combat.Combatant) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(c.ID))
	t.RawSetString("name", lua.LString(c.Name))
	if v, ok := c.InitiativeValue(); ok {
		t.RawSetString("initiative", lua.LNumber(v))
	}
	t.RawSetString("hidden", lua.LBool(c.Hidden))
	t.RawSetString("defeated", lua.LBool(c.Defeated))
	t.RawSetString("flags", flagsTable(L, c.Flags))
	if c.Actor != nil {
		a := L.NewTable()
		a.RawSetString("id", lua.LString(c.Actor.ID))
		a.RawSetString("name", lua.LString(c.Actor.Name))
		a.RawSetString("flags", flagsTable(L, c.Actor.Flags))
		t.RawSetString("actor", a)
	}
	return t
}

func flagsTable(L *lua.LState, f combat.Flags) *lua.LTable {
	t := L.NewTable()
	scopes := make([]string, 0, len(f))
	for scope := range f {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	for _, scope := range scopes {
		inner := L.NewTable()
		for k, v := range f[scope] {
			inner.RawSetString(k, lua.LString(v))
		}
		t.RawSetString(scope, inner)
	}
	return t
}
