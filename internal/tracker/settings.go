package tracker

import (
	"fmt"
	"strings"
	"sync"
)

// Setting keys.
const (
	SettingInitiativeFormula = "initiativeFormula"
	SettingShowReverseButton = "showReverseButton"
)

// DefaultFormula is rolled when the formula setting is missing or blank.
const DefaultFormula = "1d20"

// Scope says who owns a setting's value.
type Scope string

const (
	// ScopeWorld settings are shared by every user and edited by the GM.
	ScopeWorld Scope = "world"
	// ScopeClient settings are per user.
	ScopeClient Scope = "client"
)

// SettingDefinition describes one registered setting.
type SettingDefinition struct {
	Key     string
	Name    string
	Hint    string
	Scope   Scope
	Config  bool // shown in the settings menu
	Default any  // string or bool; its type fixes the setting's type
}

// DefaultSettings returns the settings the tracker actions read.
func DefaultSettings() []SettingDefinition {
	return []SettingDefinition{
		{
			Key:     SettingInitiativeFormula,
			Name:    "Initiative Formula",
			Hint:    "The default formula used when rolling group initiative (default: 1d20). Use any Roll expression.",
			Scope:   ScopeWorld,
			Config:  true,
			Default: DefaultFormula,
		},
		{
			Key:     SettingShowReverseButton,
			Name:    "Show Reverse Button",
			Hint:    "Show a button to reverse initiative order in the Combat Tracker.",
			Scope:   ScopeClient,
			Config:  true,
			Default: true,
		},
	}
}

// Settings is a registry of typed settings with current values.
// Safe for concurrent use.
type Settings struct {
	mu     sync.RWMutex
	defs   map[string]SettingDefinition
	order  []string
	values map[string]any
}

// NewSettings returns a registry holding defs.
//
// Postcondition: returns an error on a duplicate key or an unsupported default type.
func NewSettings(defs ...SettingDefinition) (*Settings, error) {
	s := &Settings{
		defs:   make(map[string]SettingDefinition),
		values: make(map[string]any),
	}
	for _, d := range defs {
		if err := s.Register(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds a setting definition.
func (s *Settings) Register(def SettingDefinition) error {
	if def.Key == "" {
		return fmt.Errorf("settings: key must not be empty")
	}
	switch def.Default.(type) {
	case string, bool:
	default:
		return fmt.Errorf("settings: %q has unsupported default type %T", def.Key, def.Default)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[def.Key]; ok {
		return fmt.Errorf("settings: %q already registered", def.Key)
	}
	s.defs[def.Key] = def
	s.order = append(s.order, def.Key)
	return nil
}

// Set changes a setting's value.
//
// Precondition: key must be registered and value must have the default's type.
func (s *Settings) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[key]
	if !ok {
		return fmt.Errorf("settings: %q is not registered", key)
	}
	var typed bool
	switch def.Default.(type) {
	case string:
		_, typed = value.(string)
	case bool:
		_, typed = value.(bool)
	}
	if !typed {
		return fmt.Errorf("settings: %q expects %T, got %T", key, def.Default, value)
	}
	s.values[key] = value
	return nil
}

// Get returns the current value of key, falling back to its default.
// ok is false when key is not registered.
func (s *Settings) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[key]
	if !ok {
		return nil, false
	}
	if v, ok := s.values[key]; ok {
		return v, true
	}
	return def.Default, true
}

// Definitions returns the registered definitions in registration order.
func (s *Settings) Definitions() []SettingDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SettingDefinition, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.defs[k])
	}
	return out
}

// FormulaSetting returns the configured initiative formula, or DefaultFormula
// when the setting is missing, not a string, or blank.
func FormulaSetting(host HostContext) string {
	v, _ := host.Setting(SettingInitiativeFormula)
	if f, ok := v.(string); ok && strings.TrimSpace(f) != "" {
		return f
	}
	return DefaultFormula
}

// ShowReverseSetting reports whether the reverse action should be shown.
// Defaults to true.
func ShowReverseSetting(host HostContext) bool {
	v, _ := host.Setting(SettingShowReverseButton)
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
