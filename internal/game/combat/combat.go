// Package combat models the combatants of an encounter and the pure
// turn-order transformations applied to them.
package combat

import (
	"fmt"
	"math"
)

// Flags holds namespaced host metadata: scope -> key -> value.
type Flags map[string]map[string]string

// Get returns the flag value for scope and key.
// Postcondition: ok is false when the flag is absent or empty. An empty value
// is an unset tag, so combatants flagged "" roll individually instead of
// sharing one roll.
func (f Flags) Get(scope, key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f[scope][key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Set stores value under scope and key, allocating the scope as needed.
//
// Precondition: f must be non-nil.
func (f Flags) Set(scope, key, value string) {
	m, ok := f[scope]
	if !ok {
		m = make(map[string]string)
		f[scope] = m
	}
	m[key] = value
}

// Actor is the character sheet a combatant represents.
type Actor struct {
	ID    string
	Name  string
	Flags Flags
}

// Combatant represents one participant in an encounter.
type Combatant struct {
	ID   string
	Name string
	// Initiative is nil until rolled. Non-finite values are treated as unset.
	Initiative *float64
	Flags      Flags
	Actor      *Actor
	Hidden     bool
	Defeated   bool
}

// InitiativeValue returns the combatant's initiative and whether it is a finite number.
func (c *Combatant) InitiativeValue() (float64, bool) {
	if c == nil || c.Initiative == nil {
		return 0, false
	}
	v := *c.Initiative
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// HasRolled reports whether the combatant has a finite initiative.
func (c *Combatant) HasRolled() bool {
	_, ok := c.InitiativeValue()
	return ok
}

// InitiativeUpdate is one proposed initiative change keyed by combatant ID.
type InitiativeUpdate struct {
	CombatantID string
	Initiative  float64
}

// Float returns a pointer to v, for building Combatant literals.
func Float(v float64) *float64 { return &v }

// Apply writes updates onto the matching combatants in cs.
//
// Postcondition: returns the IDs in updates with no matching combatant.
func Apply(cs []*Combatant, updates []InitiativeUpdate) []string {
	byID := make(map[string]*Combatant, len(cs))
	for _, c := range cs {
		byID[c.ID] = c
	}
	var missing []string
	for _, u := range updates {
		c, ok := byID[u.CombatantID]
		if !ok {
			missing = append(missing, u.CombatantID)
			continue
		}
		c.Initiative = Float(u.Initiative)
	}
	return missing
}

// Clone returns a deep copy of f.
func (f Flags) Clone() Flags {
	if f == nil {
		return nil
	}
	out := make(Flags, len(f))
	for scope, kv := range f {
		m := make(map[string]string, len(kv))
		for k, v := range kv {
			m[k] = v
		}
		out[scope] = m
	}
	return out
}

// Clone returns a deep copy of c.
func (c *Combatant) Clone() *Combatant {
	if c == nil {
		return nil
	}
	out := *c
	if c.Initiative != nil {
		out.Initiative = Float(*c.Initiative)
	}
	out.Flags = c.Flags.Clone()
	if c.Actor != nil {
		a := *c.Actor
		a.Flags = c.Actor.Flags.Clone()
		out.Actor = &a
	}
	return &out
}

// Encounter is a stored combat: its metadata and ordered combatants.
type Encounter struct {
	ID         string
	Name       string
	Active     bool
	Round      int
	Combatants []*Combatant
}

// Clone returns a deep copy of e.
func (e Encounter) Clone() Encounter {
	out := e
	out.Combatants = make([]*Combatant, len(e.Combatants))
	for i, c := range e.Combatants {
		out.Combatants[i] = c.Clone()
	}
	return out
}

// Validate checks that IDs are present and unique.
func (e Encounter) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("encounter id must not be empty")
	}
	seen := make(map[string]bool, len(e.Combatants))
	for i, c := range e.Combatants {
		if c == nil || c.ID == "" {
			return fmt.Errorf("encounter %s: combatant %d has no id", e.ID, i)
		}
		if seen[c.ID] {
			return fmt.Errorf("encounter %s: duplicate combatant id %q", e.ID, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}
