package combat

import (
	"math"
	"sort"
)

// MaxInitiative returns the largest finite initiative in cs.
// Postcondition: returns 0 when no combatant has a finite initiative.
func MaxInitiative(cs []*Combatant) float64 {
	maxInit := math.Inf(-1)
	for _, c := range cs {
		if v, ok := c.InitiativeValue(); ok && v > maxInit {
			maxInit = v
		}
	}
	if math.IsInf(maxInit, -1) {
		return 0
	}
	return maxInit
}

// ReverseOrder mirrors every initiative around the current maximum.
//
// Postcondition: for each combatant c, updates[i].Initiative + current(c) == maxInit,
// where current is 0 for a missing or non-finite initiative. len(updates) == len(cs),
// in input order.
func ReverseOrder(cs []*Combatant) (maxInit float64, updates []InitiativeUpdate) {
	maxInit = MaxInitiative(cs)
	updates = make([]InitiativeUpdate, 0, len(cs))
	for _, c := range cs {
		cur, _ := c.InitiativeValue()
		updates = append(updates, InitiativeUpdate{CombatantID: c.ID, Initiative: maxInit - cur})
	}
	return maxInit, updates
}

// TurnOrder returns cs sorted for display: highest initiative first, combatants
// without an initiative last, ties broken by name then ID.
//
// Postcondition: cs is not modified.
func TurnOrder(cs []*Combatant) []*Combatant {
	out := make([]*Combatant, len(cs))
	copy(out, cs)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := out[i].InitiativeValue()
		b, bok := out[j].InitiativeValue()
		if aok != bok {
			return aok
		}
		if aok && a != b {
			return a > b
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
