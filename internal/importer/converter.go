package importer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/combat-tracker/internal/game/combat"
)

// IDFunc generates identifiers for encounters and combatants that lack one.
type IDFunc func() string

// NewUUID returns a random UUID string.
func NewUUID() string { return uuid.NewString() }

// Converter turns parsed files into encounters.
type Converter struct {
	// Scope and Key locate the group flag written for ActorSpec.Group and
	// CombatantSpec.Group.
	Scope string
	Key   string
	NewID IDFunc
}

// NewConverter returns a Converter writing group tags under scope and key.
func NewConverter(scope, key string) *Converter {
	return &Converter{Scope: scope, Key: key, NewID: NewUUID}
}

// Convert resolves actor references and fills missing IDs.
//
// Precondition: every CombatantSpec.Actor must name an ActorSpec in f.
// Postcondition: every returned encounter passes combat.Encounter.Validate.
func (cv *Converter) Convert(f *EncounterFile) ([]combat.Encounter, error) {
	actors := make(map[string]*combat.Actor, len(f.Actors))
	for _, a := range f.Actors {
		if a.ID == "" {
			return nil, fmt.Errorf("actor %q has no id", a.Name)
		}
		if _, dup := actors[a.ID]; dup {
			return nil, fmt.Errorf("duplicate actor id %q", a.ID)
		}
		actors[a.ID] = &combat.Actor{
			ID:    a.ID,
			Name:  a.Name,
			Flags: cv.flags(a.Flags, a.Group),
		}
	}

	out := make([]combat.Encounter, 0, len(f.Encounters))
	for _, es := range f.Encounters {
		enc := combat.Encounter{
			ID:     es.ID,
			Name:   es.Name,
			Active: es.Active,
			Round:  es.Round,
		}
		if enc.ID == "" {
			enc.ID = cv.NewID()
		}
		for _, cs := range es.Combatants {
			c := &combat.Combatant{
				ID:         cs.ID,
				Name:       cs.Name,
				Initiative: cs.Initiative,
				Hidden:     cs.Hidden,
				Defeated:   cs.Defeated,
				Flags:      cv.flags(cs.Flags, cs.Group),
			}
			if c.ID == "" {
				c.ID = cv.NewID()
			}
			if cs.Actor != "" {
				a, ok := actors[cs.Actor]
				if !ok {
					return nil, fmt.Errorf("encounter %q: combatant %q references unknown actor %q", enc.Name, cs.Name, cs.Actor)
				}
				c.Actor = a
			}
			enc.Combatants = append(enc.Combatants, c)
		}
		if err := enc.Validate(); err != nil {
			return nil, fmt.Errorf("encounter %q: %w", enc.Name, err)
		}
		out = append(out, enc)
	}
	return out, nil
}

func (cv *Converter) flags(raw map[string]map[string]string, group string) combat.Flags {
	if len(raw) == 0 && group == "" {
		return nil
	}
	f := combat.Flags(raw).Clone()
	if f == nil {
		f = combat.Flags{}
	}
	if group != "" {
		f.Set(cv.Scope, cv.Key, group)
	}
	return f
}
