package combat

// ModuleScope is the flag namespace owned by the tracker extensions.
const ModuleScope = "combat-tracker-extensions"

// GroupFlagKey is the flag key that holds a combatant's group tag.
const GroupFlagKey = "groupId"

// ungroupedPrefix marks the synthetic key of an untagged combatant.
const ungroupedPrefix = "__ungrouped__:"

// GroupTagSource resolves the optional group tag of a combatant.
type GroupTagSource interface {
	// GroupTagOf returns the combatant's tag; ok is false when it has none.
	GroupTagOf(c *Combatant) (tag string, ok bool)
}

// FlagTagSource reads the group tag from host flags: the actor's flag wins,
// then the combatant's own flag.
type FlagTagSource struct {
	Scope string
	Key   string
}

// DefaultTagSource returns the FlagTagSource for the tracker's own groupId flag.
func DefaultTagSource() FlagTagSource {
	return FlagTagSource{Scope: ModuleScope, Key: GroupFlagKey}
}

// GroupTagOf implements GroupTagSource.
func (s FlagTagSource) GroupTagOf(c *Combatant) (string, bool) {
	if c == nil {
		return "", false
	}
	if c.Actor != nil {
		if v, ok := c.Actor.Flags.Get(s.Scope, s.Key); ok {
			return v, true
		}
	}
	return c.Flags.Get(s.Scope, s.Key)
}

// TagSources tries each source in order; the first tag reported wins.
type TagSources []GroupTagSource

// GroupTagOf implements GroupTagSource.
func (ts TagSources) GroupTagOf(c *Combatant) (string, bool) {
	for _, s := range ts {
		if tag, ok := s.GroupTagOf(c); ok {
			return tag, true
		}
	}
	return "", false
}

// Group is a set of combatants that share one initiative roll.
type Group struct {
	// Key is the group tag, or a synthetic per-combatant key when Tagged is false.
	Key     string
	Tagged  bool
	Members []*Combatant
}

// Singleton reports whether g is an untagged single combatant.
func (g Group) Singleton() bool {
	return !g.Tagged && len(g.Members) == 1
}

// ResolveGroups partitions combatants by group tag. Untagged combatants each
// form their own group.
//
// Precondition: tags must be non-nil.
// Postcondition: groups are ordered by the first appearance of their key in
// combatants; members keep input order; every combatant is in exactly one group.
func ResolveGroups(combatants []*Combatant, tags GroupTagSource) []Group {
	// Tagged and synthetic keys live in separate indexes so a tag spelled like
	// a synthetic key never merges with an untagged combatant.
	index := map[bool]map[string]int{true: {}, false: {}}
	var groups []Group
	for _, c := range combatants {
		tag, tagged := tags.GroupTagOf(c)
		key := tag
		if !tagged {
			key = ungroupedPrefix + c.ID
		}
		i, ok := index[tagged][key]
		if !ok {
			i = len(groups)
			index[tagged][key] = i
			groups = append(groups, Group{Key: key, Tagged: tagged})
		}
		groups[i].Members = append(groups[i].Members, c)
	}
	return groups
}
