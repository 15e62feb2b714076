package importer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// EncounterFile is the on-disk YAML schema for one or more encounters.
type EncounterFile struct {
	Actors     []ActorSpec     `yaml:"actors,omitempty"`
	Encounters []EncounterSpec `yaml:"encounters"`
}

// ActorSpec describes a character sheet shared by combatants.
type ActorSpec struct {
	ID    string                       `yaml:"id"`
	Name  string                       `yaml:"name"`
	Group string                       `yaml:"group,omitempty"`
	Flags map[string]map[string]string `yaml:"flags,omitempty"`
}

// EncounterSpec describes an encounter and its combatants in turn order.
type EncounterSpec struct {
	ID         string          `yaml:"id,omitempty"`
	Name       string          `yaml:"name"`
	Active     bool            `yaml:"active,omitempty"`
	Round      int             `yaml:"round,omitempty"`
	Combatants []CombatantSpec `yaml:"combatants"`
}

// CombatantSpec describes one combatant. Actor names an ActorSpec ID.
type CombatantSpec struct {
	ID         string                       `yaml:"id,omitempty"`
	Name       string                       `yaml:"name"`
	Actor      string                       `yaml:"actor,omitempty"`
	Initiative *float64                     `yaml:"initiative,omitempty"`
	Group      string                       `yaml:"group,omitempty"`
	Hidden     bool                         `yaml:"hidden,omitempty"`
	Defeated   bool                         `yaml:"defeated,omitempty"`
	Flags      map[string]map[string]string `yaml:"flags,omitempty"`
}

// Source loads encounter files from a path.
//
// Postcondition: returns at least one EncounterFile, or a non-nil error.
type Source interface {
	Load(path string) ([]*EncounterFile, error)
}

// YAMLSource reads a single YAML file, or every *.yaml and *.yml file in a
// directory in lexical order.
type YAMLSource struct{}

// NewYAMLSource returns a YAMLSource.
func NewYAMLSource() *YAMLSource { return &YAMLSource{} }

// Load implements Source.
func (YAMLSource) Load(path string) ([]*EncounterFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	paths := []string{path}
	if info.IsDir() {
		paths, err = yamlFiles(path)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no encounter files in %s", path)
		}
	}

	out := make([]*EncounterFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		f, err := ParseEncounterFile(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseEncounterFile decodes YAML bytes, rejecting unknown fields.
func ParseEncounterFile(data []byte) (*EncounterFile, error) {
	var f EncounterFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if len(f.Encounters) == 0 {
		return nil, fmt.Errorf("file defines no encounters")
	}
	return &f, nil
}

func yamlFiles(dir string) ([]string, error) {
	var out []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		out = append(out, m...)
	}
	sort.Strings(out)
	return out, nil
}
