package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MobStats are the base attributes of a blueprint.
type MobStats struct {
	MaxHealth float64 `yaml:"max_health"`
	Damage    float64 `yaml:"damage"`
	Speed     float64 `yaml:"speed"`
}

// MobSpec is one entry of mob_list.yaml. Exactly one of Behavior (a
// built-in behavior name) and Script (a tengo file) is set.
type MobSpec struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Behavior string   `yaml:"behavior"`
	Script   string   `yaml:"script"`
	Stats    MobStats `yaml:"stats"`
	Boss     bool     `yaml:"boss"`
	Minion   bool     `yaml:"minion"`
}

// MobTable holds the parsed mob list in file order.
type MobTable struct {
	specs []MobSpec
	byID  map[string]int
}

// LoadMobTable loads mob blueprints from a YAML file.
func LoadMobTable(path string) (*MobTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mob list: %w", err)
	}
	return ParseMobTable(raw)
}

func ParseMobTable(raw []byte) (*MobTable, error) {
	var file struct {
		Mobs []MobSpec `yaml:"mobs"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse mob list: %w", err)
	}
	t := &MobTable{byID: make(map[string]int, len(file.Mobs))}
	for i, m := range file.Mobs {
		if m.ID == "" {
			return nil, fmt.Errorf("mob list entry %d: missing id", i)
		}
		if _, dup := t.byID[m.ID]; dup {
			return nil, fmt.Errorf("mob %s: listed twice", m.ID)
		}
		if (m.Behavior == "") == (m.Script == "") {
			return nil, fmt.Errorf("mob %s: set exactly one of behavior and script", m.ID)
		}
		if m.Stats.MaxHealth < 0 || m.Stats.Damage < 0 || m.Stats.Speed < 0 {
			return nil, fmt.Errorf("mob %s: negative stats", m.ID)
		}
		if m.Boss && m.Minion {
			return nil, fmt.Errorf("mob %s: cannot be both boss and minion", m.ID)
		}
		t.byID[m.ID] = len(t.specs)
		t.specs = append(t.specs, m)
	}
	return t, nil
}

// Get returns a spec by id.
func (t *MobTable) Get(id string) (MobSpec, bool) {
	i, ok := t.byID[id]
	if !ok {
		return MobSpec{}, false
	}
	return t.specs[i], true
}

// Specs returns all entries in file order.
func (t *MobTable) Specs() []MobSpec {
	return t.specs
}

// Count returns the number of entries.
func (t *MobTable) Count() int {
	return len(t.specs)
}
