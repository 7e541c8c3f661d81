// Package catalog holds the static game content: resource definitions, unit
// stats, quest templates, and the technology tree. Loaded once at startup and
// immutable for the process lifetime.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the read-only content lookup shared by all engine components.
type Catalog struct {
	Resources    map[ResourceType]ResourceDefinition
	Units        map[string]UnitDefinition
	Quests       map[string]QuestDefinition
	Technologies map[string]Technology
}

// fileOverrides is the YAML shape of an optional balance override file.
// Any section present replaces the built-in table wholesale.
type fileOverrides struct {
	Resources    []ResourceDefinition `yaml:"resources"`
	Units        []UnitDefinition     `yaml:"units"`
	Quests       []QuestDefinition    `yaml:"quests"`
	Technologies []Technology         `yaml:"technologies"`
}

// Default builds the catalog from the compiled-in content tables.
func Default() (*Catalog, error) {
	return build(defaultResources(), defaultUnits(), defaultQuests(), defaultTechnologies())
}

// Load builds the catalog, applying overrides from the YAML file at path.
// An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	resources := defaultResources()
	units := defaultUnits()
	quests := defaultQuests()
	technologies := defaultTechnologies()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog overrides: %w", err)
		}
		var ov fileOverrides
		if err := yaml.Unmarshal(data, &ov); err != nil {
			return nil, fmt.Errorf("parse catalog overrides: %w", err)
		}
		if len(ov.Resources) > 0 {
			resources = ov.Resources
		}
		if len(ov.Units) > 0 {
			units = ov.Units
		}
		if len(ov.Quests) > 0 {
			quests = ov.Quests
		}
		if len(ov.Technologies) > 0 {
			technologies = ov.Technologies
		}
	}

	return build(resources, units, quests, technologies)
}

func build(resources []ResourceDefinition, units []UnitDefinition,
	quests []QuestDefinition, technologies []Technology) (*Catalog, error) {

	c := &Catalog{
		Resources:    make(map[ResourceType]ResourceDefinition, len(resources)),
		Units:        make(map[string]UnitDefinition, len(units)),
		Quests:       make(map[string]QuestDefinition, len(quests)),
		Technologies: make(map[string]Technology, len(technologies)),
	}
	for _, r := range resources {
		c.Resources[r.Type] = r
	}
	for _, u := range units {
		c.Units[u.Name] = u
	}
	for _, q := range quests {
		c.Quests[q.ID] = q
	}
	for _, t := range technologies {
		c.Technologies[t.Name] = t
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for rt, r := range c.Resources {
		if r.BaseValue <= 0 {
			return fmt.Errorf("resource %s: base value must be positive", rt)
		}
		if r.Volatility < 0 || r.Volatility > 1 {
			return fmt.Errorf("resource %s: volatility %.2f outside [0,1]", rt, r.Volatility)
		}
		if r.MinPrice <= 0 || r.MinPrice >= r.MaxPrice {
			return fmt.Errorf("resource %s: need 0 < min price < max price, got [%.2f, %.2f]",
				rt, r.MinPrice, r.MaxPrice)
		}
		if r.DecayRate < 0 {
			return fmt.Errorf("resource %s: negative decay rate", rt)
		}
	}
	for name, u := range c.Units {
		if u.Cost <= 0 || u.Upkeep < 0 {
			return fmt.Errorf("unit %s: invalid cost/upkeep", name)
		}
		for _, prereq := range u.Prerequisites {
			if _, ok := c.Technologies[prereq]; !ok {
				return fmt.Errorf("unit %s: unknown prerequisite %q", name, prereq)
			}
		}
	}
	for id, q := range c.Quests {
		if q.Duration <= 0 {
			return fmt.Errorf("quest %s: non-positive duration", id)
		}
		for unit := range q.Requirements.Units {
			if _, ok := c.Units[unit]; !ok {
				return fmt.Errorf("quest %s: unknown required unit %q", id, unit)
			}
		}
		for rt := range q.Rewards.Materials {
			if _, ok := c.Resources[rt]; !ok {
				return fmt.Errorf("quest %s: unknown reward resource %q", id, rt)
			}
		}
	}
	for name, t := range c.Technologies {
		for _, prereq := range t.Prerequisites {
			if _, ok := c.Technologies[prereq]; !ok {
				return fmt.Errorf("technology %s: unknown prerequisite %q", name, prereq)
			}
		}
	}
	return nil
}

// Resource returns the definition for a resource type.
func (c *Catalog) Resource(rt ResourceType) (ResourceDefinition, bool) {
	r, ok := c.Resources[rt]
	return r, ok
}

// Unit returns the definition for a unit name.
func (c *Catalog) Unit(name string) (UnitDefinition, bool) {
	u, ok := c.Units[name]
	return u, ok
}

// Quest returns the definition for a quest ID.
func (c *Catalog) Quest(id string) (QuestDefinition, bool) {
	q, ok := c.Quests[id]
	return q, ok
}

// Technology returns a technology tree node by name.
func (c *Catalog) Technology(name string) (Technology, bool) {
	t, ok := c.Technologies[name]
	return t, ok
}
