package catalog

// UnitCategory groups units for technology bonuses.
type UnitCategory string

const (
	UnitInfantry  UnitCategory = "infantry"
	UnitArmor     UnitCategory = "armor"
	UnitArtillery UnitCategory = "artillery"
	UnitAir       UnitCategory = "air"
	UnitNaval     UnitCategory = "naval"
)

// UnitDefinition is the immutable combat/economic profile of one unit type.
type UnitDefinition struct {
	Name          string       `yaml:"name" json:"name"`
	Category      UnitCategory `yaml:"category" json:"category"`
	Tier          int          `yaml:"tier" json:"tier"`
	Cost          float64      `yaml:"cost" json:"cost"`     // Gold to build one
	Upkeep        float64      `yaml:"upkeep" json:"upkeep"` // Gold per unit per day
	Attack        float64      `yaml:"attack" json:"attack"`
	Defense       float64      `yaml:"defense" json:"defense"`
	Speed         float64      `yaml:"speed" json:"speed"`
	Prerequisites []string     `yaml:"prerequisites" json:"prerequisites"` // Technology names
}

func defaultUnits() []UnitDefinition {
	return []UnitDefinition{
		{Name: "rifleman", Category: UnitInfantry, Tier: 1, Cost: 100, Upkeep: 10, Attack: 5, Defense: 3, Speed: 1},
		{Name: "grenadier", Category: UnitInfantry, Tier: 1, Cost: 75, Upkeep: 7, Attack: 4, Defense: 2, Speed: 1},
		{Name: "sniper", Category: UnitInfantry, Tier: 1, Cost: 120, Upkeep: 12, Attack: 6, Defense: 1, Speed: 1},
		{Name: "special_forces", Category: UnitInfantry, Tier: 2, Cost: 200, Upkeep: 20, Attack: 8, Defense: 6, Speed: 2,
			Prerequisites: []string{"Basic Training"}},
		{Name: "tank", Category: UnitArmor, Tier: 2, Cost: 500, Upkeep: 50, Attack: 15, Defense: 10, Speed: 2,
			Prerequisites: []string{"Armored Warfare"}},
		{Name: "artillery", Category: UnitArtillery, Tier: 1, Cost: 300, Upkeep: 30, Attack: 20, Defense: 2, Speed: 1},
		{Name: "aircraft", Category: UnitAir, Tier: 2, Cost: 800, Upkeep: 80, Attack: 25, Defense: 5, Speed: 5,
			Prerequisites: []string{"Air Superiority"}},
		{Name: "ship", Category: UnitNaval, Tier: 2, Cost: 1000, Upkeep: 100, Attack: 30, Defense: 15, Speed: 3},
	}
}
