package catalog

// EffectKind tags a technology effect payload.
type EffectKind string

const (
	// EffectUnitBonus boosts attack and defense of one unit category.
	EffectUnitBonus EffectKind = "unit_bonus"
	// EffectProduction boosts daily income of one resource (or all when Resource is empty).
	EffectProduction EffectKind = "production"
	// EffectResearchSpeed boosts research progress rate.
	EffectResearchSpeed EffectKind = "research_speed"
	// EffectUnlock grants a named capability.
	EffectUnlock EffectKind = "unlock"
)

// Effect is a tagged variant: Kind selects which payload fields apply.
// Replaces the original string-keyed effect maps so application is exhaustive.
type Effect struct {
	Kind         EffectKind   `yaml:"kind" json:"kind"`
	UnitCategory UnitCategory `yaml:"unit_category" json:"unit_category,omitempty"` // unit_bonus
	Resource     ResourceType `yaml:"resource" json:"resource,omitempty"`           // production; empty = all
	Amount       float64      `yaml:"amount" json:"amount,omitempty"`               // fractional bonus
	Capability   string       `yaml:"capability" json:"capability,omitempty"`       // unlock
}

// TechBranch groups technologies.
type TechBranch string

const (
	BranchMilitary TechBranch = "military"
	BranchEconomic TechBranch = "economic"
	BranchResearch TechBranch = "research"
)

// Technology is an immutable node of the research tree.
type Technology struct {
	Name          string     `yaml:"name" json:"name"`
	Branch        TechBranch `yaml:"branch" json:"branch"`
	Tier          int        `yaml:"tier" json:"tier"`
	Description   string     `yaml:"description" json:"description"`
	Cost          float64    `yaml:"cost" json:"cost"` // Research points
	Prerequisites []string   `yaml:"prerequisites" json:"prerequisites"`
	Effects       []Effect   `yaml:"effects" json:"effects"`
}

func defaultTechnologies() []Technology {
	return []Technology{
		// Military branch.
		{Name: "Basic Training", Branch: BranchMilitary, Tier: 1, Cost: 100,
			Description: "Improves infantry combat effectiveness by 20%",
			Effects:     []Effect{{Kind: EffectUnitBonus, UnitCategory: UnitInfantry, Amount: 0.2}}},
		{Name: "Tactical Warfare", Branch: BranchMilitary, Tier: 1, Cost: 150,
			Description: "Unlocks advanced combat strategies",
			Effects:     []Effect{{Kind: EffectUnitBonus, UnitCategory: UnitArtillery, Amount: 0.15}}},
		{Name: "Armored Warfare", Branch: BranchMilitary, Tier: 2, Cost: 300,
			Description:   "Improves tank effectiveness by 25%",
			Prerequisites: []string{"Basic Training"},
			Effects:       []Effect{{Kind: EffectUnitBonus, UnitCategory: UnitArmor, Amount: 0.25}}},
		{Name: "Air Superiority", Branch: BranchMilitary, Tier: 2, Cost: 400,
			Description:   "Improves aircraft effectiveness by 30%",
			Prerequisites: []string{"Tactical Warfare"},
			Effects:       []Effect{{Kind: EffectUnitBonus, UnitCategory: UnitAir, Amount: 0.3}}},
		{Name: "Nuclear Weapons", Branch: BranchMilitary, Tier: 3, Cost: 1000,
			Description:   "Unlocks nuclear weapons and devastating attacks",
			Prerequisites: []string{"Armored Warfare", "Air Superiority"},
			Effects: []Effect{
				{Kind: EffectUnlock, Capability: "nuclear"},
				{Kind: EffectUnitBonus, UnitCategory: UnitArtillery, Amount: 0.5},
			}},

		// Economic branch.
		{Name: "Steel Production", Branch: BranchEconomic, Tier: 1, Cost: 120,
			Description: "Increases iron production by 30%",
			Effects:     []Effect{{Kind: EffectProduction, Resource: ResourceIron, Amount: 0.3}}},
		{Name: "Agricultural Revolution", Branch: BranchEconomic, Tier: 1, Cost: 100,
			Description: "Increases food production by 40%",
			Effects:     []Effect{{Kind: EffectProduction, Resource: ResourceFood, Amount: 0.4}}},
		{Name: "Industrial Revolution", Branch: BranchEconomic, Tier: 2, Cost: 500,
			Description:   "Massive production boost for all materials",
			Prerequisites: []string{"Steel Production"},
			Effects:       []Effect{{Kind: EffectProduction, Amount: 0.5}}},
		{Name: "Oil Refining", Branch: BranchEconomic, Tier: 2, Cost: 300,
			Description:   "Improves oil processing and efficiency",
			Prerequisites: []string{"Agricultural Revolution"},
			Effects:       []Effect{{Kind: EffectProduction, Resource: ResourceOil, Amount: 0.4}}},
		{Name: "Advanced Manufacturing", Branch: BranchEconomic, Tier: 3, Cost: 800,
			Description:   "Revolutionary production methods",
			Prerequisites: []string{"Industrial Revolution", "Oil Refining"},
			Effects:       []Effect{{Kind: EffectProduction, Amount: 0.8}}},

		// Research branch.
		{Name: "Scientific Method", Branch: BranchResearch, Tier: 1, Cost: 150,
			Description: "Increases research speed by 25%",
			Effects:     []Effect{{Kind: EffectResearchSpeed, Amount: 0.25}}},
		{Name: "Laboratory Equipment", Branch: BranchResearch, Tier: 1, Cost: 200,
			Description: "Improves research efficiency",
			Effects:     []Effect{{Kind: EffectResearchSpeed, Amount: 0.3}}},
		{Name: "Computer Technology", Branch: BranchResearch, Tier: 2, Cost: 600,
			Description:   "Revolutionary computing power for research",
			Prerequisites: []string{"Laboratory Equipment"},
			Effects:       []Effect{{Kind: EffectResearchSpeed, Amount: 0.5}}},
		{Name: "Artificial Intelligence", Branch: BranchResearch, Tier: 3, Cost: 1200,
			Description:   "AI-powered research and development",
			Prerequisites: []string{"Scientific Method", "Computer Technology"},
			Effects: []Effect{
				{Kind: EffectResearchSpeed, Amount: 1.0},
				{Kind: EffectUnlock, Capability: "ai"},
			}},
	}
}
