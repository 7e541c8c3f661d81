package catalog

// ResourceType identifies a tradable resource.
type ResourceType string

const (
	ResourceGold            ResourceType = "gold"
	ResourceFood            ResourceType = "food"
	ResourceWater           ResourceType = "water"
	ResourceOil             ResourceType = "oil"
	ResourceIron            ResourceType = "iron"
	ResourceEnergy          ResourceType = "energy"
	ResourceMaterials       ResourceType = "materials"
	ResourcePopulation      ResourceType = "population"
	ResourceManpower        ResourceType = "manpower"
	ResourceKnowledge       ResourceType = "knowledge"
	ResourceFuel            ResourceType = "fuel"
	ResourceAmmunition      ResourceType = "ammunition"
	ResourceMedicalSupplies ResourceType = "medical_supplies"
	ResourceTechnology      ResourceType = "technology"
	ResourceInfluence       ResourceType = "influence"
)

// ResourceCategory groups resources for display and event targeting.
type ResourceCategory string

const (
	CategoryBasic      ResourceCategory = "basic"
	CategoryIndustrial ResourceCategory = "industrial"
	CategoryHuman      ResourceCategory = "human"
	CategoryMilitary   ResourceCategory = "military"
	CategoryAdvanced   ResourceCategory = "advanced"
)

// ResourceDefinition is the immutable economic profile of one resource type.
type ResourceDefinition struct {
	Type        ResourceType     `yaml:"type" json:"type"`
	Category    ResourceCategory `yaml:"category" json:"category"`
	Name        string           `yaml:"name" json:"name"`
	Unit        string           `yaml:"unit" json:"unit"`
	BaseValue   float64          `yaml:"base_value" json:"base_value"`     // Value in gold
	Volatility  float64          `yaml:"volatility" json:"volatility"`     // 0-1
	Rarity      float64          `yaml:"rarity" json:"rarity"`             // 0-1
	DecayRate   float64          `yaml:"decay_rate" json:"decay_rate"`     // Fraction lost per hour
	StorageCost float64          `yaml:"storage_cost" json:"storage_cost"` // Gold per unit per hour
	MinPrice    float64          `yaml:"min_price" json:"min_price"`
	MaxPrice    float64          `yaml:"max_price" json:"max_price"`
}

func defaultResources() []ResourceDefinition {
	return []ResourceDefinition{
		{Type: ResourceGold, Category: CategoryBasic, Name: "Gold", Unit: "coins",
			BaseValue: 1.0, Volatility: 0.1, Rarity: 0.0, DecayRate: 0.0, StorageCost: 0.0,
			MinPrice: 0.8, MaxPrice: 1.2},
		{Type: ResourceFood, Category: CategoryBasic, Name: "Food", Unit: "tons",
			BaseValue: 0.5, Volatility: 0.3, Rarity: 0.1, DecayRate: 0.05, StorageCost: 0.01,
			MinPrice: 0.2, MaxPrice: 1.0},
		{Type: ResourceWater, Category: CategoryBasic, Name: "Water", Unit: "liters",
			BaseValue: 0.3, Volatility: 0.4, Rarity: 0.2, DecayRate: 0.0, StorageCost: 0.005,
			MinPrice: 0.1, MaxPrice: 0.8},
		{Type: ResourceOil, Category: CategoryIndustrial, Name: "Oil", Unit: "barrels",
			BaseValue: 2.0, Volatility: 0.5, Rarity: 0.3, DecayRate: 0.0, StorageCost: 0.05,
			MinPrice: 1.0, MaxPrice: 4.0},
		{Type: ResourceIron, Category: CategoryIndustrial, Name: "Iron", Unit: "tons",
			BaseValue: 1.5, Volatility: 0.2, Rarity: 0.1, DecayRate: 0.01, StorageCost: 0.02,
			MinPrice: 1.0, MaxPrice: 2.5},
		{Type: ResourceEnergy, Category: CategoryIndustrial, Name: "Energy", Unit: "MWh",
			BaseValue: 1.2, Volatility: 0.3, Rarity: 0.2, DecayRate: 0.1, StorageCost: 0.03,
			MinPrice: 0.5, MaxPrice: 2.0},
		{Type: ResourceMaterials, Category: CategoryIndustrial, Name: "Materials", Unit: "units",
			BaseValue: 0.8, Volatility: 0.25, Rarity: 0.05, DecayRate: 0.02, StorageCost: 0.01,
			MinPrice: 0.4, MaxPrice: 1.5},
		{Type: ResourcePopulation, Category: CategoryHuman, Name: "Population", Unit: "people",
			BaseValue: 10.0, Volatility: 0.1, Rarity: 0.0, DecayRate: 0.001, StorageCost: 0.1,
			MinPrice: 5.0, MaxPrice: 20.0},
		{Type: ResourceManpower, Category: CategoryHuman, Name: "Manpower", Unit: "personnel",
			BaseValue: 15.0, Volatility: 0.2, Rarity: 0.2, DecayRate: 0.005, StorageCost: 0.15,
			MinPrice: 8.0, MaxPrice: 30.0},
		{Type: ResourceKnowledge, Category: CategoryHuman, Name: "Knowledge", Unit: "points",
			BaseValue: 25.0, Volatility: 0.15, Rarity: 0.4, DecayRate: 0.0, StorageCost: 0.0,
			MinPrice: 15.0, MaxPrice: 50.0},
		{Type: ResourceFuel, Category: CategoryMilitary, Name: "Military Fuel", Unit: "gallons",
			BaseValue: 3.0, Volatility: 0.4, Rarity: 0.3, DecayRate: 0.02, StorageCost: 0.08,
			MinPrice: 1.5, MaxPrice: 6.0},
		{Type: ResourceAmmunition, Category: CategoryMilitary, Name: "Ammunition", Unit: "rounds",
			BaseValue: 5.0, Volatility: 0.3, Rarity: 0.4, DecayRate: 0.0, StorageCost: 0.1,
			MinPrice: 2.5, MaxPrice: 10.0},
		{Type: ResourceMedicalSupplies, Category: CategoryMilitary, Name: "Medical Supplies", Unit: "units",
			BaseValue: 8.0, Volatility: 0.2, Rarity: 0.3, DecayRate: 0.01, StorageCost: 0.05,
			MinPrice: 4.0, MaxPrice: 15.0},
		{Type: ResourceTechnology, Category: CategoryAdvanced, Name: "Technology", Unit: "points",
			BaseValue: 50.0, Volatility: 0.1, Rarity: 0.6, DecayRate: 0.0, StorageCost: 0.0,
			MinPrice: 30.0, MaxPrice: 100.0},
		{Type: ResourceInfluence, Category: CategoryAdvanced, Name: "Influence", Unit: "points",
			BaseValue: 20.0, Volatility: 0.2, Rarity: 0.5, DecayRate: 0.005, StorageCost: 0.0,
			MinPrice: 10.0, MaxPrice: 40.0},
	}
}
