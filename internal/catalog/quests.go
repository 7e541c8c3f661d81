package catalog

import "time"

// QuestKind is the archetype of a quest.
type QuestKind string

const (
	QuestRecon    QuestKind = "recon"
	QuestSabotage QuestKind = "sabotage"
	QuestEscort   QuestKind = "escort"
	QuestInvasion QuestKind = "invasion"
	QuestResearch QuestKind = "research"
)

// QuestRewards is paid out in full when a quest completes.
type QuestRewards struct {
	Gold       float64                  `yaml:"gold" json:"gold"`
	Experience int                      `yaml:"experience" json:"experience"`
	Materials  map[ResourceType]float64 `yaml:"materials" json:"materials,omitempty"`
}

// QuestRequirements gate quest acceptance.
type QuestRequirements struct {
	Level int            `yaml:"level" json:"level"`
	Units map[string]int `yaml:"units" json:"units,omitempty"` // unit name -> minimum count
}

// QuestDefinition is an immutable quest template.
type QuestDefinition struct {
	ID           string            `yaml:"id" json:"id"`
	Kind         QuestKind         `yaml:"kind" json:"kind"`
	Title        string            `yaml:"title" json:"title"`
	Description  string            `yaml:"description" json:"description"`
	Difficulty   int               `yaml:"difficulty" json:"difficulty"` // 1-5
	Duration     time.Duration     `yaml:"duration" json:"duration"`
	Rewards      QuestRewards      `yaml:"rewards" json:"rewards"`
	Requirements QuestRequirements `yaml:"requirements" json:"requirements"`
}

func defaultQuests() []QuestDefinition {
	return []QuestDefinition{
		{
			ID: "recon-1", Kind: QuestRecon,
			Title:       "Scout Enemy Territory",
			Description: "Scout the enemy territory and gather valuable intelligence about their forces.",
			Difficulty:  1, Duration: 30 * time.Minute,
			Rewards:      QuestRewards{Gold: 200, Experience: 50},
			Requirements: QuestRequirements{Level: 1},
		},
		{
			ID: "recon-2", Kind: QuestRecon,
			Title:       "Gather Intelligence",
			Description: "Infiltrate enemy lines and report back with tactical information.",
			Difficulty:  2, Duration: 2 * time.Hour,
			Rewards:      QuestRewards{Gold: 400, Experience: 100},
			Requirements: QuestRequirements{Level: 1},
		},
		{
			ID: "escort-1", Kind: QuestEscort,
			Title:       "Escort Supply Convoy",
			Description: "Escort a valuable supply convoy through dangerous territory.",
			Difficulty:  1, Duration: 40 * time.Minute,
			Rewards:      QuestRewards{Gold: 300, Experience: 75},
			Requirements: QuestRequirements{Level: 2},
		},
		{
			ID: "sabotage-1", Kind: QuestSabotage,
			Title:       "Sabotage Enemy Supply Lines",
			Description: "Infiltrate enemy territory and sabotage their supply lines.",
			Difficulty:  2, Duration: time.Hour,
			Rewards:      QuestRewards{Gold: 500, Experience: 100, Materials: map[ResourceType]float64{ResourceIron: 50}},
			Requirements: QuestRequirements{Level: 3},
		},
		{
			ID: "sabotage-2", Kind: QuestSabotage,
			Title:       "Disrupt Enemy Communications",
			Description: "Disrupt enemy communications to create confusion.",
			Difficulty:  3, Duration: 4 * time.Hour,
			Rewards:      QuestRewards{Gold: 750, Experience: 150, Materials: map[ResourceType]float64{ResourceOil: 60}},
			Requirements: QuestRequirements{Level: 4, Units: map[string]int{"rifleman": 5}},
		},
		{
			ID: "invasion-1", Kind: QuestInvasion,
			Title:       "Invade Enemy Province",
			Description: "Lead an invasion force to capture enemy territory.",
			Difficulty:  4, Duration: 8 * time.Hour,
			Rewards:      QuestRewards{Gold: 1000, Experience: 200, Materials: map[ResourceType]float64{ResourceAmmunition: 120}},
			Requirements: QuestRequirements{Level: 5, Units: map[string]int{"rifleman": 10, "tank": 2}},
		},
		{
			ID: "research-1", Kind: QuestResearch,
			Title:       "Conduct Scientific Experiment",
			Description: "Conduct a scientific experiment with potential military applications.",
			Difficulty:  2, Duration: 3 * time.Hour,
			Rewards:      QuestRewards{Gold: 800, Experience: 150, Materials: map[ResourceType]float64{ResourceKnowledge: 40}},
			Requirements: QuestRequirements{Level: 3},
		},
	}
}
