package quest

import (
	"sort"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/ledger"
)

// Effects is the aggregate of one player's completed technologies.
type Effects struct {
	// UnitBonus is an additive combat power bonus per unit category.
	UnitBonus map[catalog.UnitCategory]float64
	// Production is an additive yield bonus per resource; AllProduction
	// applies on top of every resource.
	Production    map[catalog.ResourceType]float64
	AllProduction float64
	// ResearchSpeed multiplies research progress. 1.0 means no bonus.
	ResearchSpeed float64
	// Capabilities unlocked, such as advanced unit lines.
	Capabilities map[string]bool
}

// CombatBonus implements the combat resolver's bonus source.
func (e Effects) CombatBonus(cat catalog.UnitCategory) float64 {
	return e.UnitBonus[cat]
}

// ProductionBonus returns the total additive yield bonus for one resource.
func (e Effects) ProductionBonus(rt catalog.ResourceType) float64 {
	return e.AllProduction + e.Production[rt]
}

// HasCapability reports whether a named capability has been unlocked.
func (e Effects) HasCapability(name string) bool {
	return e.Capabilities[name]
}

// completedTechsLocked collects the owner's completed technology names.
// Callers hold t.mu.
func (t *Tracker) completedTechsLocked(owner ledger.PlayerID) map[string]bool {
	done := make(map[string]bool)
	for _, task := range t.tasks {
		if task.OwnerID == owner && task.Kind == KindResearch && task.Status == StatusCompleted {
			done[task.DefinitionID] = true
		}
	}
	return done
}

// CompletedTechnologies lists the owner's finished research, sorted by name.
func (t *Tracker) CompletedTechnologies(owner ledger.PlayerID) []string {
	t.mu.Lock()
	done := t.completedTechsLocked(owner)
	t.mu.Unlock()

	names := make([]string, 0, len(done))
	for name := range done {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EffectsFor folds the owner's completed technologies into one Effects value.
func (t *Tracker) EffectsFor(owner ledger.PlayerID) Effects {
	t.mu.Lock()
	done := t.completedTechsLocked(owner)
	t.mu.Unlock()

	eff := Effects{
		UnitBonus:     make(map[catalog.UnitCategory]float64),
		Production:    make(map[catalog.ResourceType]float64),
		ResearchSpeed: 1.0,
		Capabilities:  make(map[string]bool),
	}
	for name := range done {
		tech, ok := t.catalog.Technology(name)
		if !ok {
			continue
		}
		for _, ef := range tech.Effects {
			switch ef.Kind {
			case catalog.EffectUnitBonus:
				eff.UnitBonus[ef.UnitCategory] += ef.Amount
			case catalog.EffectProduction:
				if ef.Resource == "" {
					eff.AllProduction += ef.Amount
				} else {
					eff.Production[ef.Resource] += ef.Amount
				}
			case catalog.EffectResearchSpeed:
				eff.ResearchSpeed *= 1 + ef.Amount
			case catalog.EffectUnlock:
				eff.Capabilities[ef.Capability] = true
			}
		}
	}
	return eff
}
