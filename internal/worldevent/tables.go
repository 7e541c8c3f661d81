package worldevent

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/warfront/internal/catalog"
)

// template holds the flavor pool for one event category.
type template struct {
	titles       []string
	descriptions []string
	categories   []catalog.ResourceCategory // which resource categories can be hit
	moraleRange  [2]float64                 // points per morale pass
}

var templates = map[Category]template{
	CategoryEconomic: {
		titles: []string{
			"Economic Boom", "Market Crash", "Trade Embargo",
			"Resource Discovery", "Inflation Crisis", "Economic Sanctions",
		},
		descriptions: []string{
			"A period of economic prosperity increases production across the world.",
			"A sudden market crash affects global trade and prices.",
			"A major trade embargo disrupts international commerce.",
			"New resource deposits have been discovered, boosting production.",
			"Rapid inflation affects the global economy.",
			"Economic sanctions are imposed, affecting trade relations.",
		},
		categories:  []catalog.ResourceCategory{catalog.CategoryBasic, catalog.CategoryIndustrial},
		moraleRange: [2]float64{0, 0},
	},
	CategoryMilitary: {
		titles: []string{
			"Arms Race", "Peace Treaty", "Military Coup",
			"Weapons Development", "Defense Pact", "War Declaration",
		},
		descriptions: []string{
			"An arms race begins, increasing military production.",
			"A major peace treaty is signed, reducing tensions.",
			"A military coup destabilizes a region.",
			"Breakthrough in weapons technology is achieved.",
			"A new defense pact is formed between nations.",
			"War is declared between major powers.",
		},
		categories:  []catalog.ResourceCategory{catalog.CategoryMilitary, catalog.CategoryIndustrial},
		moraleRange: [2]float64{-3, 0},
	},
	CategoryNatural: {
		titles: []string{
			"Hurricane", "Drought", "Earthquake",
			"Flood", "Volcanic Eruption", "Pandemic",
		},
		descriptions: []string{
			"A powerful hurricane devastates coastal regions.",
			"Severe drought affects agricultural production.",
			"A major earthquake causes widespread damage.",
			"Flooding disrupts transportation and production.",
			"A volcanic eruption affects global climate.",
			"A pandemic spreads across the world.",
		},
		categories:  []catalog.ResourceCategory{catalog.CategoryBasic, catalog.CategoryHuman},
		moraleRange: [2]float64{-2, 0},
	},
	CategoryPolitical: {
		titles: []string{
			"Election", "Revolution", "Alliance Formation",
			"Diplomatic Crisis", "Government Change", "International Summit",
		},
		descriptions: []string{
			"A major election changes the political landscape.",
			"A revolution overthrows the government.",
			"A new alliance is formed between nations.",
			"A diplomatic crisis threatens international relations.",
			"A change in government affects policies.",
			"An international summit addresses global issues.",
		},
		categories:  []catalog.ResourceCategory{catalog.CategoryAdvanced, catalog.CategoryHuman},
		moraleRange: [2]float64{0, 3},
	},
}

var categoryOrder = []Category{CategoryEconomic, CategoryMilitary, CategoryNatural, CategoryPolitical}

// generate draws one event from the templates. Callers hold g.mu.
func (g *Generator) generate(now time.Time) Event {
	cat := categoryOrder[g.rng.Intn(len(categoryOrder))]
	tmpl := templates[cat]

	idx := g.rng.Intn(len(tmpl.titles))
	intensity := 0.2 + g.rng.Float64()*0.8
	impact := -0.3 + g.rng.Float64()*0.6
	duration := g.cfg.MinDuration +
		time.Duration(g.rng.Int63n(int64(g.cfg.MaxDuration-g.cfg.MinDuration)+1))

	moraleLo, moraleHi := tmpl.moraleRange[0], tmpl.moraleRange[1]
	morale := moraleLo + g.rng.Float64()*(moraleHi-moraleLo)

	return Event{
		ID:                uuid.NewString(),
		Category:          cat,
		Title:             tmpl.titles[idx],
		Description:       tmpl.descriptions[idx],
		Severity:          severityFor(intensity),
		AffectedResources: g.pickResources(tmpl.categories),
		AffectedRegions:   g.pickRegions(3),
		Impact:            impact,
		Intensity:         intensity,
		MoraleDelta:       morale,
		CreatedAt:         now,
		ExpiresAt:         now.Add(duration),
	}
}

// pickResources chooses 1-3 resources from the allowed categories.
func (g *Generator) pickResources(allowed []catalog.ResourceCategory) []catalog.ResourceType {
	var pool []catalog.ResourceType
	for rt, def := range g.catalog.Resources {
		for _, c := range allowed {
			if def.Category == c {
				pool = append(pool, rt)
				break
			}
		}
	}
	if len(pool) == 0 {
		return nil
	}
	// Map iteration order is random but not seeded; sort for determinism.
	sortResources(pool)

	count := 1 + g.rng.Intn(3)
	if count > len(pool) {
		count = len(pool)
	}
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:count]
}

func (g *Generator) pickRegions(count int) []int64 {
	if g.regions == nil {
		return nil
	}
	ids := g.regions.RegionIDs()
	if len(ids) == 0 {
		return nil
	}
	if count > len(ids) {
		count = len(ids)
	}
	picked := append([]int64(nil), ids...)
	g.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:count]
}

func severityFor(intensity float64) string {
	switch {
	case intensity >= 0.85:
		return "critical"
	case intensity >= 0.6:
		return "high"
	case intensity >= 0.35:
		return "medium"
	default:
		return "low"
	}
}

func sortResources(rts []catalog.ResourceType) {
	sort.Slice(rts, func(i, j int) bool { return rts[i] < rts[j] })
}
