package market

import (
	"math"
	"sort"

	"github.com/talgya/warfront/internal/catalog"
)

// Summary aggregates market state for the admin contract.
type Summary struct {
	Prices       []Price  `json:"prices"`
	MostVolatile []string `json:"most_volatile"`
	Health       string   `json:"health"` // "stable", "unstable", "volatile"
}

// Summarize computes the admin market summary from current prices.
func (e *Engine) Summarize() Summary {
	prices := e.Snapshot()

	type score struct {
		rt    catalog.ResourceType
		value float64
	}
	scores := make([]score, 0, len(prices))
	totalChange := 0.0
	for _, p := range prices {
		def := e.catalog.Resources[p.Resource]
		change := math.Abs(p.ChangePercent())
		totalChange += change
		scores = append(scores, score{rt: p.Resource, value: change * def.Volatility})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].value > scores[j].value })

	top := 5
	if top > len(scores) {
		top = len(scores)
	}
	volatile := make([]string, top)
	for i := 0; i < top; i++ {
		volatile[i] = string(scores[i].rt)
	}

	health := "stable"
	if len(prices) > 0 {
		avg := totalChange / float64(len(prices))
		switch {
		case avg > 10:
			health = "volatile"
		case avg > 5:
			health = "unstable"
		}
	}

	return Summary{Prices: prices, MostVolatile: volatile, Health: health}
}
