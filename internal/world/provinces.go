// Package world holds the map layer: provinces with infrastructure,
// resource deposits, and noise-driven weather.
package world

import (
	"sort"
	"sync"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/combat"
)

// Province is one region of the map. Infrastructure and deposits are slow
// moving; weather and temperature are resampled every weather tick.
type Province struct {
	ID             int64                            `json:"id"`
	Name           string                           `json:"name"`
	Owner          int64                            `json:"owner"` // player ID, 0 = unclaimed
	Infrastructure float64                          `json:"infrastructure"` // 0-1
	Morale         float64                          `json:"morale"`         // 0-100
	Weather        combat.Weather                   `json:"weather"`
	Temperature    float64                          `json:"temperature"` // Celsius
	Deposits       map[catalog.ResourceType]float64 `json:"deposits"`    // daily yield per resource
}

// Atlas owns all provinces and evolves their weather over time.
type Atlas struct {
	mu        sync.RWMutex
	provinces map[int64]*Province
	order     []int64

	weatherNoise opensimplex.Noise
	tempNoise    opensimplex.Noise
	epoch        time.Time
}

// NewAtlas builds an atlas around the given provinces. Seed drives the
// weather noise fields; the same seed replays the same weather history.
func NewAtlas(provinces []Province, seed int64, epoch time.Time) *Atlas {
	a := &Atlas{
		provinces:    make(map[int64]*Province, len(provinces)),
		weatherNoise: opensimplex.NewNormalized(seed),
		tempNoise:    opensimplex.NewNormalized(seed + 1),
		epoch:        epoch,
	}
	for i := range provinces {
		p := provinces[i]
		if p.Deposits == nil {
			p.Deposits = make(map[catalog.ResourceType]float64)
		}
		a.provinces[p.ID] = &p
		a.order = append(a.order, p.ID)
	}
	sort.Slice(a.order, func(i, j int) bool { return a.order[i] < a.order[j] })
	return a
}

// DefaultProvinces returns the stock twelve-province map.
func DefaultProvinces() []Province {
	mk := func(id int64, name string, infra float64, deposits map[catalog.ResourceType]float64) Province {
		return Province{
			ID: id, Name: name,
			Infrastructure: infra,
			Morale:         75,
			Weather:        combat.WeatherClear,
			Temperature:    15,
			Deposits:       deposits,
		}
	}
	return []Province{
		mk(1, "Ironhold", 0.85, map[catalog.ResourceType]float64{catalog.ResourceIron: 120, catalog.ResourceMaterials: 60}),
		mk(2, "Greenfields", 0.55, map[catalog.ResourceType]float64{catalog.ResourceFood: 200, catalog.ResourceWater: 150}),
		mk(3, "Blackpit", 0.45, map[catalog.ResourceType]float64{catalog.ResourceOil: 90, catalog.ResourceFuel: 50}),
		mk(4, "Port Meridian", 0.9, map[catalog.ResourceType]float64{catalog.ResourceInfluence: 15, catalog.ResourceMaterials: 70}),
		mk(5, "Duskmoor", 0.25, map[catalog.ResourceType]float64{catalog.ResourceMaterials: 110, catalog.ResourceFood: 60}),
		mk(6, "Silverreach", 0.7, map[catalog.ResourceType]float64{catalog.ResourceTechnology: 25, catalog.ResourceEnergy: 45}),
		mk(7, "Thornvale", 0.4, map[catalog.ResourceType]float64{catalog.ResourceFood: 130, catalog.ResourceManpower: 40}),
		mk(8, "Cinder Basin", 0.6, map[catalog.ResourceType]float64{catalog.ResourceAmmunition: 50, catalog.ResourceIron: 35}),
		mk(9, "Frostgate", 0.3, map[catalog.ResourceType]float64{catalog.ResourceMedicalSupplies: 20, catalog.ResourceWater: 100}),
		mk(10, "Academy Heights", 0.8, map[catalog.ResourceType]float64{catalog.ResourceKnowledge: 20, catalog.ResourceTechnology: 15}),
		mk(11, "The Shallows", 0.5, map[catalog.ResourceType]float64{catalog.ResourceWater: 180, catalog.ResourceFood: 90}),
		mk(12, "Redridge", 0.65, map[catalog.ResourceType]float64{catalog.ResourceIron: 80, catalog.ResourceOil: 50}),
	}
}

// TickWeather resamples weather and temperature for every province at the
// given instant. Each province tracks its own slice of the noise field, so
// neighbouring ticks produce gradual shifts rather than jumps.
func (a *Atlas) TickWeather(now time.Time) {
	hours := now.Sub(a.epoch).Hours()

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range a.order {
		p := a.provinces[id]
		// Province ID spreads samples apart so regions decorrelate.
		x := float64(id) * 7.3
		w := a.weatherNoise.Eval2(x, hours*0.15)
		p.Weather = weatherFor(w)
		t := a.tempNoise.Eval2(x, hours*0.05)
		p.Temperature = -5 + t*35 // -5..30 C
	}
}

// weatherFor maps a normalized noise sample onto a weather state. Thresholds
// keep clear skies the common case.
func weatherFor(v float64) combat.Weather {
	switch {
	case v > 0.85:
		return combat.WeatherStorm
	case v > 0.65:
		return combat.WeatherRain
	case v < 0.15:
		return combat.WeatherFog
	default:
		return combat.WeatherClear
	}
}

// Get returns a copy of one province.
func (a *Atlas) Get(id int64) (Province, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.provinces[id]
	if !ok {
		return Province{}, false
	}
	return copyProvince(p), true
}

// All returns copies of every province in ID order.
func (a *Atlas) All() []Province {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Province, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, copyProvince(a.provinces[id]))
	}
	return out
}

// RegionIDs lists province IDs in ascending order. Feeds the world event
// generator's region picks.
func (a *Atlas) RegionIDs() []int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]int64, len(a.order))
	copy(out, a.order)
	return out
}

// SetOwner reassigns a province. Conquest and initial claims both land here.
func (a *Atlas) SetOwner(id, owner int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.provinces[id]; ok {
		p.Owner = owner
	}
}

// OwnedBy returns copies of the player's provinces in ID order.
func (a *Atlas) OwnedBy(owner int64) []Province {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []Province
	for _, id := range a.order {
		if p := a.provinces[id]; p.Owner == owner {
			out = append(out, copyProvince(p))
		}
	}
	return out
}

// ClaimUnowned hands the lowest-ID unclaimed province to the player.
// Returns false when the map is fully claimed.
func (a *Atlas) ClaimUnowned(owner int64) (Province, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range a.order {
		if p := a.provinces[id]; p.Owner == 0 {
			p.Owner = owner
			return copyProvince(p), true
		}
	}
	return Province{}, false
}

// AdjustInfrastructure shifts a province's infrastructure, clamped to [0, 1].
func (a *Atlas) AdjustInfrastructure(id int64, delta float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.provinces[id]
	if !ok {
		return
	}
	p.Infrastructure += delta
	if p.Infrastructure < 0 {
		p.Infrastructure = 0
	}
	if p.Infrastructure > 1 {
		p.Infrastructure = 1
	}
}

// AdjustMorale shifts a province's morale, clamped to [0, 100].
func (a *Atlas) AdjustMorale(id int64, delta float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.provinces[id]
	if !ok {
		return
	}
	p.Morale += delta
	if p.Morale < 0 {
		p.Morale = 0
	}
	if p.Morale > 100 {
		p.Morale = 100
	}
}

// TotalDeposits sums daily yields across all provinces per resource.
func (a *Atlas) TotalDeposits() map[catalog.ResourceType]float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	totals := make(map[catalog.ResourceType]float64)
	for _, p := range a.provinces {
		for rt, amount := range p.Deposits {
			totals[rt] += amount
		}
	}
	return totals
}

// Restore replaces all province state from a saved world. The noise fields
// are untouched; weather continues from the restored clock.
func (a *Atlas) Restore(provinces []Province) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.provinces = make(map[int64]*Province, len(provinces))
	a.order = a.order[:0]
	for i := range provinces {
		p := provinces[i]
		if p.Deposits == nil {
			p.Deposits = make(map[catalog.ResourceType]float64)
		}
		a.provinces[p.ID] = &p
		a.order = append(a.order, p.ID)
	}
	sort.Slice(a.order, func(i, j int) bool { return a.order[i] < a.order[j] })
}

func copyProvince(p *Province) Province {
	out := *p
	out.Deposits = make(map[catalog.ResourceType]float64, len(p.Deposits))
	for rt, v := range p.Deposits {
		out.Deposits[rt] = v
	}
	return out
}
