// Package market evolves one price per resource type: a mean-reverting random
// walk bounded by the catalog's min/max prices, perturbed by trades and by
// active world events. The engine is the sole mutator of price state.
package market

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
	"github.com/talgya/warfront/internal/notify"
)

// TradeDirection distinguishes price impact of buys and sells.
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

// Price is the mutable market state of one resource.
type Price struct {
	Resource      catalog.ResourceType `json:"resource"`
	Price         float64              `json:"price"`
	PreviousPrice float64              `json:"previous_price"`
	Demand        float64              `json:"demand"` // 0.1-1.0
	Supply        float64              `json:"supply"` // 0.1-1.0
	LastUpdated   time.Time            `json:"last_updated"`
}

// ChangePercent is the move of the last tick relative to the previous price.
func (p Price) ChangePercent() float64 {
	if p.PreviousPrice == 0 {
		return 0
	}
	return (p.Price - p.PreviousPrice) / p.PreviousPrice * 100
}

// PricePoint is one history sample.
type PricePoint struct {
	Price float64   `json:"price"`
	At    time.Time `json:"at"`
}

const historyWindow = 100

// EventSource supplies the summed price impact of active world events,
// keyed by resource. Expired events contribute nothing.
type EventSource interface {
	PriceImpacts(now time.Time) map[catalog.ResourceType]float64
}

type entry struct {
	mu      sync.Mutex
	price   Price
	history []PricePoint
}

// Engine owns all market price state.
type Engine struct {
	catalog *catalog.Catalog
	entries map[catalog.ResourceType]*entry
	events  EventSource
	bus     *notify.Bus
	clk     clock.Clock

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New seeds every resource within ±20% of its base value with moderate
// initial demand and supply.
func New(cat *catalog.Catalog, events EventSource, bus *notify.Bus, clk clock.Clock, rng *rand.Rand) *Engine {
	e := &Engine{
		catalog: cat,
		entries: make(map[catalog.ResourceType]*entry, len(cat.Resources)),
		events:  events,
		bus:     bus,
		clk:     clk,
		rng:     rng,
	}
	now := clk.Now()
	for rt, def := range cat.Resources {
		price := clamp(def.BaseValue*e.uniform(0.8, 1.2), def.MinPrice, def.MaxPrice)
		e.entries[rt] = &entry{
			price: Price{
				Resource:      rt,
				Price:         price,
				PreviousPrice: price,
				Demand:        e.uniform(0.3, 0.7),
				Supply:        e.uniform(0.3, 0.7),
				LastUpdated:   now,
			},
		}
	}
	return e
}

func (e *Engine) uniform(lo, hi float64) float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return lo + e.rng.Float64()*(hi-lo)
}

// Tick advances every resource's price by one simulation step. Never fails.
func (e *Engine) Tick() {
	now := e.clk.Now()

	var impacts map[catalog.ResourceType]float64
	if e.events != nil {
		impacts = e.events.PriceImpacts(now)
	}

	for rt, def := range e.catalog.Resources {
		en := e.entries[rt]
		en.mu.Lock()

		p := &en.price
		supplyDemandRatio := p.Supply / max(p.Demand, 0.1)
		baseChange := (supplyDemandRatio - 1) * def.Volatility * 0.1
		randomChange := e.uniform(-def.Volatility, def.Volatility) * 0.05
		eventImpact := impacts[rt]

		newPrice := p.Price * (1 + baseChange + randomChange + eventImpact)
		newPrice = clamp(newPrice, def.MinPrice, def.MaxPrice)

		p.PreviousPrice = p.Price
		p.Price = newPrice
		p.LastUpdated = now

		// Demand and supply drift independently.
		p.Demand = clamp(p.Demand+e.uniform(-0.1, 0.1), 0.1, 1.0)
		p.Supply = clamp(p.Supply+e.uniform(-0.1, 0.1), 0.1, 1.0)

		en.history = append(en.history, PricePoint{Price: newPrice, At: now})
		if len(en.history) > historyWindow {
			en.history = en.history[len(en.history)-historyWindow:]
		}

		snapshot := *p
		en.mu.Unlock()

		if e.bus != nil {
			e.bus.Publish(notify.KindPriceUpdated, notify.PriceUpdated{
				Resource:      rt,
				Price:         snapshot.Price,
				PreviousPrice: snapshot.PreviousPrice,
				ChangePercent: snapshot.ChangePercent(),
			})
		}
	}
}

// ApplyTradeImpact moves the price after a large trade: impact is
// min(quantity/1000, 0.10). Buys raise the price, sells lower it, floored at
// 10% of base value. Unknown resources degrade to a logged no-op.
func (e *Engine) ApplyTradeImpact(rt catalog.ResourceType, quantity float64, dir TradeDirection) {
	def, ok := e.catalog.Resource(rt)
	if !ok {
		slog.Warn("trade impact against unknown resource", "resource", rt, "quantity", quantity)
		return
	}
	en := e.entries[rt]

	en.mu.Lock()
	defer en.mu.Unlock()

	impact := min(quantity/1000.0, 0.10)
	p := &en.price
	switch dir {
	case DirectionBuy:
		p.Price += p.Price * impact
	case DirectionSell:
		p.Price = max(p.Price-p.Price*impact, def.BaseValue*0.1)
	}
	p.Price = clamp(p.Price, def.MinPrice, def.MaxPrice)
	p.LastUpdated = e.clk.Now()
}

// Quote returns a read-only snapshot of one resource's market state.
func (e *Engine) Quote(rt catalog.ResourceType) (Price, bool) {
	en, ok := e.entries[rt]
	if !ok {
		return Price{}, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.price, true
}

// History returns the recent price samples for one resource, oldest first.
func (e *Engine) History(rt catalog.ResourceType) []PricePoint {
	en, ok := e.entries[rt]
	if !ok {
		return nil
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return append([]PricePoint(nil), en.history...)
}

// Snapshot returns all current prices sorted by resource type.
func (e *Engine) Snapshot() []Price {
	out := make([]Price, 0, len(e.entries))
	for rt := range e.entries {
		p, _ := e.Quote(rt)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out
}

// Restore overwrites one resource's price state from a saved world. Prices
// are re-clamped so a stale save cannot violate current catalog bounds.
func (e *Engine) Restore(p Price) {
	en, ok := e.entries[p.Resource]
	if !ok {
		slog.Warn("saved price for unknown resource dropped", "resource", p.Resource)
		return
	}
	def := e.catalog.Resources[p.Resource]
	en.mu.Lock()
	defer en.mu.Unlock()
	p.Price = clamp(p.Price, def.MinPrice, def.MaxPrice)
	p.Demand = clamp(p.Demand, 0.1, 1.0)
	p.Supply = clamp(p.Supply, 0.1, 1.0)
	en.price = p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
