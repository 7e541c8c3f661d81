// Package worldevent injects random economic, military, natural, and
// political events into the simulation. The generator is the sole creator of
// events; the market engine and the morale pass only read them.
package worldevent

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/notify"
)

// Category classifies a world event.
type Category string

const (
	CategoryEconomic  Category = "economic"
	CategoryMilitary  Category = "military"
	CategoryNatural   Category = "natural"
	CategoryPolitical Category = "political"
)

// Event is one world event. Inert (but still queryable) once expired.
type Event struct {
	ID                string                 `json:"id"`
	Category          Category               `json:"category"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Severity          string                 `json:"severity"` // low, medium, high, critical
	AffectedResources []catalog.ResourceType `json:"affected_resources"`
	AffectedRegions   []int64                `json:"affected_regions"`
	Impact            float64                `json:"impact"`       // signed price impact
	Intensity         float64                `json:"intensity"`    // 0-1
	MoraleDelta       float64                `json:"morale_delta"` // points per morale pass
	CreatedAt         time.Time              `json:"created_at"`
	ExpiresAt         time.Time              `json:"expires_at"`
}

// Active reports whether the event still applies at the given instant.
func (e Event) Active(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// RegionSource supplies the region IDs an event may affect.
type RegionSource interface {
	RegionIDs() []int64
}

// Config tunes event generation.
type Config struct {
	ChancePerTick float64       // Probability of emitting an event per tick
	MinDuration   time.Duration // Shortest event lifetime
	MaxDuration   time.Duration // Longest event lifetime
}

// DefaultConfig matches the reference behavior: 10% per tick, 1-24 hours.
func DefaultConfig() Config {
	return Config{
		ChancePerTick: 0.10,
		MinDuration:   time.Hour,
		MaxDuration:   24 * time.Hour,
	}
}

const historyLimit = 200

// Generator produces and tracks world events.
type Generator struct {
	cfg     Config
	catalog *catalog.Catalog
	regions RegionSource
	bus     *notify.Bus

	mu     sync.Mutex
	rng    *rand.Rand
	events []Event
}

func New(cfg Config, cat *catalog.Catalog, regions RegionSource, bus *notify.Bus, rng *rand.Rand) *Generator {
	return &Generator{cfg: cfg, catalog: cat, regions: regions, bus: bus, rng: rng}
}

// Tick rolls the per-tick chance and may emit one new event.
// Returns the created event, or nil when the roll misses.
func (g *Generator) Tick(now time.Time) *Event {
	g.mu.Lock()
	if g.rng.Float64() >= g.cfg.ChancePerTick {
		g.mu.Unlock()
		return nil
	}
	ev := g.generate(now)
	g.append(ev)
	g.mu.Unlock()

	g.publish(ev)
	return &ev
}

// Inject records an externally supplied event (admin contract). Missing
// fields are filled in; the event flows through the same effect paths as
// generated ones.
func (g *Generator) Inject(ev Event, now time.Time) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if ev.ExpiresAt.IsZero() {
		ev.ExpiresAt = now.Add(g.cfg.MinDuration)
	}
	if ev.Severity == "" {
		ev.Severity = severityFor(ev.Intensity)
	}

	g.mu.Lock()
	g.append(ev)
	g.mu.Unlock()

	g.publish(ev)
	return ev
}

func (g *Generator) publish(ev Event) {
	if g.bus == nil {
		return
	}
	g.bus.Publish(notify.KindWorldEventCreated, notify.WorldEventCreated{
		EventID:     ev.ID,
		Category:    string(ev.Category),
		Title:       ev.Title,
		Description: ev.Description,
		Severity:    ev.Severity,
		Resources:   ev.AffectedResources,
		ExpiresAt:   ev.ExpiresAt,
	})
}

// append keeps history bounded. Callers hold g.mu.
func (g *Generator) append(ev Event) {
	g.events = append(g.events, ev)
	if len(g.events) > historyLimit {
		g.events = g.events[len(g.events)-historyLimit:]
	}
}

// ActiveEvents returns unexpired events, oldest first.
func (g *Generator) ActiveEvents(now time.Time) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Event
	for _, ev := range g.events {
		if ev.Active(now) {
			out = append(out, ev)
		}
	}
	return out
}

// AllEvents returns the retained history, oldest first.
func (g *Generator) AllEvents() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := append([]Event(nil), g.events...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PriceImpacts sums impact*intensity of active events per affected resource.
// Implements the market engine's event source.
func (g *Generator) PriceImpacts(now time.Time) map[catalog.ResourceType]float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	impacts := make(map[catalog.ResourceType]float64)
	for _, ev := range g.events {
		if !ev.Active(now) {
			continue
		}
		for _, rt := range ev.AffectedResources {
			impacts[rt] += ev.Impact * ev.Intensity
		}
	}
	return impacts
}

// MoraleDelta sums the morale effect of all active events. Applied to every
// active player by the scheduler's morale pass.
func (g *Generator) MoraleDelta(now time.Time) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0.0
	for _, ev := range g.events {
		if ev.Active(now) {
			total += ev.MoraleDelta
		}
	}
	return total
}

// Restore replaces the event history from a saved world.
func (g *Generator) Restore(events []Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append([]Event(nil), events...)
	if len(g.events) > historyLimit {
		g.events = g.events[len(g.events)-historyLimit:]
	}
}
