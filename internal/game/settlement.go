package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/ledger"
	"github.com/talgya/warfront/internal/notify"
	"github.com/talgya/warfront/internal/quest"
)

// Settle runs one hourly settlement pass for every player: province income
// with production bonuses, unit upkeep, and resource decay. Upkeep a player
// cannot pay is skipped and costs morale instead.
func (s *Service) Settle(now time.Time) {
	for _, player := range s.ledger.Players() {
		s.settlePlayer(player, now)
	}
}

func (s *Service) settlePlayer(player ledger.PlayerID, now time.Time) {
	eff := s.tracker.EffectsFor(player)

	// Income. Deposits are daily yields; settlement runs hourly.
	income := 0.0
	for _, p := range s.atlas.OwnedBy(int64(player)) {
		income += s.cfg.TaxPerProvince * p.Infrastructure
		for rt, daily := range p.Deposits {
			hourly := daily / 24 * (1 + eff.ProductionBonus(rt))
			s.ledger.Credit(player, rt, hourly, ledger.TxMeta{
				Kind:        ledger.TxEarn,
				Description: fmt.Sprintf("Production: %s", p.Name),
			})
		}
	}
	if income > 0 {
		s.ledger.Credit(player, catalog.ResourceGold, income, ledger.TxMeta{
			Kind:        ledger.TxEarn,
			Description: "Province taxes",
		})
	}

	// Upkeep.
	upkeep := 0.0
	for name, count := range s.UnitsOf(player) {
		if def, ok := s.catalog.Unit(name); ok {
			upkeep += def.Upkeep * float64(count) / 24
		}
	}
	afforded := true
	if upkeep > 0 {
		err := s.ledger.Debit(player, catalog.ResourceGold, upkeep, ledger.TxMeta{
			Kind:        ledger.TxSpend,
			Description: "Unit upkeep",
		})
		if err != nil {
			afforded = false
			s.ledger.AdjustMorale(player, -5)
			slog.Warn("upkeep unpaid", "player", player, "upkeep", upkeep)
		}
	}

	s.decayResources(player)

	if s.bus != nil {
		s.bus.Publish(notify.KindUpkeepSettled, notify.UpkeepSettled{
			PlayerID:    int64(player),
			Income:      income,
			Upkeep:      upkeep,
			GoldAfter:   s.ledger.Balance(player, catalog.ResourceGold),
			MoraleAfter: s.ledger.Morale(player),
			Afforded:    afforded,
		})
	}
}

// decayResources burns off the hourly decay fraction of perishable holdings.
func (s *Service) decayResources(player ledger.PlayerID) {
	for rt, def := range s.catalog.Resources {
		if def.DecayRate <= 0 {
			continue
		}
		held := s.ledger.Balance(player, rt)
		loss := held * def.DecayRate
		if loss <= 0 {
			continue
		}
		err := s.ledger.Debit(player, rt, loss, ledger.TxMeta{
			Kind:        ledger.TxSpend,
			Description: fmt.Sprintf("Spoilage: %s", rt),
		})
		if err != nil {
			slog.Warn("decay debit failed", "player", player, "resource", rt, "err", err)
		}
	}
}

// MoralePass applies world event morale effects plus baseline decay toward
// the configured floor.
func (s *Service) MoralePass(now time.Time) {
	eventDelta := s.events.MoraleDelta(now)
	for _, player := range s.ledger.Players() {
		delta := eventDelta
		if s.ledger.Morale(player) > s.cfg.MoraleFloor {
			delta -= s.cfg.MoraleDecay
		}
		if delta != 0 {
			s.ledger.AdjustMorale(player, delta)
		}
	}
}

// AdvanceTasks pushes every active task forward by elapsed wall time. Quests
// progress linearly over their duration; research progresses at the
// configured rate scaled by the owner's research speed bonus.
func (s *Service) AdvanceTasks(now time.Time, elapsed time.Duration) {
	hours := elapsed.Hours()
	for _, task := range s.tracker.AllTasks() {
		if task.Status != quest.StatusActive {
			continue
		}
		var delta float64
		switch task.Kind {
		case quest.KindQuest:
			if task.Duration <= 0 {
				continue
			}
			delta = float64(elapsed) / float64(task.Duration)
		case quest.KindResearch:
			tech, ok := s.catalog.Technology(task.DefinitionID)
			if !ok || tech.Cost <= 0 {
				continue
			}
			speed := s.tracker.EffectsFor(task.OwnerID).ResearchSpeed
			delta = s.cfg.ResearchPerHour * speed * hours / tech.Cost
		}
		if delta <= 0 {
			continue
		}
		if err := s.tracker.Advance(task.ID, delta); err != nil {
			slog.Warn("task advance failed", "task", task.ID, "err", err)
		}
	}
}

// Stats is the operator-facing aggregate snapshot.
type Stats struct {
	Players      int     `json:"players"`
	TotalGold    float64 `json:"total_gold"`
	TotalUnits   int     `json:"total_units"`
	ActiveTasks  int     `json:"active_tasks"`
	ActiveEvents int     `json:"active_events"`
	Provinces    int     `json:"provinces"`
	MarketHealth string  `json:"market_health"`
	UpdatedAt    string  `json:"updated_at"`
}

func (s *Service) Stats(now time.Time) Stats {
	s.mu.Lock()
	totalUnits := 0
	for _, holdings := range s.units {
		for _, n := range holdings {
			totalUnits += n
		}
	}
	s.mu.Unlock()

	return Stats{
		Players:      len(s.ledger.Players()),
		TotalGold:    s.ledger.TotalGold(),
		TotalUnits:   totalUnits,
		ActiveTasks:  s.tracker.ActiveCount(),
		ActiveEvents: len(s.events.ActiveEvents(now)),
		Provinces:    len(s.atlas.RegionIDs()),
		MarketHealth: s.market.Summarize().Health,
		UpdatedAt:    now.UTC().Format(time.RFC3339),
	}
}

// RestoreUnits replaces all unit holdings from a saved world.
func (s *Service) RestoreUnits(units map[ledger.PlayerID]map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = make(map[ledger.PlayerID]map[string]int, len(units))
	for player, holdings := range units {
		copied := make(map[string]int, len(holdings))
		for name, n := range holdings {
			copied[name] = n
		}
		s.units[player] = copied
	}
}

// AllUnits returns a deep copy of every player's holdings, for persistence.
func (s *Service) AllUnits() map[ledger.PlayerID]map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ledger.PlayerID]map[string]int, len(s.units))
	for player, holdings := range s.units {
		copied := make(map[string]int, len(holdings))
		for name, n := range holdings {
			copied[name] = n
		}
		out[player] = copied
	}
	return out
}
