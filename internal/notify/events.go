// Package notify carries the structured output events the engine produces for
// the presentation layer. Each event holds the full post-mutation state needed
// to render a message, so consumers never reach back into engine state.
package notify

import (
	"time"

	"github.com/talgya/warfront/internal/catalog"
)

// Kind identifies the event payload type.
type Kind string

const (
	KindPriceUpdated      Kind = "price_updated"
	KindTradeExecuted     Kind = "trade_executed"
	KindCombatResolved    Kind = "combat_resolved"
	KindTaskCompleted     Kind = "task_completed"
	KindTaskFailed        Kind = "task_failed"
	KindTaskExpired       Kind = "task_expired"
	KindWorldEventCreated Kind = "world_event_created"
	KindUpkeepSettled     Kind = "upkeep_settled"
)

// Event is the envelope published on the bus.
type Event struct {
	Kind    Kind      `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// PriceUpdated reports one resource's post-tick price.
type PriceUpdated struct {
	Resource      catalog.ResourceType `json:"resource"`
	Price         float64              `json:"price"`
	PreviousPrice float64              `json:"previous_price"`
	ChangePercent float64              `json:"change_percent"`
}

// TradeExecuted reports a completed buy/sell/trade.
type TradeExecuted struct {
	PlayerID  int64                `json:"player_id"`
	Resource  catalog.ResourceType `json:"resource"`
	Amount    float64              `json:"amount"`
	UnitPrice float64              `json:"unit_price"`
	Total     float64              `json:"total"`
	Direction string               `json:"direction"` // "buy", "sell", "trade"
	GoldAfter float64              `json:"gold_after"`
}

// CombatResolved reports a settled battle.
type CombatResolved struct {
	AttackerID         int64          `json:"attacker_id"`
	DefenderID         int64          `json:"defender_id"`
	ProvinceID         int64          `json:"province_id"`
	WinnerID           int64          `json:"winner_id"`
	Odds               float64        `json:"odds"`
	AttackerCasualties map[string]int `json:"attacker_casualties"`
	DefenderCasualties map[string]int `json:"defender_casualties"`
	AttackerMorale     float64        `json:"attacker_morale"`
	DefenderMorale     float64        `json:"defender_morale"`
}

// TaskStatus reports a quest/research task reaching a terminal state.
type TaskStatus struct {
	TaskID       string               `json:"task_id"`
	OwnerID      int64                `json:"owner_id"`
	DefinitionID string               `json:"definition_id"`
	Status       string               `json:"status"`
	Rewards      catalog.QuestRewards `json:"rewards,omitempty"`
	Reason       string               `json:"reason,omitempty"`
}

// WorldEventCreated reports a newly generated world event.
type WorldEventCreated struct {
	EventID     string                 `json:"event_id"`
	Category    string                 `json:"category"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Severity    string                 `json:"severity"`
	Resources   []catalog.ResourceType `json:"resources"`
	ExpiresAt   time.Time              `json:"expires_at"`
}

// UpkeepSettled reports one player's daily settlement outcome.
type UpkeepSettled struct {
	PlayerID    int64   `json:"player_id"`
	Income      float64 `json:"income"`
	Upkeep      float64 `json:"upkeep"`
	GoldAfter   float64 `json:"gold_after"`
	MoraleAfter float64 `json:"morale_after"`
	Afforded    bool    `json:"afforded"`
}
