// Package game is the foreground operations layer: trading, unit building,
// attacks, and the periodic settlement passes. Every successful operation
// emits one bus event; every failure is a typed error with no state change.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
	"github.com/talgya/warfront/internal/combat"
	"github.com/talgya/warfront/internal/ledger"
	"github.com/talgya/warfront/internal/market"
	"github.com/talgya/warfront/internal/notify"
	"github.com/talgya/warfront/internal/quest"
	"github.com/talgya/warfront/internal/world"
	"github.com/talgya/warfront/internal/worldevent"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrUnknownResource = errors.New("unknown resource")
	ErrUnknownUnit     = errors.New("unknown unit type")
	ErrUnknownProvince = errors.New("unknown province")
	ErrTechRequired    = errors.New("required technology not researched")
	ErrAttackCooldown  = errors.New("attack cooldown active")
	ErrMoraleTooLow    = errors.New("morale too low to attack")
	ErrNoUnits         = errors.New("no units available")
	ErrSelfAttack      = errors.New("cannot attack yourself")
	ErrNotProvince     = errors.New("defender does not hold that province")
)

// Config carries the service's tuned knobs.
type Config struct {
	AttackCooldown  time.Duration
	MinAttackMorale float64
	TaxPerProvince  float64 // Gold per owned province per settlement hour
	MoraleDecay     float64 // Morale lost per morale pass when above the floor
	MoraleFloor     float64 // Decay never drops morale below this
	ResearchPerHour float64 // Research points of progress per hour
}

func DefaultConfig() Config {
	return Config{
		AttackCooldown:  5 * time.Minute,
		MinAttackMorale: 20,
		TaxPerProvince:  50,
		MoraleDecay:     1,
		MoraleFloor:     30,
		ResearchPerHour: 25,
	}
}

// Service composes the engine subsystems behind the player-facing operations.
type Service struct {
	cfg      Config
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	market   *market.Engine
	resolver *combat.Resolver
	tracker  *quest.Tracker
	events   *worldevent.Generator
	atlas    *world.Atlas
	bus      *notify.Bus
	clk      clock.Clock

	rngMu sync.Mutex
	rng   *rand.Rand

	mu         sync.Mutex
	units      map[ledger.PlayerID]map[string]int
	lastAttack map[ledger.PlayerID]time.Time
}

func New(cfg Config, cat *catalog.Catalog, led *ledger.Ledger, mkt *market.Engine,
	res *combat.Resolver, trk *quest.Tracker, gen *worldevent.Generator,
	atlas *world.Atlas, bus *notify.Bus, clk clock.Clock, rng *rand.Rand) *Service {
	return &Service{
		cfg:        cfg,
		catalog:    cat,
		ledger:     led,
		market:     mkt,
		resolver:   res,
		tracker:    trk,
		events:     gen,
		atlas:      atlas,
		bus:        bus,
		clk:        clk,
		rng:        rng,
		units:      make(map[ledger.PlayerID]map[string]int),
		lastAttack: make(map[ledger.PlayerID]time.Time),
	}
}

// RegisterPlayer creates the player's account with starting balances and
// claims them a home province. Safe to call for an existing player.
func (s *Service) RegisterPlayer(id ledger.PlayerID) {
	s.ledger.EnsurePlayer(id)

	s.mu.Lock()
	_, known := s.units[id]
	if !known {
		s.units[id] = make(map[string]int)
	}
	s.mu.Unlock()

	if !known {
		s.atlas.ClaimUnowned(int64(id))
	}
}

// UnitCount reports a player's holdings of one unit type.
func (s *Service) UnitCount(owner ledger.PlayerID, unit string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.units[owner][unit]
}

// UnitsOf returns a copy of the player's unit holdings.
func (s *Service) UnitsOf(owner ledger.PlayerID) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.units[owner]))
	for name, n := range s.units[owner] {
		out[name] = n
	}
	return out
}

// BuyResource purchases a resource at the current quote. The gold debit and
// resource credit happen together or not at all.
func (s *Service) BuyResource(player ledger.PlayerID, rt catalog.ResourceType, qty float64) error {
	if qty <= 0 {
		return fmt.Errorf("buy %s: %w", rt, ErrInvalidQuantity)
	}
	price, ok := s.market.Quote(rt)
	if !ok {
		return fmt.Errorf("buy %s: %w", rt, ErrUnknownResource)
	}
	total := qty * price.Price

	err := s.ledger.Debit(player, catalog.ResourceGold, total, ledger.TxMeta{
		Kind:        ledger.TxBuy,
		UnitPrice:   price.Price,
		Description: fmt.Sprintf("Bought %.1f %s", qty, rt),
	})
	if err != nil {
		return fmt.Errorf("buy %s: %w", rt, err)
	}
	s.ledger.Credit(player, rt, qty, ledger.TxMeta{
		Kind:      ledger.TxBuy,
		UnitPrice: price.Price,
	})
	s.market.ApplyTradeImpact(rt, qty, market.DirectionBuy)

	s.publishTrade(player, rt, qty, price.Price, total, "buy")
	return nil
}

// SellResource sells a resource at the current quote.
func (s *Service) SellResource(player ledger.PlayerID, rt catalog.ResourceType, qty float64) error {
	if qty <= 0 {
		return fmt.Errorf("sell %s: %w", rt, ErrInvalidQuantity)
	}
	price, ok := s.market.Quote(rt)
	if !ok {
		return fmt.Errorf("sell %s: %w", rt, ErrUnknownResource)
	}
	total := qty * price.Price

	err := s.ledger.Debit(player, rt, qty, ledger.TxMeta{
		Kind:        ledger.TxSell,
		UnitPrice:   price.Price,
		Description: fmt.Sprintf("Sold %.1f %s", qty, rt),
	})
	if err != nil {
		return fmt.Errorf("sell %s: %w", rt, err)
	}
	s.ledger.Credit(player, catalog.ResourceGold, total, ledger.TxMeta{
		Kind:      ledger.TxSell,
		UnitPrice: price.Price,
	})
	s.market.ApplyTradeImpact(rt, qty, market.DirectionSell)

	s.publishTrade(player, rt, qty, price.Price, total, "sell")
	return nil
}

// TradeResources exchanges one resource for another at the ratio of their
// current quotes, without touching gold. All-or-nothing.
func (s *Service) TradeResources(player ledger.PlayerID, give catalog.ResourceType, giveQty float64, get catalog.ResourceType) (float64, error) {
	if giveQty <= 0 {
		return 0, fmt.Errorf("trade %s: %w", give, ErrInvalidQuantity)
	}
	givePrice, ok := s.market.Quote(give)
	if !ok {
		return 0, fmt.Errorf("trade %s: %w", give, ErrUnknownResource)
	}
	getPrice, ok := s.market.Quote(get)
	if !ok {
		return 0, fmt.Errorf("trade for %s: %w", get, ErrUnknownResource)
	}
	getQty := giveQty * givePrice.Price / getPrice.Price

	err := s.ledger.Debit(player, give, giveQty, ledger.TxMeta{
		Kind:        ledger.TxTrade,
		UnitPrice:   givePrice.Price,
		Description: fmt.Sprintf("Traded %.1f %s for %.1f %s", giveQty, give, getQty, get),
	})
	if err != nil {
		return 0, fmt.Errorf("trade %s: %w", give, err)
	}
	s.ledger.Credit(player, get, getQty, ledger.TxMeta{
		Kind:      ledger.TxTrade,
		UnitPrice: getPrice.Price,
	})
	s.market.ApplyTradeImpact(give, giveQty, market.DirectionSell)
	s.market.ApplyTradeImpact(get, getQty, market.DirectionBuy)

	s.publishTrade(player, get, getQty, getPrice.Price, giveQty*givePrice.Price, "trade")
	return getQty, nil
}

func (s *Service) publishTrade(player ledger.PlayerID, rt catalog.ResourceType, qty, unitPrice, total float64, dir string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(notify.KindTradeExecuted, notify.TradeExecuted{
		PlayerID:  int64(player),
		Resource:  rt,
		Amount:    qty,
		UnitPrice: unitPrice,
		Total:     total,
		Direction: dir,
		GoldAfter: s.ledger.Balance(player, catalog.ResourceGold),
	})
}
