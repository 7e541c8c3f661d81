// Package ledger is the sole mutator of per-player balances and morale.
// All mutations for one player are serialized behind that player's lock, so
// two concurrent trades can never race past each other's balance check.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
)

// PlayerID identifies a player account.
type PlayerID int64

// ErrInsufficientFunds is returned by Debit when the balance is too low.
// The balance is left unchanged.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownPlayer is returned for operations against a player that was never created.
var ErrUnknownPlayer = errors.New("unknown player")

// TxKind classifies a transaction record.
type TxKind string

const (
	TxBuy   TxKind = "buy"
	TxSell  TxKind = "sell"
	TxTrade TxKind = "trade"
	TxEarn  TxKind = "earn"
	TxSpend TxKind = "spend"
)

// TxMeta carries the audit fields recorded alongside a mutation.
type TxMeta struct {
	Kind        TxKind
	UnitPrice   float64
	Description string
}

// Transaction is an immutable audit log entry.
type Transaction struct {
	ID          string               `json:"id"`
	PlayerID    PlayerID             `json:"player_id"`
	Resource    catalog.ResourceType `json:"resource"`
	Amount      float64              `json:"amount"`
	UnitPrice   float64              `json:"unit_price"`
	Kind        TxKind               `json:"kind"`
	Timestamp   time.Time            `json:"timestamp"`
	Description string               `json:"description"`
}

// Recent activity window; older entries are discardable.
const maxTransactions = 1000

const (
	startingGold   = 1000.0
	startingMorale = 100.0
)

type account struct {
	mu         sync.Mutex
	balances   map[catalog.ResourceType]float64
	morale     float64
	level      int
	experience int
	txs        []Transaction
}

// Ledger holds every player account.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[PlayerID]*account

	// Optional per-resource storage capacity; credits clamp at it.
	capacity map[catalog.ResourceType]float64

	clk clock.Clock
}

// New creates an empty ledger. capacity may be nil (unbounded storage).
func New(clk clock.Clock, capacity map[catalog.ResourceType]float64) *Ledger {
	return &Ledger{
		accounts: make(map[PlayerID]*account),
		capacity: capacity,
		clk:      clk,
	}
}

// EnsurePlayer creates the account on first interaction. Idempotent.
func (l *Ledger) EnsurePlayer(id PlayerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[id]; ok {
		return
	}
	l.accounts[id] = &account{
		balances: map[catalog.ResourceType]float64{catalog.ResourceGold: startingGold},
		morale:   startingMorale,
		level:    1,
	}
}

func (l *Ledger) get(id PlayerID) (*account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[id]
	return a, ok
}

// Debit removes amount of a resource, failing atomically when the balance is short.
func (l *Ledger) Debit(id PlayerID, rt catalog.ResourceType, amount float64, meta TxMeta) error {
	if amount < 0 {
		return fmt.Errorf("debit %s: negative amount %.2f", rt, amount)
	}
	a, ok := l.get(id)
	if !ok {
		return fmt.Errorf("debit player %d: %w", id, ErrUnknownPlayer)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.balances[rt] < amount {
		return fmt.Errorf("debit %.2f %s from player %d (have %.2f): %w",
			amount, rt, id, a.balances[rt], ErrInsufficientFunds)
	}
	a.balances[rt] -= amount
	l.record(a, id, rt, amount, meta)
	return nil
}

// Credit adds amount of a resource. Excess over any configured storage
// capacity is simply not added; this is not an error.
func (l *Ledger) Credit(id PlayerID, rt catalog.ResourceType, amount float64, meta TxMeta) {
	if amount < 0 {
		return
	}
	l.EnsurePlayer(id)
	a, _ := l.get(id)

	a.mu.Lock()
	defer a.mu.Unlock()

	added := amount
	if limit, ok := l.capacity[rt]; ok {
		room := limit - a.balances[rt]
		if room < 0 {
			room = 0
		}
		if added > room {
			added = room
		}
	}
	a.balances[rt] += added
	l.record(a, id, rt, added, meta)
}

// Transfer moves amount from one player to another. All-or-nothing: a failed
// debit leaves both sides untouched. Locks are taken in ascending player ID
// order so concurrent opposed transfers cannot deadlock.
func (l *Ledger) Transfer(from, to PlayerID, rt catalog.ResourceType, amount float64, meta TxMeta) error {
	if from == to {
		return fmt.Errorf("transfer: source and destination are the same player")
	}
	if amount < 0 {
		return fmt.Errorf("transfer %s: negative amount %.2f", rt, amount)
	}
	l.EnsurePlayer(to)
	src, ok := l.get(from)
	if !ok {
		return fmt.Errorf("transfer from player %d: %w", from, ErrUnknownPlayer)
	}
	dst, _ := l.get(to)

	first, second := src, dst
	if to < from {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if src.balances[rt] < amount {
		return fmt.Errorf("transfer %.2f %s from player %d (have %.2f): %w",
			amount, rt, from, src.balances[rt], ErrInsufficientFunds)
	}

	src.balances[rt] -= amount
	l.record(src, from, rt, amount, TxMeta{Kind: TxSpend, UnitPrice: meta.UnitPrice,
		Description: meta.Description})

	added := amount
	if limit, ok := l.capacity[rt]; ok {
		room := limit - dst.balances[rt]
		if room < 0 {
			room = 0
		}
		if added > room {
			added = room
		}
	}
	dst.balances[rt] += added
	l.record(dst, to, rt, added, TxMeta{Kind: TxEarn, UnitPrice: meta.UnitPrice,
		Description: meta.Description})
	return nil
}

// record appends a transaction under the account lock (callers hold a.mu).
func (l *Ledger) record(a *account, id PlayerID, rt catalog.ResourceType, amount float64, meta TxMeta) {
	a.txs = append(a.txs, Transaction{
		ID:          uuid.NewString(),
		PlayerID:    id,
		Resource:    rt,
		Amount:      amount,
		UnitPrice:   meta.UnitPrice,
		Kind:        meta.Kind,
		Timestamp:   l.clk.Now(),
		Description: meta.Description,
	})
	if len(a.txs) > maxTransactions {
		a.txs = a.txs[len(a.txs)-maxTransactions:]
	}
}

// Balance returns the current balance of one resource (0 for unknown players).
func (l *Ledger) Balance(id PlayerID, rt catalog.ResourceType) float64 {
	a, ok := l.get(id)
	if !ok {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[rt]
}

// Morale returns the player's morale (0 for unknown players).
func (l *Ledger) Morale(id PlayerID) float64 {
	a, ok := l.get(id)
	if !ok {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.morale
}

// AdjustMorale shifts morale by delta, clamped to [0, 100].
func (l *Ledger) AdjustMorale(id PlayerID, delta float64) {
	a, ok := l.get(id)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.morale += delta
	if a.morale > 100 {
		a.morale = 100
	}
	if a.morale < 0 {
		a.morale = 0
	}
}

// AddExperience grants experience and handles level-ups (1000 XP per level).
func (l *Ledger) AddExperience(id PlayerID, xp int) {
	a, ok := l.get(id)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.experience += xp
	for a.experience >= a.level*1000 {
		a.experience -= a.level * 1000
		a.level++
	}
}

// Level returns the player's level (0 for unknown players).
func (l *Ledger) Level(id PlayerID) int {
	a, ok := l.get(id)
	if !ok {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.level
}

// Snapshot is a point-in-time copy of one account.
type Snapshot struct {
	PlayerID   PlayerID                         `json:"player_id"`
	Balances   map[catalog.ResourceType]float64 `json:"balances"`
	Morale     float64                          `json:"morale"`
	Level      int                              `json:"level"`
	Experience int                              `json:"experience"`
}

// SnapshotOf copies one player's account.
func (l *Ledger) SnapshotOf(id PlayerID) (Snapshot, bool) {
	a, ok := l.get(id)
	if !ok {
		return Snapshot{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	balances := make(map[catalog.ResourceType]float64, len(a.balances))
	for rt, v := range a.balances {
		balances[rt] = v
	}
	return Snapshot{
		PlayerID:   id,
		Balances:   balances,
		Morale:     a.morale,
		Level:      a.level,
		Experience: a.experience,
	}, true
}

// RecentTransactions returns the newest n entries, newest first.
func (l *Ledger) RecentTransactions(id PlayerID, n int) []Transaction {
	a, ok := l.get(id)
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if n > len(a.txs) {
		n = len(a.txs)
	}
	out := make([]Transaction, n)
	for i := 0; i < n; i++ {
		out[i] = a.txs[len(a.txs)-1-i]
	}
	return out
}

// Players returns all known player IDs in ascending order.
func (l *Ledger) Players() []PlayerID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]PlayerID, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TotalGold sums gold across all accounts (admin statistic).
func (l *Ledger) TotalGold() float64 {
	total := 0.0
	for _, id := range l.Players() {
		total += l.Balance(id, catalog.ResourceGold)
	}
	return total
}

// Restore replaces one account's state wholesale. Used only when loading a
// saved world before the simulation starts.
func (l *Ledger) Restore(s Snapshot, txs []Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balances := make(map[catalog.ResourceType]float64, len(s.Balances))
	for rt, v := range s.Balances {
		balances[rt] = v
	}
	l.accounts[s.PlayerID] = &account{
		balances:   balances,
		morale:     s.Morale,
		level:      s.Level,
		experience: s.Experience,
		txs:        append([]Transaction(nil), txs...),
	}
}
