package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
)

func testLedger() (*Ledger, *clock.Fake) {
	clk := &clock.Fake{Current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(clk, nil), clk
}

func TestEnsurePlayerDefaults(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)

	if got := l.Balance(1, catalog.ResourceGold); got != 1000 {
		t.Errorf("starting gold = %.2f, want 1000", got)
	}
	if got := l.Morale(1); got != 100 {
		t.Errorf("starting morale = %.2f, want 100", got)
	}
	if got := l.Level(1); got != 1 {
		t.Errorf("starting level = %d, want 1", got)
	}

	// Second call must not reset anything.
	l.Credit(1, catalog.ResourceGold, 500, TxMeta{Kind: TxEarn})
	l.EnsurePlayer(1)
	if got := l.Balance(1, catalog.ResourceGold); got != 1500 {
		t.Errorf("gold after re-ensure = %.2f, want 1500", got)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)

	err := l.Debit(1, catalog.ResourceGold, 1500, TxMeta{Kind: TxSpend})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Debit err = %v, want ErrInsufficientFunds", err)
	}
	if got := l.Balance(1, catalog.ResourceGold); got != 1000 {
		t.Errorf("balance after failed debit = %.2f, want 1000 (unchanged)", got)
	}

	if err := l.Debit(1, catalog.ResourceGold, 400, TxMeta{Kind: TxSpend}); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if got := l.Balance(1, catalog.ResourceGold); got != 600 {
		t.Errorf("balance = %.2f, want 600", got)
	}
}

func TestDebitUnknownPlayer(t *testing.T) {
	l, _ := testLedger()
	err := l.Debit(99, catalog.ResourceGold, 1, TxMeta{Kind: TxSpend})
	if !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("Debit err = %v, want ErrUnknownPlayer", err)
	}
}

func TestCreditClampsAtCapacity(t *testing.T) {
	clk := &clock.Fake{Current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(clk, map[catalog.ResourceType]float64{catalog.ResourceFood: 100})
	l.EnsurePlayer(1)

	l.Credit(1, catalog.ResourceFood, 80, TxMeta{Kind: TxEarn})
	l.Credit(1, catalog.ResourceFood, 50, TxMeta{Kind: TxEarn})
	if got := l.Balance(1, catalog.ResourceFood); got != 100 {
		t.Errorf("food = %.2f, want 100 (clamped at capacity)", got)
	}

	// Gold has no configured capacity.
	l.Credit(1, catalog.ResourceGold, 1e6, TxMeta{Kind: TxEarn})
	if got := l.Balance(1, catalog.ResourceGold); got != 1000+1e6 {
		t.Errorf("gold = %.2f, want %.2f", got, 1000+1e6)
	}
}

func TestTransferAtomicity(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)
	l.EnsurePlayer(2)

	if err := l.Transfer(1, 2, catalog.ResourceGold, 300, TxMeta{Description: "tribute"}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := l.Balance(1, catalog.ResourceGold); got != 700 {
		t.Errorf("sender gold = %.2f, want 700", got)
	}
	if got := l.Balance(2, catalog.ResourceGold); got != 1300 {
		t.Errorf("receiver gold = %.2f, want 1300", got)
	}

	// A failed transfer changes neither side.
	err := l.Transfer(1, 2, catalog.ResourceGold, 5000, TxMeta{})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Transfer err = %v, want ErrInsufficientFunds", err)
	}
	if got := l.Balance(1, catalog.ResourceGold); got != 700 {
		t.Errorf("sender gold after failed transfer = %.2f, want 700", got)
	}
	if got := l.Balance(2, catalog.ResourceGold); got != 1300 {
		t.Errorf("receiver gold after failed transfer = %.2f, want 1300", got)
	}
}

func TestTransferSelfRejected(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)
	if err := l.Transfer(1, 1, catalog.ResourceGold, 10, TxMeta{}); err == nil {
		t.Fatal("self-transfer accepted, want error")
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)
	// 1000 gold, 200 workers each trying to debit 10: at most 100 succeed.

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Debit(1, catalog.ResourceGold, 10, TxMeta{Kind: TxSpend}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 100 {
		t.Errorf("successful debits = %d, want 100", succeeded)
	}
	if got := l.Balance(1, catalog.ResourceGold); got != 0 {
		t.Errorf("final balance = %.2f, want 0", got)
	}
}

func TestConcurrentOpposedTransfers(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)
	l.EnsurePlayer(2)

	// Opposed transfers exercise the lock-ordering path; total gold is conserved.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Transfer(1, 2, catalog.ResourceGold, 5, TxMeta{})
		}()
		go func() {
			defer wg.Done()
			l.Transfer(2, 1, catalog.ResourceGold, 5, TxMeta{})
		}()
	}
	wg.Wait()

	total := l.Balance(1, catalog.ResourceGold) + l.Balance(2, catalog.ResourceGold)
	if total != 2000 {
		t.Errorf("total gold = %.2f, want 2000 (conserved)", total)
	}
}

func TestMoraleClamped(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)

	l.AdjustMorale(1, 50)
	if got := l.Morale(1); got != 100 {
		t.Errorf("morale = %.2f, want 100 (clamped)", got)
	}
	l.AdjustMorale(1, -250)
	if got := l.Morale(1); got != 0 {
		t.Errorf("morale = %.2f, want 0 (clamped)", got)
	}
}

func TestExperienceLevelUps(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)

	l.AddExperience(1, 999)
	if got := l.Level(1); got != 1 {
		t.Errorf("level = %d, want 1", got)
	}
	l.AddExperience(1, 1) // 1000 total, level 2
	if got := l.Level(1); got != 2 {
		t.Errorf("level = %d, want 2", got)
	}
	l.AddExperience(1, 2000) // exactly enough for level 3
	if got := l.Level(1); got != 3 {
		t.Errorf("level = %d, want 3", got)
	}
}

func TestRecentTransactionsNewestFirst(t *testing.T) {
	l, clk := testLedger()
	l.EnsurePlayer(1)

	for i := 0; i < 5; i++ {
		l.Credit(1, catalog.ResourceGold, float64(i+1), TxMeta{Kind: TxEarn})
		clk.Advance(time.Minute)
	}

	txs := l.RecentTransactions(1, 3)
	if len(txs) != 3 {
		t.Fatalf("len = %d, want 3", len(txs))
	}
	if txs[0].Amount != 5 || txs[1].Amount != 4 || txs[2].Amount != 3 {
		t.Errorf("amounts = %.0f, %.0f, %.0f, want 5, 4, 3",
			txs[0].Amount, txs[1].Amount, txs[2].Amount)
	}
	if !txs[0].Timestamp.After(txs[1].Timestamp) {
		t.Error("transactions not ordered newest first")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	l, _ := testLedger()
	l.EnsurePlayer(1)
	l.Credit(1, catalog.ResourceMaterials, 42, TxMeta{Kind: TxEarn})
	l.AdjustMorale(1, -30)
	l.AddExperience(1, 1500)

	snap, ok := l.SnapshotOf(1)
	if !ok {
		t.Fatal("SnapshotOf returned false")
	}
	txs := l.RecentTransactions(1, 100)

	l2, _ := testLedger()
	l2.Restore(snap, txs)

	if got := l2.Balance(1, catalog.ResourceMaterials); got != 42 {
		t.Errorf("restored materials = %.2f, want 42", got)
	}
	if got := l2.Morale(1); got != 70 {
		t.Errorf("restored morale = %.2f, want 70", got)
	}
	if got := l2.Level(1); got != 2 {
		t.Errorf("restored level = %d, want 2", got)
	}
	if got := len(l2.RecentTransactions(1, 100)); got != len(txs) {
		t.Errorf("restored tx count = %d, want %d", got, len(txs))
	}
}
