package quest

import (
	"errors"
	"testing"
	"time"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
	"github.com/talgya/warfront/internal/ledger"
)

type stubUnits map[string]int

func (s stubUnits) UnitCount(_ ledger.PlayerID, unit string) int { return s[unit] }

func testTracker(t *testing.T, units UnitSource) (*Tracker, *ledger.Ledger, *clock.Fake) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	clk := &clock.Fake{Current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	led := ledger.New(clk, nil)
	led.EnsurePlayer(1)
	return NewTracker(cat, led, units, nil, clk), led, clk
}

func TestAcceptQuestLifecycle(t *testing.T) {
	tr, led, _ := testTracker(t, nil)

	id, err := tr.AcceptQuest(1, "recon-1")
	if err != nil {
		t.Fatalf("AcceptQuest: %v", err)
	}

	task, ok := tr.Get(id)
	if !ok {
		t.Fatal("task not found after accept")
	}
	if task.Status != StatusActive || task.Kind != KindQuest {
		t.Errorf("task = %s/%s, want active/quest", task.Status, task.Kind)
	}
	if task.Duration != 30*time.Minute {
		t.Errorf("duration = %v, want 30m", task.Duration)
	}

	goldBefore := led.Balance(1, catalog.ResourceGold)
	if err := tr.Advance(id, 0.5); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if task, _ = tr.Get(id); task.Progress != 0.5 {
		t.Errorf("progress = %.2f, want 0.5", task.Progress)
	}
	if err := tr.Advance(id, 0.6); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	task, _ = tr.Get(id)
	if task.Status != StatusCompleted || task.Progress != 1.0 {
		t.Errorf("task after full progress = %s/%.2f, want completed/1.0", task.Status, task.Progress)
	}
	if task.CompletedAt == nil {
		t.Error("completed task has no completion time")
	}
	// recon-1 pays 200 gold.
	if got := led.Balance(1, catalog.ResourceGold); got != goldBefore+200 {
		t.Errorf("gold = %.2f, want %.2f (reward paid once)", got, goldBefore+200)
	}

	// Terminal states are final: a second completion pays nothing.
	tr.Complete(id)
	if got := led.Balance(1, catalog.ResourceGold); got != goldBefore+200 {
		t.Errorf("gold after repeat complete = %.2f, want %.2f", got, goldBefore+200)
	}
	if err := tr.Advance(id, 0.1); !errors.Is(err, ErrNotActive) {
		t.Errorf("Advance on completed task err = %v, want ErrNotActive", err)
	}
}

func TestAcceptQuestRejections(t *testing.T) {
	tr, led, _ := testTracker(t, stubUnits{"rifleman": 3})

	if _, err := tr.AcceptQuest(1, "no-such-quest"); !errors.Is(err, ErrUnknownDefinition) {
		t.Errorf("unknown quest err = %v, want ErrUnknownDefinition", err)
	}

	// escort-1 needs level 2; a fresh player is level 1.
	if _, err := tr.AcceptQuest(1, "escort-1"); !errors.Is(err, ErrRequirementsNotMet) {
		t.Errorf("underleveled err = %v, want ErrRequirementsNotMet", err)
	}

	// sabotage-2 needs level 4 and 5 riflemen; we have 3.
	led.AddExperience(1, 10000)
	if _, err := tr.AcceptQuest(1, "sabotage-2"); !errors.Is(err, ErrRequirementsNotMet) {
		t.Errorf("missing units err = %v, want ErrRequirementsNotMet", err)
	}

	// Same quest twice.
	if _, err := tr.AcceptQuest(1, "recon-1"); err != nil {
		t.Fatalf("AcceptQuest: %v", err)
	}
	if _, err := tr.AcceptQuest(1, "recon-1"); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("duplicate quest err = %v, want ErrAlreadyActive", err)
	}
}

func TestActiveQuestCap(t *testing.T) {
	tr, led, _ := testTracker(t, nil)
	led.AddExperience(1, 10000)

	for _, q := range []string{"recon-1", "recon-2", "escort-1"} {
		if _, err := tr.AcceptQuest(1, q); err != nil {
			t.Fatalf("AcceptQuest(%s): %v", q, err)
		}
	}
	if _, err := tr.AcceptQuest(1, "sabotage-1"); !errors.Is(err, ErrTooManyActive) {
		t.Fatalf("fourth quest err = %v, want ErrTooManyActive", err)
	}

	// Another player has their own cap.
	led.EnsurePlayer(2)
	if _, err := tr.AcceptQuest(2, "recon-1"); err != nil {
		t.Errorf("player 2 AcceptQuest: %v", err)
	}

	// Finishing one quest frees a slot.
	tasks := tr.TasksOf(1)
	tr.Complete(tasks[0].ID)
	if _, err := tr.AcceptQuest(1, "sabotage-1"); err != nil {
		t.Errorf("AcceptQuest after freeing a slot: %v", err)
	}
}

func TestSweepExpirations(t *testing.T) {
	tr, _, clk := testTracker(t, nil)

	questID, err := tr.AcceptQuest(1, "recon-1") // 30m duration
	if err != nil {
		t.Fatalf("AcceptQuest: %v", err)
	}
	tr.ledger.Credit(1, catalog.ResourceKnowledge, 500, ledger.TxMeta{Kind: ledger.TxEarn})
	researchID, err := tr.StartResearch(1, "Basic Training")
	if err != nil {
		t.Fatalf("StartResearch: %v", err)
	}

	if expired := tr.SweepExpirations(clk.Now().Add(29 * time.Minute)); len(expired) != 0 {
		t.Errorf("expired before deadline: %v", expired)
	}

	expired := tr.SweepExpirations(clk.Now().Add(31 * time.Minute))
	if len(expired) != 1 || expired[0] != questID {
		t.Fatalf("expired = %v, want [%s]", expired, questID)
	}
	task, _ := tr.Get(questID)
	if task.Status != StatusExpired {
		t.Errorf("quest status = %s, want expired", task.Status)
	}

	// Research has no deadline.
	task, _ = tr.Get(researchID)
	if task.Status != StatusActive {
		t.Errorf("research status = %s, want still active", task.Status)
	}
}

func TestFail(t *testing.T) {
	tr, _, _ := testTracker(t, nil)
	id, _ := tr.AcceptQuest(1, "recon-1")

	tr.Fail(id, "convoy ambushed")
	task, _ := tr.Get(id)
	if task.Status != StatusFailed || task.FailReason != "convoy ambushed" {
		t.Errorf("task = %s/%q, want failed/convoy ambushed", task.Status, task.FailReason)
	}

	// Already terminal, the second reason is dropped.
	tr.Fail(id, "other")
	task, _ = tr.Get(id)
	if task.FailReason != "convoy ambushed" {
		t.Errorf("fail reason overwritten to %q", task.FailReason)
	}
}

func TestStartResearch(t *testing.T) {
	tr, led, _ := testTracker(t, nil)

	// No knowledge yet.
	if _, err := tr.StartResearch(1, "Basic Training"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("unfunded research err = %v, want ErrInsufficientFunds", err)
	}
	if got := tr.ActiveCount(); got != 0 {
		t.Fatalf("active tasks after failed start = %d, want 0", got)
	}

	led.Credit(1, catalog.ResourceKnowledge, 1000, ledger.TxMeta{Kind: ledger.TxEarn})

	// Prerequisite not completed.
	if _, err := tr.StartResearch(1, "Armored Warfare"); !errors.Is(err, ErrRequirementsNotMet) {
		t.Fatalf("missing prereq err = %v, want ErrRequirementsNotMet", err)
	}

	id, err := tr.StartResearch(1, "Basic Training")
	if err != nil {
		t.Fatalf("StartResearch: %v", err)
	}
	if got := led.Balance(1, catalog.ResourceKnowledge); got != 900 {
		t.Errorf("knowledge after debit = %.2f, want 900", got)
	}

	if _, err := tr.StartResearch(1, "Basic Training"); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("duplicate research err = %v, want ErrAlreadyActive", err)
	}

	tr.Complete(id)
	if _, err := tr.StartResearch(1, "Basic Training"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("repeat research err = %v, want ErrAlreadyCompleted", err)
	}

	// Prerequisite satisfied now.
	if _, err := tr.StartResearch(1, "Armored Warfare"); err != nil {
		t.Errorf("StartResearch with prereq done: %v", err)
	}
}

func TestEffectsFor(t *testing.T) {
	tr, led, _ := testTracker(t, nil)
	led.Credit(1, catalog.ResourceKnowledge, 5000, ledger.TxMeta{Kind: ledger.TxEarn})

	// A fresh player has neutral effects.
	eff := tr.EffectsFor(1)
	if eff.ResearchSpeed != 1.0 || eff.CombatBonus(catalog.UnitInfantry) != 0 {
		t.Errorf("fresh effects = %+v, want neutral", eff)
	}

	complete := func(name string) {
		t.Helper()
		id, err := tr.StartResearch(1, name)
		if err != nil {
			t.Fatalf("StartResearch(%s): %v", name, err)
		}
		tr.Complete(id)
	}

	complete("Basic Training")       // infantry +0.2
	complete("Steel Production")     // iron production +0.3
	complete("Industrial Revolution") // all production +0.5
	complete("Scientific Method")    // research speed ×1.25

	eff = tr.EffectsFor(1)
	if got := eff.CombatBonus(catalog.UnitInfantry); got != 0.2 {
		t.Errorf("infantry bonus = %.2f, want 0.2", got)
	}
	if got := eff.ProductionBonus(catalog.ResourceIron); got != 0.8 {
		t.Errorf("iron production bonus = %.2f, want 0.8 (0.3 + 0.5 global)", got)
	}
	if got := eff.ProductionBonus(catalog.ResourceFood); got != 0.5 {
		t.Errorf("food production bonus = %.2f, want 0.5 (global only)", got)
	}
	if got := eff.ResearchSpeed; got != 1.25 {
		t.Errorf("research speed = %.2f, want 1.25", got)
	}

	techs := tr.CompletedTechnologies(1)
	if len(techs) != 4 {
		t.Errorf("completed technologies = %v, want 4 entries", techs)
	}

	// Effects are per player.
	led.EnsurePlayer(2)
	if got := tr.EffectsFor(2).CombatBonus(catalog.UnitInfantry); got != 0 {
		t.Errorf("player 2 infantry bonus = %.2f, want 0", got)
	}
}

func TestRestore(t *testing.T) {
	tr, _, _ := testTracker(t, nil)
	id, _ := tr.AcceptQuest(1, "recon-1")
	tr.Advance(id, 0.4)

	saved := tr.AllTasks()

	tr2, _, _ := testTracker(t, nil)
	tr2.Restore(saved)

	task, ok := tr2.Get(id)
	if !ok {
		t.Fatal("restored task not found")
	}
	if task.Progress != 0.4 || task.Status != StatusActive {
		t.Errorf("restored task = %.2f/%s, want 0.4/active", task.Progress, task.Status)
	}
	if got := len(tr2.TasksOf(1)); got != 1 {
		t.Errorf("restored tasks of player 1 = %d, want 1", got)
	}
}
