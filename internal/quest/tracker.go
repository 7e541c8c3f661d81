// Package quest tracks long-running player tasks: quests and technology
// research. Tasks move strictly forward: active, then exactly one of
// completed, failed, or expired. Terminal states are final.
package quest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
	"github.com/talgya/warfront/internal/ledger"
	"github.com/talgya/warfront/internal/notify"
)

// TaskID identifies one accepted task.
type TaskID string

// Status of a task. Everything except StatusActive is terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Kind separates quest tasks from research tasks.
type Kind string

const (
	KindQuest    Kind = "quest"
	KindResearch Kind = "research"
)

// Task is one accepted quest or research project.
type Task struct {
	ID           TaskID          `json:"id"`
	OwnerID      ledger.PlayerID `json:"owner_id"`
	Kind         Kind            `json:"kind"`
	DefinitionID string          `json:"definition_id"` // quest ID or technology name
	Status       Status          `json:"status"`
	Progress     float64         `json:"progress"` // 0-1
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration"` // 0 = never expires (research)
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	FailReason   string          `json:"fail_reason,omitempty"`
}

// Accept errors.
var (
	ErrUnknownDefinition  = errors.New("unknown task definition")
	ErrAlreadyActive      = errors.New("task definition already active for owner")
	ErrAlreadyCompleted   = errors.New("already completed")
	ErrTooManyActive      = errors.New("active task limit reached")
	ErrRequirementsNotMet = errors.New("requirements not met")
	ErrTaskNotFound       = errors.New("task not found")
	ErrNotActive          = errors.New("task is not active")
)

// UnitSource reports a player's unit holdings for requirement checks.
type UnitSource interface {
	UnitCount(owner ledger.PlayerID, unit string) int
}

// MaxActiveQuests is the concurrent quest cap per player.
const MaxActiveQuests = 3

// Knowledge points consumed per research point of technology cost.
const researchCostResource = catalog.ResourceKnowledge

// Tracker owns all task state and is its sole mutator.
type Tracker struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	units   UnitSource
	bus     *notify.Bus
	clk     clock.Clock

	mu    sync.Mutex
	tasks map[TaskID]*Task
	order []TaskID // insertion order, for stable listings
}

// SetUnitSource wires the unit holdings lookup. The holdings live in the
// game service, which is constructed after the tracker.
func (t *Tracker) SetUnitSource(units UnitSource) {
	t.units = units
}

func NewTracker(cat *catalog.Catalog, led *ledger.Ledger, units UnitSource, bus *notify.Bus, clk clock.Clock) *Tracker {
	return &Tracker{
		catalog: cat,
		ledger:  led,
		units:   units,
		bus:     bus,
		clk:     clk,
		tasks:   make(map[TaskID]*Task),
	}
}

// AcceptQuest starts a quest for a player. Fails without side effects when
// requirements are unmet, the player already runs this quest, or the player
// is at the active-quest cap.
func (t *Tracker) AcceptQuest(owner ledger.PlayerID, questID string) (TaskID, error) {
	def, ok := t.catalog.Quest(questID)
	if !ok {
		return "", fmt.Errorf("quest %q: %w", questID, ErrUnknownDefinition)
	}
	if lvl := t.ledger.Level(owner); lvl < def.Requirements.Level {
		return "", fmt.Errorf("quest %q needs level %d, player %d is level %d: %w",
			questID, def.Requirements.Level, owner, lvl, ErrRequirementsNotMet)
	}
	if t.units != nil {
		for unit, need := range def.Requirements.Units {
			if have := t.units.UnitCount(owner, unit); have < need {
				return "", fmt.Errorf("quest %q needs %d %s, player %d has %d: %w",
					questID, need, unit, owner, have, ErrRequirementsNotMet)
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	active := 0
	for _, task := range t.tasks {
		if task.OwnerID != owner || task.Status != StatusActive {
			continue
		}
		if task.Kind == KindQuest && task.DefinitionID == questID {
			return "", fmt.Errorf("quest %q: %w", questID, ErrAlreadyActive)
		}
		if task.Kind == KindQuest {
			active++
		}
	}
	if active >= MaxActiveQuests {
		return "", fmt.Errorf("player %d has %d active quests: %w", owner, active, ErrTooManyActive)
	}

	id := TaskID(uuid.NewString())
	t.insert(&Task{
		ID:           id,
		OwnerID:      owner,
		Kind:         KindQuest,
		DefinitionID: questID,
		Status:       StatusActive,
		StartedAt:    t.clk.Now(),
		Duration:     def.Duration,
	})
	return id, nil
}

// StartResearch begins researching a technology. Prerequisites must be
// completed by the same owner, and the knowledge cost is debited up front;
// a failed debit leaves no task behind.
func (t *Tracker) StartResearch(owner ledger.PlayerID, techName string) (TaskID, error) {
	tech, ok := t.catalog.Technology(techName)
	if !ok {
		return "", fmt.Errorf("technology %q: %w", techName, ErrUnknownDefinition)
	}

	t.mu.Lock()
	completed := t.completedTechsLocked(owner)
	if completed[techName] {
		t.mu.Unlock()
		return "", fmt.Errorf("technology %q: %w", techName, ErrAlreadyCompleted)
	}
	for _, task := range t.tasks {
		if task.OwnerID == owner && task.Kind == KindResearch &&
			task.DefinitionID == techName && task.Status == StatusActive {
			t.mu.Unlock()
			return "", fmt.Errorf("technology %q: %w", techName, ErrAlreadyActive)
		}
	}
	for _, prereq := range tech.Prerequisites {
		if !completed[prereq] {
			t.mu.Unlock()
			return "", fmt.Errorf("technology %q needs %q first: %w", techName, prereq, ErrRequirementsNotMet)
		}
	}
	t.mu.Unlock()

	// Debit outside t.mu: the ledger has its own per-player lock.
	err := t.ledger.Debit(owner, researchCostResource, tech.Cost, ledger.TxMeta{
		Kind:        ledger.TxSpend,
		Description: fmt.Sprintf("Research started: %s", techName),
	})
	if err != nil {
		return "", fmt.Errorf("research %q: %w", techName, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	id := TaskID(uuid.NewString())
	t.insert(&Task{
		ID:           id,
		OwnerID:      owner,
		Kind:         KindResearch,
		DefinitionID: techName,
		Status:       StatusActive,
		StartedAt:    t.clk.Now(),
	})
	return id, nil
}

// insert registers a task. Callers hold t.mu.
func (t *Tracker) insert(task *Task) {
	t.tasks[task.ID] = task
	t.order = append(t.order, task.ID)
}

// Advance increments progress, clamped to [0, 1]. Reaching 1.0 completes the
// task within the same call.
func (t *Tracker) Advance(id TaskID, delta float64) error {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("advance %s: %w", id, ErrTaskNotFound)
	}
	if task.Status != StatusActive {
		t.mu.Unlock()
		return fmt.Errorf("advance %s (status %s): %w", id, task.Status, ErrNotActive)
	}
	task.Progress += delta
	if task.Progress < 0 {
		task.Progress = 0
	}
	if task.Progress < 1.0 {
		t.mu.Unlock()
		return nil
	}
	task.Progress = 1.0
	t.mu.Unlock()

	t.Complete(id)
	return nil
}

// Complete finishes a task and pays out its rewards. Calling it on a task
// already in a terminal state is a no-op, not an error.
func (t *Tracker) Complete(id TaskID) {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok || task.Status != StatusActive {
		t.mu.Unlock()
		return
	}
	task.Status = StatusCompleted
	task.Progress = 1.0
	now := t.clk.Now()
	task.CompletedAt = &now
	snapshot := *task
	t.mu.Unlock()

	rewards := t.payRewards(snapshot)

	if t.bus != nil {
		t.bus.Publish(notify.KindTaskCompleted, notify.TaskStatus{
			TaskID:       string(snapshot.ID),
			OwnerID:      int64(snapshot.OwnerID),
			DefinitionID: snapshot.DefinitionID,
			Status:       string(StatusCompleted),
			Rewards:      rewards,
		})
	}
}

// payRewards credits quest rewards through the ledger. Research tasks carry
// no direct payout; their effects become visible via EffectsFor.
func (t *Tracker) payRewards(task Task) catalog.QuestRewards {
	if task.Kind != KindQuest {
		return catalog.QuestRewards{}
	}
	def, ok := t.catalog.Quest(task.DefinitionID)
	if !ok {
		return catalog.QuestRewards{}
	}
	if def.Rewards.Gold > 0 {
		t.ledger.Credit(task.OwnerID, catalog.ResourceGold, def.Rewards.Gold, ledger.TxMeta{
			Kind:        ledger.TxEarn,
			Description: fmt.Sprintf("Quest reward: %s", def.Title),
		})
	}
	for rt, amount := range def.Rewards.Materials {
		t.ledger.Credit(task.OwnerID, rt, amount, ledger.TxMeta{
			Kind:        ledger.TxEarn,
			Description: fmt.Sprintf("Quest reward: %s", def.Title),
		})
	}
	if def.Rewards.Experience > 0 {
		t.ledger.AddExperience(task.OwnerID, def.Rewards.Experience)
	}
	return def.Rewards
}

// Fail moves an active task to the failed state. Terminal tasks are left alone.
func (t *Tracker) Fail(id TaskID, reason string) {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok || task.Status != StatusActive {
		t.mu.Unlock()
		return
	}
	task.Status = StatusFailed
	task.FailReason = reason
	now := t.clk.Now()
	task.CompletedAt = &now
	snapshot := *task
	t.mu.Unlock()

	if t.bus != nil {
		t.bus.Publish(notify.KindTaskFailed, notify.TaskStatus{
			TaskID:       string(snapshot.ID),
			OwnerID:      int64(snapshot.OwnerID),
			DefinitionID: snapshot.DefinitionID,
			Status:       string(StatusFailed),
			Reason:       reason,
		})
	}
}

// SweepExpirations expires every active task past its duration. Tasks with
// zero duration (research) never expire. Returns the expired task IDs.
func (t *Tracker) SweepExpirations(now time.Time) []TaskID {
	t.mu.Lock()
	var expired []*Task
	for _, task := range t.tasks {
		if task.Status != StatusActive || task.Duration <= 0 {
			continue
		}
		if now.Sub(task.StartedAt) > task.Duration {
			task.Status = StatusExpired
			done := now
			task.CompletedAt = &done
			snapshot := *task
			expired = append(expired, &snapshot)
		}
	}
	t.mu.Unlock()

	ids := make([]TaskID, 0, len(expired))
	for _, task := range expired {
		ids = append(ids, task.ID)
		if t.bus != nil {
			t.bus.Publish(notify.KindTaskExpired, notify.TaskStatus{
				TaskID:       string(task.ID),
				OwnerID:      int64(task.OwnerID),
				DefinitionID: task.DefinitionID,
				Status:       string(StatusExpired),
			})
		}
	}
	return ids
}

// Get returns a copy of one task.
func (t *Tracker) Get(id TaskID) (Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// TasksOf returns copies of all of one owner's tasks in acceptance order.
func (t *Tracker) TasksOf(owner ledger.PlayerID) []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Task
	for _, id := range t.order {
		if task, ok := t.tasks[id]; ok && task.OwnerID == owner {
			out = append(out, *task)
		}
	}
	return out
}

// AllTasks returns copies of every task in acceptance order.
func (t *Tracker) AllTasks() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Task, 0, len(t.order))
	for _, id := range t.order {
		if task, ok := t.tasks[id]; ok {
			out = append(out, *task)
		}
	}
	return out
}

// ActiveCount returns the number of active tasks across all owners.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, task := range t.tasks {
		if task.Status == StatusActive {
			n++
		}
	}
	return n
}

// Restore replaces all task state from a saved world.
func (t *Tracker) Restore(tasks []Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = make(map[TaskID]*Task, len(tasks))
	t.order = t.order[:0]
	for i := range tasks {
		task := tasks[i]
		t.tasks[task.ID] = &task
		t.order = append(t.order, task.ID)
	}
}
