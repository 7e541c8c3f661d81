// Command warsim runs the Warfront persistent strategy game server.
package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/warfront/internal/api"
	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
	"github.com/talgya/warfront/internal/combat"
	"github.com/talgya/warfront/internal/game"
	"github.com/talgya/warfront/internal/ledger"
	"github.com/talgya/warfront/internal/market"
	"github.com/talgya/warfront/internal/notify"
	"github.com/talgya/warfront/internal/persistence"
	"github.com/talgya/warfront/internal/quest"
	"github.com/talgya/warfront/internal/sched"
	"github.com/talgya/warfront/internal/world"
	"github.com/talgya/warfront/internal/worldevent"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Warfront — persistent strategy game engine")

	dbPath := envOr("WARSIM_DB", "data/warfront.db")
	apiPort := envInt("WARSIM_PORT", 8080)
	seed := int64(envInt("WARSIM_SEED", 42))
	adminKey := os.Getenv("WARSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("WARSIM_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	// ── Catalog ───────────────────────────────────────────────────────
	var cat *catalog.Catalog
	var err error
	if path := os.Getenv("WARSIM_CATALOG"); path != "" {
		cat, err = catalog.Load(path)
		if err != nil {
			slog.Error("failed to load catalog", "path", path, "error", err)
			os.Exit(1)
		}
		slog.Info("catalog loaded with overrides", "path", path)
	} else {
		cat, err = catalog.Default()
		if err != nil {
			slog.Error("failed to build catalog", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("catalog ready",
		"resources", len(cat.Resources),
		"units", len(cat.Units),
		"quests", len(cat.Quests),
		"technologies", len(cat.Technologies),
	)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Engine subsystems ─────────────────────────────────────────────
	clk := clock.RealClock{}
	bus := notify.NewBus()
	rng := rand.New(rand.NewSource(seed))
	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	led := ledger.New(clk, nil)
	atlas := world.NewAtlas(world.DefaultProvinces(), seed, epoch)
	events := worldevent.New(worldevent.DefaultConfig(), cat, atlas, bus, rng)
	mkt := market.New(cat, events, bus, clk, rng)
	resolver := combat.NewResolver(combat.DefaultConfig(), cat)
	tracker := quest.NewTracker(cat, led, nil, bus, clk)
	svc := game.New(game.DefaultConfig(), cat, led, mkt, resolver, tracker,
		events, atlas, bus, clk, rng)
	tracker.SetUnitSource(svc)

	// ── Restore saved state ───────────────────────────────────────────
	if db.HasWorldState() {
		slog.Info("found saved world state, loading...")
		st, err := db.Load()
		if err != nil {
			slog.Error("failed to load world state", "error", err)
			os.Exit(1)
		}
		restore(st, led, mkt, tracker, events, atlas, svc)
		slog.Info("world state restored",
			"players", len(st.Players),
			"tasks", len(st.Tasks),
			"events", len(st.Events),
			"last_tick", st.LastTick,
		)
	} else {
		slog.Info("no saved state found, starting fresh world")
	}

	save := func() error {
		return db.Save(snapshot(clk, led, mkt, tracker, events, atlas, svc))
	}

	// Initial save so a fresh world survives an early crash.
	if !db.HasWorldState() {
		if err := save(); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Scheduler ─────────────────────────────────────────────────────
	scheduler := sched.New(clk, time.Second)
	scheduler.Register("market_tick", 30*time.Minute, func(now time.Time) error {
		mkt.Tick()
		return nil
	})
	scheduler.Register("world_events", time.Hour, func(now time.Time) error {
		events.Tick(now)
		return nil
	})
	scheduler.Register("task_progress", 5*time.Minute, func(now time.Time) error {
		svc.AdvanceTasks(now, 5*time.Minute)
		return nil
	})
	scheduler.Register("task_sweep", time.Hour, func(now time.Time) error {
		expired := tracker.SweepExpirations(now)
		if len(expired) > 0 {
			slog.Info("tasks expired", "count", len(expired))
		}
		return nil
	})
	scheduler.Register("settlement", time.Hour, func(now time.Time) error {
		svc.Settle(now)
		return nil
	})
	scheduler.Register("weather", 10*time.Minute, func(now time.Time) error {
		atlas.TickWeather(now)
		return nil
	})
	scheduler.Register("morale", time.Hour, func(now time.Time) error {
		svc.MoralePass(now)
		return nil
	})
	scheduler.Register("autosave", 15*time.Minute, func(now time.Time) error {
		return save()
	})

	// ── HTTP API ──────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := api.NewHub(bus)
	go hub.Run(ctx)

	server := &api.Server{
		Game:     svc,
		Ledger:   led,
		Market:   mkt,
		Tracker:  tracker,
		Events:   events,
		Atlas:    atlas,
		Sched:    scheduler,
		Clock:    clk,
		Hub:      hub,
		SaveFunc: save,
		Port:     apiPort,
		AdminKey: adminKey,
	}
	server.Start(ctx)

	slog.Info("world running", "api_port", apiPort, "seed", seed)
	scheduler.Run(ctx)

	// Final save on shutdown.
	slog.Info("final save...")
	if err := save(); err != nil {
		slog.Error("final save failed", "error", err)
	}
	slog.Info("shutdown complete")
}

// snapshot collects the full world state for persistence.
func snapshot(clk clock.Clock, led *ledger.Ledger, mkt *market.Engine,
	tracker *quest.Tracker, events *worldevent.Generator, atlas *world.Atlas,
	svc *game.Service) *persistence.State {

	st := &persistence.State{
		Prices:    mkt.Snapshot(),
		Tasks:     tracker.AllTasks(),
		Events:    events.AllEvents(),
		Provinces: atlas.All(),
		LastTick:  clk.Now(),
	}
	units := svc.AllUnits()
	for _, player := range led.Players() {
		snap, ok := led.SnapshotOf(player)
		if !ok {
			continue
		}
		st.Players = append(st.Players, persistence.PlayerRecord{
			Snapshot: snap,
			Units:    units[player],
		})
		st.Transactions = append(st.Transactions, led.RecentTransactions(player, 1000)...)
	}
	return st
}

// restore pushes a loaded state back into every subsystem.
func restore(st *persistence.State, led *ledger.Ledger, mkt *market.Engine,
	tracker *quest.Tracker, events *worldevent.Generator, atlas *world.Atlas,
	svc *game.Service) {

	txByPlayer := make(map[ledger.PlayerID][]ledger.Transaction)
	for _, tx := range st.Transactions {
		txByPlayer[tx.PlayerID] = append(txByPlayer[tx.PlayerID], tx)
	}

	units := make(map[ledger.PlayerID]map[string]int, len(st.Players))
	for _, p := range st.Players {
		led.Restore(p.Snapshot, txByPlayer[p.Snapshot.PlayerID])
		units[p.Snapshot.PlayerID] = p.Units
	}
	svc.RestoreUnits(units)

	for _, price := range st.Prices {
		mkt.Restore(price)
	}
	tracker.Restore(st.Tasks)
	events.Restore(st.Events)
	if len(st.Provinces) > 0 {
		atlas.Restore(st.Provinces)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
