// Package api provides the HTTP API for the war simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
	"github.com/talgya/warfront/internal/game"
	"github.com/talgya/warfront/internal/ledger"
	"github.com/talgya/warfront/internal/market"
	"github.com/talgya/warfront/internal/quest"
	"github.com/talgya/warfront/internal/sched"
	"github.com/talgya/warfront/internal/world"
	"github.com/talgya/warfront/internal/worldevent"
)

// Server serves the world state over HTTP.
type Server struct {
	Game     *game.Service
	Ledger   *ledger.Ledger
	Market   *market.Engine
	Tracker  *quest.Tracker
	Events   *worldevent.Generator
	Atlas    *world.Atlas
	Sched    *sched.Scheduler
	Clock    clock.Clock
	Hub      *Hub
	SaveFunc func() error // Forces a snapshot; nil disables /admin/snapshot.
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	httpServer *http.Server
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start(ctx context.Context) {
	limiter := NewRateLimiter(10, 30)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/prices", s.handlePrices)
	mux.HandleFunc("/api/v1/prices/", s.handlePriceHistory)
	mux.HandleFunc("/api/v1/market", s.handleMarketSummary)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/provinces", s.handleProvinces)
	mux.HandleFunc("/api/v1/player/", s.handlePlayer)
	mux.HandleFunc("/api/v1/stats", s.handleStats)

	// Streaming endpoint.
	if s.Hub != nil {
		mux.HandleFunc("/api/v1/stream", s.Hub.serveWs)
	}

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/admin/grant", s.adminOnly(s.handleGrant))
	mux.HandleFunc("/api/v1/admin/complete-task", s.adminOnly(s.handleCompleteTask))
	mux.HandleFunc("/api/v1/admin/fail-task", s.adminOnly(s.handleFailTask))
	mux.HandleFunc("/api/v1/admin/inject-event", s.adminOnly(s.handleInjectEvent))
	mux.HandleFunc("/api/v1/admin/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/admin/snapshot", s.adminOnly(s.handleSnapshot))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           limiter.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		limiter.Stop()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutCtx)
	}()
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires POST with a valid bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := s.Clock.Now()
	status := map[string]any{
		"name":          "Warfront",
		"time":          now.UTC().Format(time.RFC3339),
		"speed":         s.Sched.Speed(),
		"jobs":          s.Sched.Status(),
		"players":       len(s.Ledger.Players()),
		"active_events": len(s.Events.ActiveEvents(now)),
		"provinces":     len(s.Atlas.RegionIDs()),
	}
	writeJSON(w, status)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Market.Snapshot())
}

// handlePriceHistory serves GET /api/v1/prices/{resource}/history.
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/prices/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "history" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	rt := catalog.ResourceType(parts[0])
	if _, ok := s.Market.Quote(rt); !ok {
		http.Error(w, "unknown resource", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"resource": rt,
		"history":  s.Market.History(rt),
	})
}

func (s *Server) handleMarketSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Market.Summarize())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	now := s.Clock.Now()
	events := s.Events.ActiveEvents(now)
	if r.URL.Query().Get("all") == "true" {
		events = s.Events.AllEvents()
	}
	writeJSON(w, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Atlas.All())
}

// handlePlayer routes /api/v1/player/{id} (GET profile) and the action
// subpaths /api/v1/player/{id}/{action} (POST).
func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/player/")
	parts := strings.SplitN(path, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}
	player := ledger.PlayerID(id)

	if len(parts) == 2 && parts[1] != "" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handlePlayerAction(w, r, player, parts[1])
		return
	}

	snapshot, ok := s.Ledger.SnapshotOf(player)
	if !ok {
		http.Error(w, "unknown player", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"account":      snapshot,
		"units":        s.Game.UnitsOf(player),
		"tasks":        s.Tracker.TasksOf(player),
		"technologies": s.Tracker.CompletedTechnologies(player),
		"transactions": s.Ledger.RecentTransactions(player, 20),
		"provinces":    s.Atlas.OwnedBy(id),
	})
}

// handlePlayerAction executes one game operation on behalf of a player.
// Foreground traffic arrives through the chat frontends, which proxy here.
func (s *Server) handlePlayerAction(w http.ResponseWriter, r *http.Request, player ledger.PlayerID, action string) {
	s.Game.RegisterPlayer(player)

	switch action {
	case "buy", "sell":
		var req struct {
			Resource catalog.ResourceType `json:"resource"`
			Quantity float64              `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		var err error
		if action == "buy" {
			err = s.Game.BuyResource(player, req.Resource, req.Quantity)
		} else {
			err = s.Game.SellResource(player, req.Resource, req.Quantity)
		}
		if err != nil {
			http.Error(w, err.Error(), actionStatus(err))
			return
		}
		writeJSON(w, map[string]any{
			"resource": req.Resource,
			"balance":  s.Ledger.Balance(player, req.Resource),
			"gold":     s.Ledger.Balance(player, catalog.ResourceGold),
		})

	case "trade":
		var req struct {
			Give     catalog.ResourceType `json:"give"`
			Quantity float64              `json:"quantity"`
			Get      catalog.ResourceType `json:"get"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		received, err := s.Game.TradeResources(player, req.Give, req.Quantity, req.Get)
		if err != nil {
			http.Error(w, err.Error(), actionStatus(err))
			return
		}
		writeJSON(w, map[string]any{"received": received, "resource": req.Get})

	case "build":
		var req struct {
			Unit  string `json:"unit"`
			Count int    `json:"count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.Game.BuildUnits(player, req.Unit, req.Count); err != nil {
			http.Error(w, err.Error(), actionStatus(err))
			return
		}
		writeJSON(w, map[string]any{"units": s.Game.UnitsOf(player)})

	case "attack":
		var req struct {
			DefenderID int64 `json:"defender_id"`
			ProvinceID int64 `json:"province_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		result, err := s.Game.Attack(player, ledger.PlayerID(req.DefenderID), req.ProvinceID)
		if err != nil {
			http.Error(w, err.Error(), actionStatus(err))
			return
		}
		writeJSON(w, result)

	case "quest":
		var req struct {
			QuestID string `json:"quest_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		taskID, err := s.Tracker.AcceptQuest(player, req.QuestID)
		if err != nil {
			http.Error(w, err.Error(), actionStatus(err))
			return
		}
		task, _ := s.Tracker.Get(taskID)
		writeJSON(w, task)

	case "research":
		var req struct {
			Technology string `json:"technology"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		taskID, err := s.Tracker.StartResearch(player, req.Technology)
		if err != nil {
			http.Error(w, err.Error(), actionStatus(err))
			return
		}
		task, _ := s.Tracker.Get(taskID)
		writeJSON(w, task)

	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

// actionStatus maps game errors onto HTTP statuses.
func actionStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrUnknownResource),
		errors.Is(err, game.ErrUnknownUnit),
		errors.Is(err, game.ErrUnknownProvince),
		errors.Is(err, quest.ErrUnknownDefinition),
		errors.Is(err, quest.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, game.ErrAttackCooldown),
		errors.Is(err, game.ErrMoraleTooLow),
		errors.Is(err, quest.ErrTooManyActive),
		errors.Is(err, quest.ErrAlreadyActive),
		errors.Is(err, quest.ErrRequirementsNotMet):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Game.Stats(s.Clock.Now()))
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID int64                `json:"player_id"`
		Resource catalog.ResourceType `json:"resource"`
		Amount   float64              `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}
	player := ledger.PlayerID(req.PlayerID)
	s.Game.RegisterPlayer(player)
	s.Ledger.Credit(player, req.Resource, req.Amount, ledger.TxMeta{
		Kind:        ledger.TxEarn,
		Description: "Admin grant",
	})
	slog.Info("admin grant", "player", req.PlayerID, "resource", req.Resource, "amount", req.Amount)
	writeJSON(w, map[string]any{
		"player_id": req.PlayerID,
		"resource":  req.Resource,
		"balance":   s.Ledger.Balance(player, req.Resource),
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	id := quest.TaskID(req.TaskID)
	if _, ok := s.Tracker.Get(id); !ok {
		http.Error(w, "unknown task", http.StatusNotFound)
		return
	}
	s.Tracker.Complete(id)
	task, _ := s.Tracker.Get(id)
	slog.Info("admin task completion", "task", req.TaskID, "status", task.Status)
	writeJSON(w, task)
}

func (s *Server) handleFailTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"task_id"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	id := quest.TaskID(req.TaskID)
	if _, ok := s.Tracker.Get(id); !ok {
		http.Error(w, "unknown task", http.StatusNotFound)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "failed by administrator"
	}
	s.Tracker.Fail(id, reason)
	task, _ := s.Tracker.Get(id)
	slog.Info("admin task failure", "task", req.TaskID, "status", task.Status)
	writeJSON(w, task)
}

func (s *Server) handleInjectEvent(w http.ResponseWriter, r *http.Request) {
	var ev worldevent.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if ev.Category == "" || ev.Title == "" {
		http.Error(w, "category and title are required", http.StatusBadRequest)
		return
	}
	injected := s.Events.Inject(ev, s.Clock.Now())
	slog.Info("admin event injected", "id", injected.ID, "title", injected.Title)
	writeJSON(w, injected)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	s.Sched.SetSpeed(req.Speed)
	writeJSON(w, map[string]float64{"speed": s.Sched.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.SaveFunc == nil {
		http.Error(w, "snapshots disabled", http.StatusServiceUnavailable)
		return
	}
	if err := s.SaveFunc(); err != nil {
		slog.Error("snapshot failed", "err", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "saved"})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
