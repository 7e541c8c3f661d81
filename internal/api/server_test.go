package api

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/clock"
	"github.com/talgya/warfront/internal/combat"
	"github.com/talgya/warfront/internal/game"
	"github.com/talgya/warfront/internal/ledger"
	"github.com/talgya/warfront/internal/market"
	"github.com/talgya/warfront/internal/notify"
	"github.com/talgya/warfront/internal/quest"
	"github.com/talgya/warfront/internal/sched"
	"github.com/talgya/warfront/internal/world"
	"github.com/talgya/warfront/internal/worldevent"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	clk := &clock.Fake{Current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	led := ledger.New(clk, nil)
	atlas := world.NewAtlas(world.DefaultProvinces(), 42, clk.Current)
	events := worldevent.New(worldevent.DefaultConfig(), cat, atlas, nil, rand.New(rand.NewSource(1)))
	mkt := market.New(cat, events, nil, clk, rand.New(rand.NewSource(2)))
	resolver := combat.NewResolver(combat.DefaultConfig(), cat)
	tracker := quest.NewTracker(cat, led, nil, nil, clk)
	svc := game.New(game.DefaultConfig(), cat, led, mkt, resolver, tracker, events, atlas,
		nil, clk, rand.New(rand.NewSource(3)))
	tracker.SetUnitSource(svc)

	return &Server{
		Game:     svc,
		Ledger:   led,
		Market:   mkt,
		Tracker:  tracker,
		Events:   events,
		Atlas:    atlas,
		Sched:    sched.New(clk, time.Second),
		Clock:    clk,
		AdminKey: "test-key",
	}
}

func get(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func post(t *testing.T, handler http.HandlerFunc, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	s := testServer(t)
	rec := get(t, s.handleStatus, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"provinces": 12`) {
		t.Errorf("status missing province count: %s", body)
	}
}

func TestPricesAndHistory(t *testing.T) {
	s := testServer(t)

	rec := get(t, s.handlePrices, "/api/v1/prices")
	if rec.Code != http.StatusOK {
		t.Fatalf("prices code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"resource": "gold"`) {
		t.Error("prices response missing gold")
	}

	rec = get(t, s.handlePriceHistory, "/api/v1/prices/gold/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("history code = %d", rec.Code)
	}

	rec = get(t, s.handlePriceHistory, "/api/v1/prices/unobtainium/history")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown resource history code = %d, want 404", rec.Code)
	}

	rec = get(t, s.handlePriceHistory, "/api/v1/prices/gold/bogus")
	if rec.Code != http.StatusNotFound {
		t.Errorf("bad subpath code = %d, want 404", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s := testServer(t)
	handler := s.adminOnly(s.handleSpeed)

	// GET refused.
	rec := get(t, handler, "/api/v1/admin/speed")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET code = %d, want 405", rec.Code)
	}

	// Missing token.
	rec = post(t, handler, "/api/v1/admin/speed", `{"speed": 2}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no-token code = %d, want 401", rec.Code)
	}

	// Wrong token.
	rec = post(t, handler, "/api/v1/admin/speed", `{"speed": 2}`, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad-token code = %d, want 401", rec.Code)
	}

	// Correct token.
	rec = post(t, handler, "/api/v1/admin/speed", `{"speed": 2}`, "test-key")
	if rec.Code != http.StatusOK {
		t.Errorf("good-token code = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := s.Sched.Speed(); got != 2 {
		t.Errorf("scheduler speed = %.1f, want 2", got)
	}

	// No key configured disables the control plane entirely.
	s.AdminKey = ""
	rec = post(t, s.adminOnly(s.handleSpeed), "/api/v1/admin/speed", `{"speed": 2}`, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("disabled code = %d, want 403", rec.Code)
	}
}

func TestSpeedBounds(t *testing.T) {
	s := testServer(t)
	rec := post(t, s.handleSpeed, "/api/v1/admin/speed", `{"speed": 5000}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range speed code = %d, want 400", rec.Code)
	}
}

func TestPlayerProfile(t *testing.T) {
	s := testServer(t)

	rec := get(t, s.handlePlayer, "/api/v1/player/1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown player code = %d, want 404", rec.Code)
	}

	s.Game.RegisterPlayer(1)
	rec = get(t, s.handlePlayer, "/api/v1/player/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("profile code = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, key := range []string{`"account"`, `"units"`, `"tasks"`, `"provinces"`} {
		if !strings.Contains(body, key) {
			t.Errorf("profile missing %s", key)
		}
	}

	rec = get(t, s.handlePlayer, "/api/v1/player/abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id code = %d, want 400", rec.Code)
	}
}

func TestPlayerBuyAction(t *testing.T) {
	s := testServer(t)

	rec := post(t, s.handlePlayer, "/api/v1/player/1/buy",
		`{"resource": "food", "quantity": 10}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("buy code = %d: %s", rec.Code, rec.Body.String())
	}
	if got := s.Ledger.Balance(1, catalog.ResourceFood); got != 10 {
		t.Errorf("food after buy = %.2f, want 10", got)
	}

	// Overdraw maps to 409.
	rec = post(t, s.handlePlayer, "/api/v1/player/1/buy",
		`{"resource": "technology", "quantity": 1000000}`, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("overdraw code = %d, want 409", rec.Code)
	}

	// Unknown resource maps to 404.
	rec = post(t, s.handlePlayer, "/api/v1/player/1/buy",
		`{"resource": "unobtainium", "quantity": 1}`, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown resource code = %d, want 404", rec.Code)
	}

	// Actions require POST.
	rec = get(t, s.handlePlayer, "/api/v1/player/1/buy")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET action code = %d, want 405", rec.Code)
	}

	rec = post(t, s.handlePlayer, "/api/v1/player/1/dance", `{}`, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown action code = %d, want 404", rec.Code)
	}
}

func TestPlayerQuestAction(t *testing.T) {
	s := testServer(t)

	rec := post(t, s.handlePlayer, "/api/v1/player/1/quest", `{"quest_id": "recon-1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("quest code = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status": "active"`) {
		t.Errorf("quest response missing active status: %s", rec.Body.String())
	}

	// Same quest twice conflicts.
	rec = post(t, s.handlePlayer, "/api/v1/player/1/quest", `{"quest_id": "recon-1"}`, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate quest code = %d, want 409", rec.Code)
	}

	rec = post(t, s.handlePlayer, "/api/v1/player/1/quest", `{"quest_id": "nope"}`, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown quest code = %d, want 404", rec.Code)
	}
}

func TestGrant(t *testing.T) {
	s := testServer(t)

	rec := post(t, s.handleGrant, "/api/v1/admin/grant",
		`{"player_id": 5, "resource": "gold", "amount": 250}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("grant code = %d: %s", rec.Code, rec.Body.String())
	}
	// 1000 starting + 250 granted.
	if got := s.Ledger.Balance(5, catalog.ResourceGold); got != 1250 {
		t.Errorf("gold after grant = %.2f, want 1250", got)
	}

	rec = post(t, s.handleGrant, "/api/v1/admin/grant",
		`{"player_id": 5, "resource": "gold", "amount": -10}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative grant code = %d, want 400", rec.Code)
	}
}

func TestInjectEvent(t *testing.T) {
	s := testServer(t)

	rec := post(t, s.handleInjectEvent, "/api/v1/admin/inject-event",
		`{"category": "economic", "title": "Market Crash", "impact": -0.2, "intensity": 0.9}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("inject code = %d: %s", rec.Code, rec.Body.String())
	}
	events := s.Events.ActiveEvents(s.Clock.Now())
	if len(events) != 1 || events[0].Title != "Market Crash" {
		t.Fatalf("active events = %+v, want the injected crash", events)
	}

	rec = post(t, s.handleInjectEvent, "/api/v1/admin/inject-event", `{"impact": 1}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("titleless inject code = %d, want 400", rec.Code)
	}
}

func TestCompleteTask(t *testing.T) {
	s := testServer(t)
	s.Game.RegisterPlayer(1)
	id, err := s.Tracker.AcceptQuest(1, "recon-1")
	if err != nil {
		t.Fatalf("AcceptQuest: %v", err)
	}

	rec := post(t, s.handleCompleteTask, "/api/v1/admin/complete-task",
		`{"task_id": "`+string(id)+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete code = %d: %s", rec.Code, rec.Body.String())
	}
	task, _ := s.Tracker.Get(id)
	if task.Status != quest.StatusCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}

	rec = post(t, s.handleCompleteTask, "/api/v1/admin/complete-task", `{"task_id": "nope"}`, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown task code = %d, want 404", rec.Code)
	}
}

func TestFailTask(t *testing.T) {
	s := testServer(t)
	s.Game.RegisterPlayer(1)
	id, err := s.Tracker.AcceptQuest(1, "recon-1")
	if err != nil {
		t.Fatalf("AcceptQuest: %v", err)
	}

	rec := post(t, s.handleFailTask, "/api/v1/admin/fail-task",
		`{"task_id": "`+string(id)+`", "reason": "compromised"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("fail code = %d: %s", rec.Code, rec.Body.String())
	}
	task, _ := s.Tracker.Get(id)
	if task.Status != quest.StatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}
	if task.FailReason != "compromised" {
		t.Errorf("fail reason = %q, want %q", task.FailReason, "compromised")
	}

	rec = post(t, s.handleFailTask, "/api/v1/admin/fail-task", `{"task_id": "nope"}`, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown task code = %d, want 404", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed, limited := 0, 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		switch rec.Code {
		case http.StatusOK:
			allowed++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	if allowed == 0 || limited == 0 {
		t.Errorf("allowed=%d limited=%d, want a burst then throttling", allowed, limited)
	}

	// A different client gets its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("fresh client code = %d, want 200", rec.Code)
	}
}

func TestRateLimiterStop(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	rl.Stop()
	rl.Stop()

	// Limiting itself keeps working after the cleanup goroutine exits.
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.RemoteAddr = "10.0.0.3:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code after Stop = %d, want 200", rec.Code)
	}
}

func TestHubRejectsClientsAfterShutdown(t *testing.T) {
	h := NewHub(notify.NewBus())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	srv := httptest.NewServer(http.HandlerFunc(h.serveWs))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		// Upgrade refused outright also proves the handler did not hang.
		return
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection stayed open after hub shutdown")
	}
}
