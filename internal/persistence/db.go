// Package persistence provides SQLite-based world state storage. Saves are
// full replaces inside a transaction; a crash mid-save leaves the previous
// snapshot intact.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/combat"
	"github.com/talgya/warfront/internal/ledger"
	"github.com/talgya/warfront/internal/market"
	"github.com/talgya/warfront/internal/quest"
	"github.com/talgya/warfront/internal/world"
	"github.com/talgya/warfront/internal/worldevent"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY,
		balances_json TEXT NOT NULL,
		morale REAL NOT NULL,
		level INTEGER NOT NULL,
		experience INTEGER NOT NULL,
		units_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		player_id INTEGER NOT NULL,
		resource TEXT NOT NULL,
		amount REAL NOT NULL,
		unit_price REAL NOT NULL,
		kind TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prices (
		resource TEXT PRIMARY KEY,
		price REAL NOT NULL,
		previous_price REAL NOT NULL,
		demand REAL NOT NULL,
		supply REAL NOT NULL,
		last_updated TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		definition_id TEXT NOT NULL,
		status TEXT NOT NULL,
		progress REAL NOT NULL,
		started_at TEXT NOT NULL,
		duration INTEGER NOT NULL,
		completed_at TEXT,
		fail_reason TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS world_events (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		severity TEXT NOT NULL,
		resources_json TEXT NOT NULL,
		regions_json TEXT NOT NULL,
		impact REAL NOT NULL,
		intensity REAL NOT NULL,
		morale_delta REAL NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS provinces (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		owner INTEGER NOT NULL,
		infrastructure REAL NOT NULL,
		morale REAL NOT NULL,
		weather TEXT NOT NULL,
		temperature REAL NOT NULL,
		deposits_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_player ON transactions(player_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// State is everything a save round-trips.
type State struct {
	Players      []PlayerRecord
	Transactions []ledger.Transaction
	Prices       []market.Price
	Tasks        []quest.Task
	Events       []worldevent.Event
	Provinces    []world.Province
	LastTick     time.Time
}

// PlayerRecord joins a ledger snapshot with the player's unit holdings.
type PlayerRecord struct {
	Snapshot ledger.Snapshot
	Units    map[string]int
}

// Save writes the complete world state (full replace).
func (db *DB) Save(st *State) error {
	slog.Info("saving world state",
		"players", len(st.Players),
		"tasks", len(st.Tasks),
		"events", len(st.Events),
	)

	if err := db.savePlayers(st.Players); err != nil {
		return fmt.Errorf("save players: %w", err)
	}
	if err := db.saveTransactions(st.Transactions); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	if err := db.savePrices(st.Prices); err != nil {
		return fmt.Errorf("save prices: %w", err)
	}
	if err := db.saveTasks(st.Tasks); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	if err := db.saveEvents(st.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.saveProvinces(st.Provinces); err != nil {
		return fmt.Errorf("save provinces: %w", err)
	}
	if err := db.SaveMeta("last_tick", st.LastTick.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

// Load reads the complete world state back.
func (db *DB) Load() (*State, error) {
	st := &State{}
	var err error

	if st.Players, err = db.loadPlayers(); err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	if st.Transactions, err = db.loadTransactions(); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if st.Prices, err = db.loadPrices(); err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	if st.Tasks, err = db.loadTasks(); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if st.Events, err = db.loadEvents(); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if st.Provinces, err = db.loadProvinces(); err != nil {
		return nil, fmt.Errorf("load provinces: %w", err)
	}
	if tickStr, err := db.GetMeta("last_tick"); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, tickStr); err == nil {
			st.LastTick = t
		}
	}
	return st, nil
}

// HasWorldState reports whether a previous save exists.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta("last_tick")
	return err == nil
}

func (db *DB) savePlayers(players []PlayerRecord) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM players"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO players
		(id, balances_json, morale, level, experience, units_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		balancesJSON, _ := json.Marshal(p.Snapshot.Balances)
		unitsJSON, _ := json.Marshal(p.Units)
		_, err := stmt.Exec(
			p.Snapshot.PlayerID, string(balancesJSON),
			p.Snapshot.Morale, p.Snapshot.Level, p.Snapshot.Experience,
			string(unitsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert player %d: %w", p.Snapshot.PlayerID, err)
		}
	}
	return tx.Commit()
}

func (db *DB) loadPlayers() ([]PlayerRecord, error) {
	type row struct {
		ID           int64   `db:"id"`
		BalancesJSON string  `db:"balances_json"`
		Morale       float64 `db:"morale"`
		Level        int     `db:"level"`
		Experience   int     `db:"experience"`
		UnitsJSON    string  `db:"units_json"`
	}
	var rows []row
	if err := db.conn.Select(&rows, "SELECT * FROM players ORDER BY id"); err != nil {
		return nil, err
	}

	out := make([]PlayerRecord, 0, len(rows))
	for _, r := range rows {
		rec := PlayerRecord{
			Snapshot: ledger.Snapshot{
				PlayerID:   ledger.PlayerID(r.ID),
				Balances:   make(map[catalog.ResourceType]float64),
				Morale:     r.Morale,
				Level:      r.Level,
				Experience: r.Experience,
			},
			Units: make(map[string]int),
		}
		if err := json.Unmarshal([]byte(r.BalancesJSON), &rec.Snapshot.Balances); err != nil {
			return nil, fmt.Errorf("player %d balances: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.UnitsJSON), &rec.Units); err != nil {
			return nil, fmt.Errorf("player %d units: %w", r.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (db *DB) saveTransactions(txs []ledger.Transaction) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM transactions"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO transactions
		(id, player_id, resource, amount, unit_price, kind, timestamp, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range txs {
		_, err := stmt.Exec(
			t.ID, t.PlayerID, t.Resource, t.Amount, t.UnitPrice,
			t.Kind, t.Timestamp.UTC().Format(time.RFC3339Nano), t.Description,
		)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (db *DB) loadTransactions() ([]ledger.Transaction, error) {
	type row struct {
		ID          string  `db:"id"`
		PlayerID    int64   `db:"player_id"`
		Resource    string  `db:"resource"`
		Amount      float64 `db:"amount"`
		UnitPrice   float64 `db:"unit_price"`
		Kind        string  `db:"kind"`
		Timestamp   string  `db:"timestamp"`
		Description string  `db:"description"`
	}
	var rows []row
	if err := db.conn.Select(&rows, "SELECT * FROM transactions ORDER BY timestamp"); err != nil {
		return nil, err
	}

	out := make([]ledger.Transaction, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("transaction %s timestamp: %w", r.ID, err)
		}
		out = append(out, ledger.Transaction{
			ID:          r.ID,
			PlayerID:    ledger.PlayerID(r.PlayerID),
			Resource:    catalog.ResourceType(r.Resource),
			Amount:      r.Amount,
			UnitPrice:   r.UnitPrice,
			Kind:        ledger.TxKind(r.Kind),
			Timestamp:   ts,
			Description: r.Description,
		})
	}
	return out, nil
}

func (db *DB) savePrices(prices []market.Price) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM prices"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO prices
		(resource, price, previous_price, demand, supply, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range prices {
		_, err := stmt.Exec(
			p.Resource, p.Price, p.PreviousPrice, p.Demand, p.Supply,
			p.LastUpdated.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert price %s: %w", p.Resource, err)
		}
	}
	return tx.Commit()
}

func (db *DB) loadPrices() ([]market.Price, error) {
	type row struct {
		Resource      string  `db:"resource"`
		Price         float64 `db:"price"`
		PreviousPrice float64 `db:"previous_price"`
		Demand        float64 `db:"demand"`
		Supply        float64 `db:"supply"`
		LastUpdated   string  `db:"last_updated"`
	}
	var rows []row
	if err := db.conn.Select(&rows, "SELECT * FROM prices ORDER BY resource"); err != nil {
		return nil, err
	}

	out := make([]market.Price, 0, len(rows))
	for _, r := range rows {
		updated, err := time.Parse(time.RFC3339Nano, r.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("price %s timestamp: %w", r.Resource, err)
		}
		out = append(out, market.Price{
			Resource:      catalog.ResourceType(r.Resource),
			Price:         r.Price,
			PreviousPrice: r.PreviousPrice,
			Demand:        r.Demand,
			Supply:        r.Supply,
			LastUpdated:   updated,
		})
	}
	return out, nil
}

func (db *DB) saveTasks(tasks []quest.Task) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tasks"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO tasks
		(id, owner_id, kind, definition_id, status, progress, started_at, duration, completed_at, fail_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range tasks {
		var completedAt any
		if t.CompletedAt != nil {
			completedAt = t.CompletedAt.UTC().Format(time.RFC3339Nano)
		}
		_, err := stmt.Exec(
			t.ID, t.OwnerID, t.Kind, t.DefinitionID, t.Status, t.Progress,
			t.StartedAt.UTC().Format(time.RFC3339Nano), int64(t.Duration),
			completedAt, t.FailReason,
		)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (db *DB) loadTasks() ([]quest.Task, error) {
	type row struct {
		ID           string         `db:"id"`
		OwnerID      int64          `db:"owner_id"`
		Kind         string         `db:"kind"`
		DefinitionID string         `db:"definition_id"`
		Status       string         `db:"status"`
		Progress     float64        `db:"progress"`
		StartedAt    string         `db:"started_at"`
		Duration     int64          `db:"duration"`
		CompletedAt  sql.NullString `db:"completed_at"`
		FailReason   string         `db:"fail_reason"`
	}
	var rows []row
	if err := db.conn.Select(&rows, "SELECT * FROM tasks ORDER BY started_at"); err != nil {
		return nil, err
	}

	out := make([]quest.Task, 0, len(rows))
	for _, r := range rows {
		started, err := time.Parse(time.RFC3339Nano, r.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("task %s started_at: %w", r.ID, err)
		}
		task := quest.Task{
			ID:           quest.TaskID(r.ID),
			OwnerID:      ledger.PlayerID(r.OwnerID),
			Kind:         quest.Kind(r.Kind),
			DefinitionID: r.DefinitionID,
			Status:       quest.Status(r.Status),
			Progress:     r.Progress,
			StartedAt:    started,
			Duration:     time.Duration(r.Duration),
			FailReason:   r.FailReason,
		}
		if r.CompletedAt.Valid {
			done, err := time.Parse(time.RFC3339Nano, r.CompletedAt.String)
			if err != nil {
				return nil, fmt.Errorf("task %s completed_at: %w", r.ID, err)
			}
			task.CompletedAt = &done
		}
		out = append(out, task)
	}
	return out, nil
}

func (db *DB) saveEvents(events []worldevent.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM world_events"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO world_events
		(id, category, title, description, severity, resources_json, regions_json,
		 impact, intensity, morale_delta, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		resourcesJSON, _ := json.Marshal(e.AffectedResources)
		regionsJSON, _ := json.Marshal(e.AffectedRegions)
		_, err := stmt.Exec(
			e.ID, e.Category, e.Title, e.Description, e.Severity,
			string(resourcesJSON), string(regionsJSON),
			e.Impact, e.Intensity, e.MoraleDelta,
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
			e.ExpiresAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

func (db *DB) loadEvents() ([]worldevent.Event, error) {
	type row struct {
		ID            string  `db:"id"`
		Category      string  `db:"category"`
		Title         string  `db:"title"`
		Description   string  `db:"description"`
		Severity      string  `db:"severity"`
		ResourcesJSON string  `db:"resources_json"`
		RegionsJSON   string  `db:"regions_json"`
		Impact        float64 `db:"impact"`
		Intensity     float64 `db:"intensity"`
		MoraleDelta   float64 `db:"morale_delta"`
		CreatedAt     string  `db:"created_at"`
		ExpiresAt     string  `db:"expires_at"`
	}
	var rows []row
	if err := db.conn.Select(&rows, "SELECT * FROM world_events ORDER BY created_at"); err != nil {
		return nil, err
	}

	out := make([]worldevent.Event, 0, len(rows))
	for _, r := range rows {
		created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("event %s created_at: %w", r.ID, err)
		}
		expires, err := time.Parse(time.RFC3339Nano, r.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("event %s expires_at: %w", r.ID, err)
		}
		ev := worldevent.Event{
			ID:          r.ID,
			Category:    worldevent.Category(r.Category),
			Title:       r.Title,
			Description: r.Description,
			Severity:    r.Severity,
			Impact:      r.Impact,
			Intensity:   r.Intensity,
			MoraleDelta: r.MoraleDelta,
			CreatedAt:   created,
			ExpiresAt:   expires,
		}
		if err := json.Unmarshal([]byte(r.ResourcesJSON), &ev.AffectedResources); err != nil {
			return nil, fmt.Errorf("event %s resources: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.RegionsJSON), &ev.AffectedRegions); err != nil {
			return nil, fmt.Errorf("event %s regions: %w", r.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (db *DB) saveProvinces(provinces []world.Province) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM provinces"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO provinces
		(id, name, owner, infrastructure, morale, weather, temperature, deposits_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range provinces {
		depositsJSON, _ := json.Marshal(p.Deposits)
		_, err := stmt.Exec(
			p.ID, p.Name, p.Owner, p.Infrastructure, p.Morale,
			p.Weather, p.Temperature, string(depositsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert province %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (db *DB) loadProvinces() ([]world.Province, error) {
	type row struct {
		ID             int64   `db:"id"`
		Name           string  `db:"name"`
		Owner          int64   `db:"owner"`
		Infrastructure float64 `db:"infrastructure"`
		Morale         float64 `db:"morale"`
		Weather        string  `db:"weather"`
		Temperature    float64 `db:"temperature"`
		DepositsJSON   string  `db:"deposits_json"`
	}
	var rows []row
	if err := db.conn.Select(&rows, "SELECT * FROM provinces ORDER BY id"); err != nil {
		return nil, err
	}

	out := make([]world.Province, 0, len(rows))
	for _, r := range rows {
		p := world.Province{
			ID:             r.ID,
			Name:           r.Name,
			Owner:          r.Owner,
			Infrastructure: r.Infrastructure,
			Morale:         r.Morale,
			Weather:        combat.Weather(r.Weather),
			Temperature:    r.Temperature,
			Deposits:       make(map[catalog.ResourceType]float64),
		}
		if err := json.Unmarshal([]byte(r.DepositsJSON), &p.Deposits); err != nil {
			return nil, fmt.Errorf("province %d deposits: %w", r.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
