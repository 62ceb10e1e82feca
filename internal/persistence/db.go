// Package persistence provides SQLite-based run storage: per-tick stats,
// ant rosters, events and run metadata.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/antpheromones/internal/agents"
	"github.com/talgya/antpheromones/internal/engine"
)

// DB wraps a SQLite connection for run persistence.
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		size_x INTEGER NOT NULL,
		size_y INTEGER NOT NULL,
		num_ants INTEGER NOT NULL,
		params_json TEXT NOT NULL,
		final_tick INTEGER NOT NULL DEFAULT 0,
		finished_at TEXT
	);

	CREATE TABLE IF NOT EXISTS tick_stats (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		population INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		births INTEGER NOT NULL,
		shortfall INTEGER NOT NULL,
		avg_x REAL NOT NULL,
		avg_distance REAL NOT NULL,
		rolling_avg_distance REAL NOT NULL,
		avg_prob_rand_move REAL NOT NULL,
		avg_prob_die_center REAL NOT NULL,
		total_pheromone REAL NOT NULL,
		avg_neighbors_1 REAL NOT NULL,
		avg_neighbors_2 REAL NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS ants (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		id INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		weight REAL NOT NULL,
		age INTEGER NOT NULL,
		prob_rand_move REAL NOT NULL,
		prob_die_center REAL NOT NULL,
		PRIMARY KEY (run_id, tick, id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_ants_run_tick ON ants(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one row of the runs table.
type Run struct {
	ID         string  `db:"id" json:"id"`
	StartedAt  string  `db:"started_at" json:"started_at"`
	Seed       int64   `db:"seed" json:"seed"`
	SizeX      int     `db:"size_x" json:"size_x"`
	SizeY      int     `db:"size_y" json:"size_y"`
	NumAnts    int     `db:"num_ants" json:"num_ants"`
	ParamsJSON string  `db:"params_json" json:"-"`
	FinalTick  uint64  `db:"final_tick" json:"final_tick"`
	FinishedAt *string `db:"finished_at" json:"finished_at,omitempty"`
}

// Params decodes the stored parameters.
func (r Run) Params() (engine.Params, error) {
	var p engine.Params
	err := json.Unmarshal([]byte(r.ParamsJSON), &p)
	return p, err
}

// StartRun registers a new run and returns its id.
func (db *DB) StartRun(p engine.Params) (string, error) {
	paramsJSON, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	id := uuid.NewString()
	_, err = db.conn.Exec(`INSERT INTO runs
		(id, started_at, seed, size_x, size_y, num_ants, params_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), p.Seed, p.SizeX, p.SizeY, p.NumAnts, string(paramsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run started", "run_id", id, "seed", p.Seed)
	return id, nil
}

// FinishRun records the last tick of a run.
func (db *DB) FinishRun(runID string, tick uint64) error {
	_, err := db.conn.Exec(
		"UPDATE runs SET final_tick = ?, finished_at = ? WHERE id = ?",
		tick, time.Now().UTC().Format(time.RFC3339), runID,
	)
	return err
}

// GetRun loads one run.
func (db *DB) GetRun(runID string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", runID)
	return r, err
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	return runs, err
}

// statsRow mirrors engine.Stats with column names.
type statsRow struct {
	RunID              string  `db:"run_id"`
	Tick               uint64  `db:"tick"`
	Population         int     `db:"population"`
	Deaths             int     `db:"deaths"`
	Births             int     `db:"births"`
	Shortfall          int     `db:"shortfall"`
	AvgX               float64 `db:"avg_x"`
	AvgDistance        float64 `db:"avg_distance"`
	RollingAvgDistance float64 `db:"rolling_avg_distance"`
	AvgProbRandMove    float64 `db:"avg_prob_rand_move"`
	AvgProbDieCenter   float64 `db:"avg_prob_die_center"`
	TotalPheromone     float64 `db:"total_pheromone"`
	AvgNeighbors1      float64 `db:"avg_neighbors_1"`
	AvgNeighbors2      float64 `db:"avg_neighbors_2"`
}

func (r statsRow) stats() engine.Stats {
	return engine.Stats{
		Tick:               r.Tick,
		Population:         r.Population,
		Deaths:             r.Deaths,
		Births:             r.Births,
		Shortfall:          r.Shortfall,
		AvgX:               r.AvgX,
		AvgDistance:        r.AvgDistance,
		RollingAvgDistance: r.RollingAvgDistance,
		AvgProbRandMove:    r.AvgProbRandMove,
		AvgProbDieCenter:   r.AvgProbDieCenter,
		TotalPheromone:     r.TotalPheromone,
		AvgNeighbors1:      r.AvgNeighbors1,
		AvgNeighbors2:      r.AvgNeighbors2,
	}
}

// SaveStats writes a batch of per-tick stats. Existing ticks are replaced.
func (db *DB) SaveStats(runID string, batch []engine.Stats) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT OR REPLACE INTO tick_stats
		(run_id, tick, population, deaths, births, shortfall, avg_x, avg_distance,
		 rolling_avg_distance, avg_prob_rand_move, avg_prob_die_center,
		 total_pheromone, avg_neighbors_1, avg_neighbors_2)
		VALUES (:run_id, :tick, :population, :deaths, :births, :shortfall, :avg_x, :avg_distance,
		 :rolling_avg_distance, :avg_prob_rand_move, :avg_prob_die_center,
		 :total_pheromone, :avg_neighbors_1, :avg_neighbors_2)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range batch {
		row := statsRow{
			RunID: runID, Tick: st.Tick, Population: st.Population,
			Deaths: st.Deaths, Births: st.Births, Shortfall: st.Shortfall,
			AvgX: st.AvgX, AvgDistance: st.AvgDistance, RollingAvgDistance: st.RollingAvgDistance,
			AvgProbRandMove: st.AvgProbRandMove, AvgProbDieCenter: st.AvgProbDieCenter,
			TotalPheromone: st.TotalPheromone, AvgNeighbors1: st.AvgNeighbors1, AvgNeighbors2: st.AvgNeighbors2,
		}
		if _, err := stmt.Exec(row); err != nil {
			return fmt.Errorf("insert stats tick %d: %w", st.Tick, err)
		}
	}
	return tx.Commit()
}

// LoadStatsHistory returns stats for ticks in [from, to], ascending. A zero
// to means no upper bound; limit <= 0 means no limit.
func (db *DB) LoadStatsHistory(runID string, from, to uint64, limit int) ([]engine.Stats, error) {
	query := "SELECT * FROM tick_stats WHERE run_id = ? AND tick >= ?"
	args := []any{runID, from}
	if to > 0 {
		query += " AND tick <= ?"
		args = append(args, to)
	}
	query += " ORDER BY tick ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []statsRow
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]engine.Stats, len(rows))
	for i, r := range rows {
		out[i] = r.stats()
	}
	return out, nil
}

type antRow struct {
	RunID         string  `db:"run_id"`
	Tick          uint64  `db:"tick"`
	ID            uint64  `db:"id"`
	X             int     `db:"x"`
	Y             int     `db:"y"`
	Weight        float64 `db:"weight"`
	Age           uint64  `db:"age"`
	ProbRandMove  float64 `db:"prob_rand_move"`
	ProbDieCenter float64 `db:"prob_die_center"`
}

// SaveRoster writes the ants alive at tick (full replace for that tick).
func (db *DB) SaveRoster(runID string, tick uint64, ants []agents.Ant) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM ants WHERE run_id = ? AND tick = ?", runID, tick); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO ants
		(run_id, tick, id, x, y, weight, age, prob_rand_move, prob_die_center)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range ants {
		_, err := stmt.Exec(runID, tick, uint64(a.ID), a.Position.X, a.Position.Y,
			a.Weight, a.Age, a.ProbRandMove, a.ProbDieCenter)
		if err != nil {
			return fmt.Errorf("insert ant %d: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// LoadRoster returns the latest saved roster of a run and its tick.
func (db *DB) LoadRoster(runID string) (uint64, []agents.Ant, error) {
	var tick uint64
	if err := db.conn.Get(&tick, "SELECT COALESCE(MAX(tick), 0) FROM ants WHERE run_id = ?", runID); err != nil {
		return 0, nil, err
	}
	var rows []antRow
	if err := db.conn.Select(&rows,
		"SELECT * FROM ants WHERE run_id = ? AND tick = ? ORDER BY id", runID, tick); err != nil {
		return 0, nil, err
	}
	out := make([]agents.Ant, len(rows))
	for i, r := range rows {
		out[i] = agents.Ant{
			ID:            agents.AntID(r.ID),
			Weight:        r.Weight,
			Age:           r.Age,
			ProbRandMove:  r.ProbRandMove,
			ProbDieCenter: r.ProbDieCenter,
		}
		out[i].Position.X, out[i].Position.Y = r.X, r.Y
	}
	return tick, out, nil
}

// SaveEvents appends events to the log.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex("INSERT INTO events (run_id, seq, tick, description, category) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(runID, e.Seq, e.Tick, e.Description, e.Category); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT seq, tick, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// SaveMeta stores a key-value metadata pair.
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
