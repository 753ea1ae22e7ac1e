// Package store archives runs in a SQLite database: one row per run, its
// population time series and its exit records.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/symbiosis/config"
	"github.com/pthm-cable/symbiosis/telemetry"
)

// Run describes one archived run.
type Run struct {
	ID        string  `db:"id"`
	Seed      int64   `db:"seed"`
	StartedAt string  `db:"started_at"`
	EndTime   float64 `db:"end_time"`
	Complete  bool    `db:"complete"`
	Config    string  `db:"config"`
}

// DB wraps a SQLite connection for run archiving.
type DB struct {
	conn *sqlx.DB

	// Current run; rows are inserted inside one transaction
	runID    string
	tx       *sqlx.Tx
	popStmt  *sqlx.Stmt
	cladStmt *sqlx.Stmt
	exitStmt *sqlx.Stmt
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

// Close rolls back an unfinished run and closes the connection.
func (db *DB) Close() error {
	db.Rollback()
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		end_time REAL NOT NULL,
		complete INTEGER NOT NULL DEFAULT 0,
		config TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS population (
		run_id TEXT NOT NULL REFERENCES runs(id),
		time REAL NOT NULL,
		total INTEGER NOT NULL,
		PRIMARY KEY (run_id, time)
	);

	CREATE TABLE IF NOT EXISTS population_clades (
		run_id TEXT NOT NULL REFERENCES runs(id),
		time REAL NOT NULL,
		clade INTEGER NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, time, clade)
	);

	CREATE TABLE IF NOT EXISTS exits (
		run_id TEXT NOT NULL REFERENCES runs(id),
		symbiont_id INTEGER NOT NULL,
		parent_id INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		clade INTEGER NOT NULL,
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		arrival_time REAL NOT NULL,
		exit_time REAL NOT NULL,
		residence_time REAL NOT NULL,
		divisions INTEGER NOT NULL,
		reason TEXT NOT NULL,
		PRIMARY KEY (run_id, symbiont_id)
	);

	CREATE INDEX IF NOT EXISTS idx_exits_reason ON exits(run_id, reason);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun registers a new run and opens the transaction its rows are
// written in. It returns the run's ID.
func (db *DB) BeginRun(cfg *config.Config) (string, error) {
	if db.tx != nil {
		return "", errors.New("store: a run is already in progress")
	}
	snapshot, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := tx.Exec(`INSERT INTO runs (id, seed, started_at, end_time, config) VALUES (?, ?, ?, ?, ?)`,
		id, int64(cfg.Seed), time.Now().UTC().Format(time.RFC3339), cfg.MaxSimulatedTime, string(snapshot)); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("insert run: %w", err)
	}

	prepare := func(query string) *sqlx.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sqlx.Stmt
		stmt, err = tx.Preparex(query)
		return stmt
	}
	db.popStmt = prepare(`INSERT INTO population (run_id, time, total) VALUES (?, ?, ?)`)
	db.cladStmt = prepare(`INSERT INTO population_clades (run_id, time, clade, count) VALUES (?, ?, ?, ?)`)
	db.exitStmt = prepare(`INSERT INTO exits
		(run_id, symbiont_id, parent_id, generation, clade, row, col,
		 arrival_time, exit_time, residence_time, divisions, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	db.tx, db.runID = tx, id
	if err != nil {
		db.Rollback()
		return "", fmt.Errorf("prepare: %w", err)
	}
	return id, nil
}

// InsertPopulation archives one population row.
func (db *DB) InsertPopulation(row telemetry.PopulationRow) error {
	if db.tx == nil {
		return errors.New("store: no run in progress")
	}
	if _, err := db.popStmt.Exec(db.runID, row.Time, row.Total); err != nil {
		return err
	}
	for clade, n := range row.Clades {
		if _, err := db.cladStmt.Exec(db.runID, row.Time, clade, n); err != nil {
			return err
		}
	}
	return nil
}

// InsertExit archives one exit record.
func (db *DB) InsertExit(rec telemetry.ExitRecord) error {
	if db.tx == nil {
		return errors.New("store: no run in progress")
	}
	_, err := db.exitStmt.Exec(db.runID, rec.ID, rec.ParentID, rec.Generation, rec.Clade,
		rec.Row, rec.Col, rec.ArrivalTime, rec.ExitTime, rec.ResidenceTime, rec.Divisions, rec.Reason)
	return err
}

func (db *DB) closeStmts() {
	for _, s := range []*sqlx.Stmt{db.popStmt, db.cladStmt, db.exitStmt} {
		if s != nil {
			s.Close()
		}
	}
	db.popStmt, db.cladStmt, db.exitStmt = nil, nil, nil
}

// Commit marks the run complete and commits its rows.
func (db *DB) Commit() error {
	if db.tx == nil {
		return errors.New("store: no run in progress")
	}
	defer func() {
		db.closeStmts()
		db.tx, db.runID = nil, ""
	}()
	if _, err := db.tx.Exec(`UPDATE runs SET complete = 1 WHERE id = ?`, db.runID); err != nil {
		db.tx.Rollback()
		return err
	}
	return db.tx.Commit()
}

// Rollback discards the run in progress, if any.
func (db *DB) Rollback() {
	if db.tx == nil {
		return
	}
	db.closeStmts()
	db.tx.Rollback()
	db.tx, db.runID = nil, ""
}

// Runs lists archived runs, oldest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, `SELECT id, seed, started_at, end_time, complete, config FROM runs ORDER BY started_at, id`)
	return runs, err
}

// FinalPopulation returns the total of a run's last population row.
func (db *DB) FinalPopulation(runID string) (int, error) {
	var total int
	err := db.conn.Get(&total, `SELECT total FROM population WHERE run_id = ? ORDER BY time DESC LIMIT 1`, runID)
	return total, err
}

// ExitCounts returns the number of exit records per reason for a run.
func (db *DB) ExitCounts(runID string) (map[string]int, error) {
	var rows []struct {
		Reason string `db:"reason"`
		N      int    `db:"n"`
	}
	if err := db.conn.Select(&rows, `SELECT reason, COUNT(*) AS n FROM exits WHERE run_id = ? GROUP BY reason`, runID); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Reason] = r.N
	}
	return counts, nil
}
