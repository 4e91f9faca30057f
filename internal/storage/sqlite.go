package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"superspreaders/internal/dismantle"
	"superspreaders/internal/fib"
	"superspreaders/internal/rank"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when no run of the requested kind exists.
var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			cutoff TIMESTAMP,
			threshold REAL
		);`,
		`CREATE TABLE IF NOT EXISTS fib_scores (
			run_id TEXT,
			position INTEGER,
			user_id TEXT,
			fib_index INTEGER,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS rankings (
			run_id TEXT,
			method TEXT,
			metric TEXT,
			position INTEGER,
			user_id TEXT,
			value REAL,
			PRIMARY KEY (run_id, method, position)
		);`,
		`CREATE TABLE IF NOT EXISTS traces (
			run_id TEXT,
			method TEXT,
			column_index INTEGER,
			step INTEGER,
			proportion REAL,
			PRIMARY KEY (run_id, method, step)
		);`,
		`CREATE TABLE IF NOT EXISTS gold_standard (
			run_id TEXT,
			position INTEGER,
			user_id TEXT,
			proportion REAL,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- RunStore Implementation ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, created_at, cutoff, threshold)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.CreatedAt.UTC(), run.Cutoff.UTC(), run.Threshold)
	return err
}

func (s *SQLiteStore) LatestRun(ctx context.Context, kind string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, created_at, cutoff, threshold FROM runs
		WHERE kind = ? ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, kind)

	var r Run
	var cutoff sql.NullTime
	var threshold sql.NullFloat64
	if err := row.Scan(&r.ID, &r.Kind, &r.CreatedAt, &cutoff, &threshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", kind, ErrRunNotFound)
		}
		return nil, err
	}
	if cutoff.Valid {
		r.Cutoff = cutoff.Time.UTC()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.Threshold = threshold.Float64
	return &r, nil
}

// --- ResultStore Implementation ---

func (s *SQLiteStore) SaveFIBScores(ctx context.Context, runID string, scores []fib.Score) error {
	return s.replace(ctx, "DELETE FROM fib_scores WHERE run_id = ?", []any{runID},
		"INSERT INTO fib_scores (run_id, position, user_id, fib_index) VALUES (?, ?, ?, ?)",
		len(scores), func(i int) []any {
			return []any{runID, i, scores[i].UserID, scores[i].Index}
		})
}

func (s *SQLiteStore) LoadFIBScores(ctx context.Context, runID string) ([]fib.Score, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id, fib_index FROM fib_scores WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fib scores: %w", err)
	}
	defer rows.Close()

	var scores []fib.Score
	for rows.Next() {
		var sc fib.Score
		if err := rows.Scan(&sc.UserID, &sc.Index); err != nil {
			return nil, fmt.Errorf("failed to scan fib score: %w", err)
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

func (s *SQLiteStore) SaveRankedList(ctx context.Context, runID string, list rank.RankedList) error {
	return s.replace(ctx, "DELETE FROM rankings WHERE run_id = ? AND method = ?", []any{runID, list.Method},
		"INSERT INTO rankings (run_id, method, metric, position, user_id, value) VALUES (?, ?, ?, ?, ?, ?)",
		len(list.Scores), func(i int) []any {
			sc := list.Scores[i]
			return []any{runID, list.Method, string(list.Metric), i, sc.UserID, sc.Value}
		})
}

func (s *SQLiteStore) LoadRankedList(ctx context.Context, runID, method string) (rank.RankedList, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT metric, user_id, value FROM rankings WHERE run_id = ? AND method = ? ORDER BY position", runID, method)
	if err != nil {
		return rank.RankedList{}, fmt.Errorf("failed to query ranking: %w", err)
	}
	defer rows.Close()

	list := rank.RankedList{Method: method}
	for rows.Next() {
		var metric string
		var sc rank.Score
		if err := rows.Scan(&metric, &sc.UserID, &sc.Value); err != nil {
			return rank.RankedList{}, fmt.Errorf("failed to scan ranking: %w", err)
		}
		list.Metric = rank.Metric(metric)
		sc.Metric = list.Metric
		list.Scores = append(list.Scores, sc)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) SaveTraces(ctx context.Context, runID string, traces []dismantle.Trace) error {
	type cell struct {
		method string
		column int
		step   int
		value  float64
	}
	var cells []cell
	for col, tr := range traces {
		for step, p := range tr.Proportions {
			cells = append(cells, cell{method: tr.Method, column: col, step: step, value: p})
		}
	}
	return s.replace(ctx, "DELETE FROM traces WHERE run_id = ?", []any{runID},
		"INSERT INTO traces (run_id, method, column_index, step, proportion) VALUES (?, ?, ?, ?, ?)",
		len(cells), func(i int) []any {
			c := cells[i]
			return []any{runID, c.method, c.column, c.step, c.value}
		})
}

func (s *SQLiteStore) LoadTraces(ctx context.Context, runID string) ([]dismantle.Trace, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT method, step, proportion FROM traces WHERE run_id = ? ORDER BY column_index, step", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer rows.Close()

	var traces []dismantle.Trace
	for rows.Next() {
		var method string
		var step int
		var p float64
		if err := rows.Scan(&method, &step, &p); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		if len(traces) == 0 || traces[len(traces)-1].Method != method {
			traces = append(traces, dismantle.Trace{Method: method})
		}
		last := &traces[len(traces)-1]
		last.Proportions = append(last.Proportions, p)
	}
	return traces, rows.Err()
}

func (s *SQLiteStore) SaveGoldStandard(ctx context.Context, runID string, g dismantle.GoldStandard) error {
	return s.replace(ctx, "DELETE FROM gold_standard WHERE run_id = ?", []any{runID},
		"INSERT INTO gold_standard (run_id, position, user_id, proportion) VALUES (?, ?, ?, ?)",
		len(g), func(i int) []any {
			return []any{runID, i, g[i].UserID, g[i].Proportion}
		})
}

func (s *SQLiteStore) LoadGoldStandard(ctx context.Context, runID string) (dismantle.GoldStandard, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id, proportion FROM gold_standard WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gold standard: %w", err)
	}
	defer rows.Close()

	var g dismantle.GoldStandard
	for rows.Next() {
		var r dismantle.Removal
		if err := rows.Scan(&r.UserID, &r.Proportion); err != nil {
			return nil, fmt.Errorf("failed to scan gold standard: %w", err)
		}
		g = append(g, r)
	}
	return g, rows.Err()
}

// replace deletes the previous rows of a result and inserts n new rows in
// a single transaction.
func (s *SQLiteStore) replace(ctx context.Context, deleteQuery string, deleteArgs []any, insertQuery string, n int, args func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Clear the previous snapshot
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return err
	}

	// 2. Insert rows
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

var _ Store = (*SQLiteStore)(nil)

