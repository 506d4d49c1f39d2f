package utils

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed width so created_at sorts as text.
const storeTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		video_uri TEXT NOT NULL,
		model TEXT NOT NULL,
		cache_requested INTEGER NOT NULL,
		best_index INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS playbooks (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		number INTEGER NOT NULL,
		process_json TEXT NOT NULL,
		support INTEGER NOT NULL,
		rating INTEGER NOT NULL,
		recommendations TEXT NOT NULL,
		PRIMARY KEY (run_id, number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// RunStore keeps the history of generated playbooks in SQLite.
type RunStore struct {
	conn   *sql.DB
	logger *slog.Logger
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID             string    `json:"id"`
	VideoURI       string    `json:"videoUri"`
	Model          string    `json:"model"`
	CacheRequested bool      `json:"cacheRequested"`
	Playbooks      int       `json:"playbooks"`
	BestRating     int       `json:"bestRating"`
	CreatedAt      time.Time `json:"createdAt"`
}

func OpenRunStore(dbPath string, logger *slog.Logger) (*RunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	for _, m := range migrations {
		if _, err := conn.Exec(m); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &RunStore{conn: conn, logger: WithComponent(logger, "run_store")}, nil
}

func (s *RunStore) Close() error {
	return s.conn.Close()
}

// SaveRun stores run and all of its playbooks in one transaction.
func (s *RunStore) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, video_uri, model, cache_requested, best_index, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.VideoURI, run.Model, run.CacheRequested, run.BestIndex, run.CreatedAt.UTC().Format(storeTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, r := range run.Results {
		processJSON, err := json.Marshal(r.Process)
		if err != nil {
			return fmt.Errorf("failed to encode playbook %d: %w", r.Number, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO playbooks (run_id, number, process_json, support, rating, recommendations) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, r.Number, string(processJSON), r.Feedback.Support, r.Feedback.Rating, r.Feedback.Recommendations)
		if err != nil {
			return fmt.Errorf("failed to insert playbook %d: %w", r.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.Info("run saved", "run_id", run.ID, "playbooks", len(run.Results))
	return nil
}

// GetRun loads a run with its playbooks in number order.
func (s *RunStore) GetRun(ctx context.Context, id string) (Run, error) {
	var run Run
	var createdAt string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, video_uri, model, cache_requested, best_index, created_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.VideoURI, &run.Model, &run.CacheRequested, &run.BestIndex, &createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(storeTimeLayout, createdAt); err != nil {
		return Run{}, fmt.Errorf("invalid created_at for run %s: %w", id, err)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT number, process_json, support, rating, recommendations FROM playbooks WHERE run_id = ? ORDER BY number`, id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to load playbooks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Result
		var processJSON string
		if err := rows.Scan(&r.Number, &processJSON, &r.Feedback.Support, &r.Feedback.Rating, &r.Feedback.Recommendations); err != nil {
			return Run{}, fmt.Errorf("failed to scan playbook: %w", err)
		}
		if err := json.Unmarshal([]byte(processJSON), &r.Process); err != nil {
			return Run{}, fmt.Errorf("failed to decode playbook %d: %w", r.Number, err)
		}
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT r.id, r.video_uri, r.model, r.cache_requested, r.created_at,
			COUNT(p.number), COALESCE(MAX(p.rating), 0)
		FROM runs r LEFT JOIN playbooks p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var sum RunSummary
		var createdAt string
		if err := rows.Scan(&sum.ID, &sum.VideoURI, &sum.Model, &sum.CacheRequested, &createdAt, &sum.Playbooks, &sum.BestRating); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(storeTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at for run %s: %w", sum.ID, err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
