package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/StockPilot/pkg/dataflows"
	"github.com/dyike/StockPilot/pkg/sqlite"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

const metaIndexRefreshed = "cik_index_refreshed_at"

// Store persists the EDGAR ticker index and the run log.
type Store struct {
	db *sql.DB
}

// RunRecord is one orchestrator run. Reports themselves are not stored.
type RunRecord struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	TickerCount int    `json:"ticker_count"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS cik_index (
    ticker TEXT PRIMARY KEY,
    cik TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    ticker_count INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// LookupCIK implements dataflows.CIKIndex.
func (s *Store) LookupCIK(ctx context.Context, ticker string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT cik FROM cik_index WHERE ticker = ?`, strings.ToUpper(ticker))
	var cik string
	if err := row.Scan(&cik); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup cik: %w", err)
	}
	return cik, true, nil
}

// ReplaceAll swaps the whole index in one transaction and stamps the refresh time.
func (s *Store) ReplaceAll(ctx context.Context, entries []dataflows.CIKEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cik_index`); err != nil {
		return fmt.Errorf("clear cik index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO cik_index (ticker, cik, title) VALUES (?, ?, ?)
ON CONFLICT(ticker) DO UPDATE SET cik=excluded.cik, title=excluded.title
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, strings.ToUpper(e.Ticker), e.CIK, e.Title); err != nil {
			return fmt.Errorf("insert cik %s: %w", e.Ticker, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO meta (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value
`, metaIndexRefreshed, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("stamp cik index: %w", err)
	}

	return tx.Commit()
}

// RefreshedAt returns the zero time when the index has never been loaded.
func (s *Store) RefreshedAt(ctx context.Context) (time.Time, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaIndexRefreshed)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read cik index stamp: %w", err)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

func (s *Store) StartRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, status) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET status=excluded.status
`, runID, StatusRunning)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *Store) FinishRun(ctx context.Context, runID string, tickerCount int, runErr error) error {
	status, msg := StatusDone, ""
	if runErr != nil {
		status, msg = StatusError, runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE runs
SET status = ?, ticker_count = ?, error = ?, finished_at = CURRENT_TIMESTAMP
WHERE id = ?
`, status, tickerCount, msg, runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, status, ticker_count, error, started_at, COALESCE(finished_at, '')
FROM runs
ORDER BY rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.TickerCount, &rec.Error, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}
