// Package persist stores one backtest run's closed trades and analyzer
// results to disk using a pure-Go (no CGo) SQLite driver, single-writer
// ledger of runs, trades, and analyzer output.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaxquant/backtest/internal/order"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    strategy_id TEXT NOT NULL,
    started_at  DATETIME NOT NULL,
    ended_at    DATETIME,
    final_cash  REAL NOT NULL DEFAULT 0,
    final_value REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    data_id     TEXT NOT NULL,
    size        REAL NOT NULL,
    price       REAL NOT NULL,
    pnl         REAL NOT NULL,
    pnl_comm    REAL NOT NULL,
    commission  REAL NOT NULL,
    bar_len     INTEGER NOT NULL,
    closed_at   DATETIME NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS analyzer_results (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id  TEXT NOT NULL,
    name    TEXT NOT NULL,
    payload TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_trades_run  ON trades(run_id);
CREATE INDEX IF NOT EXISTS idx_trades_data ON trades(data_id);
`

// Store is a single-writer SQLite ledger for backtest runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persist: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// StartRun inserts the run header row.
func (s *Store) StartRun(ctx context.Context, runID, strategyID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, strategy_id, started_at) VALUES (?, ?, ?)`,
		runID, strategyID, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("persist: start run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time and final account snapshot.
func (s *Store) FinishRun(ctx context.Context, runID string, endedAt time.Time, finalCash, finalValue float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, final_cash = ?, final_value = ? WHERE run_id = ?`,
		endedAt.UTC(), finalCash, finalValue, runID)
	if err != nil {
		return fmt.Errorf("persist: finish run: %w", err)
	}
	return nil
}

// SaveTrade records one closed trade.
func (s *Store) SaveTrade(ctx context.Context, runID, dataID string, t *order.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (run_id, data_id, size, price, pnl, pnl_comm, commission, bar_len, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, dataID, t.Size, t.Price, t.PNL, t.PNLComm(), t.Commission, t.BarLen, t.DTClose.UTC())
	if err != nil {
		return fmt.Errorf("persist: save trade: %w", err)
	}
	return nil
}

// SaveAnalysis persists one analyzer's GetAnalysis() result as JSON.
func (s *Store) SaveAnalysis(ctx context.Context, runID, name string, analysis map[string]any) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("persist: marshal analysis %q: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyzer_results (run_id, name, payload) VALUES (?, ?, ?)`,
		runID, name, string(payload))
	if err != nil {
		return fmt.Errorf("persist: save analysis %q: %w", name, err)
	}
	return nil
}

// TradeSummary is one row of a run's trade history, as read back for reporting.
type TradeSummary struct {
	DataID   string
	Size     float64
	Price    float64
	PNL      float64
	PNLComm  float64
	ClosedAt time.Time
}

// TradesForRun returns every closed trade recorded for runID, oldest first.
func (s *Store) TradesForRun(ctx context.Context, runID string) ([]TradeSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data_id, size, price, pnl, pnl_comm, closed_at
		FROM trades WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("persist: query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeSummary
	for rows.Next() {
		var t TradeSummary
		var closedAt string
		if err := rows.Scan(&t.DataID, &t.Size, &t.Price, &t.PNL, &t.PNLComm, &closedAt); err != nil {
			return nil, fmt.Errorf("persist: scan trade row: %w", err)
		}
		t.ClosedAt, _ = time.Parse(time.RFC3339, closedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }
