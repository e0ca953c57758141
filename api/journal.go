// api/journal.go
package api

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// RunRecord is one journaled dispatch run.
type RunRecord struct {
	ID         int64          `json:"id"`
	CatalogID  string         `json:"catalogId"`
	TotalRows  int            `json:"totalRows"`
	Successes  int            `json:"successes"`
	Failures   int            `json:"failures"`
	Errors     int            `json:"errors"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt sql.NullTime   `json:"finishedAt"`
	Notes      sql.NullString `json:"notes"`
}

// Journal persists dispatch runs and their per-row outcomes so an operator
// can audit what a batch did after the fact. Every write degrades to a log
// warning on failure; the journal never blocks a dispatch.
type Journal struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewJournal wraps a pool. A nil pool yields a disabled journal whose
// methods are all no-ops, keeping call sites free of nil checks.
func NewJournal(pool *pgxpool.Pool, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{pool: pool, logger: logger}
}

func (j *Journal) enabled() bool { return j != nil && j.pool != nil }

// Init creates the journal tables when they do not exist yet.
func (j *Journal) Init(ctx context.Context) error {
	if !j.enabled() {
		return nil
	}

	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS override_runs (
			id BIGSERIAL PRIMARY KEY,
			catalog_id TEXT NOT NULL,
			total_rows INT NOT NULL DEFAULT 0,
			successes INT NOT NULL DEFAULT 0,
			failures INT NOT NULL DEFAULT 0,
			errors INT NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			notes TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_override_runs_catalog ON override_runs(catalog_id);
		CREATE INDEX IF NOT EXISTS idx_override_runs_started ON override_runs(started_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create override_runs table: %w", err)
	}

	_, err = j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS override_run_rows (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT NOT NULL REFERENCES override_runs(id) ON DELETE CASCADE,
			row_index INT NOT NULL,
			product_id TEXT,
			product_sku TEXT,
			status TEXT NOT NULL,
			detail TEXT,
			UNIQUE (run_id, row_index)
		);
		CREATE INDEX IF NOT EXISTS idx_override_run_rows_run ON override_run_rows(run_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create override_run_rows table: %w", err)
	}
	return nil
}

// RecordRun stores a completed dispatch with its per-row outcomes and
// returns the run id (0 when the journal is disabled or the write failed).
func (j *Journal) RecordRun(ctx context.Context, catalogID string, startedAt, finishedAt time.Time, results []RowResult) int64 {
	if !j.enabled() {
		return 0
	}

	summary := Summarize(results)

	tx, err := j.pool.Begin(ctx)
	if err != nil {
		j.logger.Warn("journal: failed to begin transaction", zap.Error(err))
		return 0
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO override_runs (catalog_id, total_rows, successes, failures, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, catalogID, summary.Total, summary.Successes, summary.Failures, summary.Errors, startedAt, finishedAt).Scan(&runID)
	if err != nil {
		j.logger.Warn("journal: failed to insert run", zap.String("catalogId", catalogID), zap.Error(err))
		return 0
	}

	for _, r := range results {
		_, err := tx.Exec(ctx, `
			INSERT INTO override_run_rows (run_id, row_index, product_id, product_sku, status, detail)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, runID, r.RowIndex, r.ProductID, r.ProductSKU, string(r.Status), r.Detail)
		if err != nil {
			j.logger.Warn("journal: failed to insert row result",
				zap.Int64("runId", runID),
				zap.Int("row", r.RowIndex),
				zap.Error(err),
			)
			return 0
		}
	}

	if err := tx.Commit(ctx); err != nil {
		j.logger.Warn("journal: failed to commit run", zap.Int64("runId", runID), zap.Error(err))
		return 0
	}
	return runID
}

// RecentRuns returns the newest runs first, up to limit.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if !j.enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.pool.Query(ctx, `
		SELECT id, catalog_id, total_rows, successes, failures, errors, started_at, finished_at, notes
		FROM override_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		// First call before Init on a fresh database is not worth failing a
		// status endpoint over.
		if strings.Contains(err.Error(), "does not exist") {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching run history: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		err := rows.Scan(
			&run.ID, &run.CatalogID, &run.TotalRows, &run.Successes, &run.Failures,
			&run.Errors, &run.StartedAt, &run.FinishedAt, &run.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning run record: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run records: %w", err)
	}
	return runs, nil
}

// RunRows returns the per-row outcomes of one run in row order.
func (j *Journal) RunRows(ctx context.Context, runID int64) ([]RowResult, error) {
	if !j.enabled() {
		return nil, nil
	}

	rows, err := j.pool.Query(ctx, `
		SELECT row_index, product_id, product_sku, status, detail
		FROM override_run_rows WHERE run_id = $1 ORDER BY row_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("error fetching rows for run %d: %w", runID, err)
	}
	defer rows.Close()

	var results []RowResult
	for rows.Next() {
		var r RowResult
		var productID, productSKU, status, detail sql.NullString
		if err := rows.Scan(&r.RowIndex, &productID, &productSKU, &status, &detail); err != nil {
			return nil, fmt.Errorf("error scanning row result: %w", err)
		}
		r.ProductID = productID.String
		r.ProductSKU = productSKU.String
		r.Status = RowStatus(status.String)
		r.Detail = detail.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating row results: %w", err)
	}
	return results, nil
}
