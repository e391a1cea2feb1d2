package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"NewsPerspectives/internal/domain"
	"NewsPerspectives/internal/ports"
)

const runsTable = "stage_runs"

// DefaultRecentLimit applies when RecentRuns gets a non-positive limit.
const DefaultRecentLimit = 20

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stage_runs (
		id TEXT PRIMARY KEY,
		agent TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		items INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stage_runs_agent_started ON stage_runs (agent, started_at)`,
}

var runColumns = []string{
	"id", "agent", "model", "status", "items", "failures",
	"prompt_tokens", "completion_tokens", "total_tokens", "started_at", "finished_at",
}

// RunRepository persists the stage run ledger into SQLite.
type RunRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunRepository = (*RunRepository)(nil)

// OpenRunRepository opens (creating when needed) the ledger database at path
// and applies migrations.
func OpenRunRepository(ctx context.Context, path string) (*RunRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	repo := NewRunRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewRunRepository wires a sql.DB implementation.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
	}
}

// Migrate creates the ledger schema.
func (r *RunRepository) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (r *RunRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RecordRun upserts a run. Runs without an id get a fresh one.
func (r *RunRepository) RecordRun(ctx context.Context, run domain.StageRun) error {
	if r.db == nil {
		return nil
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := r.builder.Insert(runsTable).
		Columns(runColumns...).
		Values(
			run.ID, run.Agent, run.Model, run.Status, run.Items, run.Failures,
			run.PromptTokens, run.CompletionTokens, run.TotalTokens, run.StartedAt, run.FinishedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			items = excluded.items,
			failures = excluded.failures,
			prompt_tokens = excluded.prompt_tokens,
			completion_tokens = excluded.completion_tokens,
			total_tokens = excluded.total_tokens,
			finished_at = excluded.finished_at`).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first, optionally for one agent.
func (r *RunRepository) RecentRuns(ctx context.Context, agent string, limit int) ([]domain.StageRun, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := r.builder.Select(runColumns...).
		From(runsTable).
		OrderBy("started_at DESC", "rowid DESC").
		Limit(uint64(limit))
	if agent != "" {
		query = query.Where(sq.Eq{"agent": agent})
	}

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var result []domain.StageRun
	for rows.Next() {
		var run domain.StageRun
		if err := rows.Scan(
			&run.ID, &run.Agent, &run.Model, &run.Status, &run.Items, &run.Failures,
			&run.PromptTokens, &run.CompletionTokens, &run.TotalTokens, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, run)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}
