package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
)

const defaultRecentRuns = 20

// RunRepository records ingestion run reports.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run report.
func (r *RunRepository) Create(ctx context.Context, report *domain.RunReport) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO ingestion_runs (
			id, started_at, finished_at, terminal_state, skipped,
			references_found, details_extracted, details_failed,
			created, updated, persist_failed
		) VALUES (
			:id, :started_at, :finished_at, :terminal_state, :skipped,
			:references_found, :details_extracted, :details_failed,
			:created, :updated, :persist_failed
		)
	`, report)
	if err != nil {
		return fmt.Errorf("insert ingestion run %s: %w", report.ID, err)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = defaultRecentRuns
	}

	var runs []domain.RunReport
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, started_at, finished_at, terminal_state, skipped,
			references_found, details_extracted, details_failed,
			created, updated, persist_failed
		FROM ingestion_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingestion runs: %w", err)
	}
	if runs == nil {
		runs = []domain.RunReport{}
	}
	return runs, nil
}
