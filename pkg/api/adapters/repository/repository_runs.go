package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

var (
	ErrFailedToCreateRun = errors.New("failed to create run")
	ErrFailedToUpdateRun = errors.New("failed to update run")
	ErrFailedToListRuns  = errors.New("failed to list runs")
	ErrFailedToGetRun    = errors.New("failed to get run")
)

func (r *Repository) CreateRun(ctx context.Context, run *runs.Run) error {
	r.logger.DebugContext(ctx, "[Repository] Creating run", "module", "repository", "runId", run.ID)

	_, err := r.sqliteStore.DB().ExecContext(
		ctx,
		`INSERT INTO runs (id, status, image_dir, bucket, spreadsheet_id, image_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Status),
		run.ImageDir,
		run.Bucket,
		run.SpreadsheetID,
		run.ImageCount,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "[Repository] Failed to create run", "module", "repository", "runId", run.ID, "error", err)

		return fmt.Errorf("%w: %w", ErrFailedToCreateRun, err)
	}

	return nil
}

func (r *Repository) UpdateRunStatus(ctx context.Context, runID string, status runs.RunStatus, imageCount int) error {
	r.logger.DebugContext(ctx, "[Repository] Updating run status", "module", "repository", "runId", runID, "status", status)

	_, err := r.sqliteStore.DB().ExecContext(
		ctx,
		`UPDATE runs SET status = ?, image_count = ?, updated_at = ? WHERE id = ?`,
		string(status),
		imageCount,
		time.Now().UTC(),
		runID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "[Repository] Failed to update run status", "module", "repository", "runId", runID, "error", err)

		return fmt.Errorf("%w: %w", ErrFailedToUpdateRun, err)
	}

	return nil
}

func (r *Repository) GetRun(ctx context.Context, runID string) (*runs.Run, error) {
	r.logger.DebugContext(ctx, "[Repository] Getting run", "module", "repository", "runId", runID)

	row := r.sqliteStore.DB().QueryRowContext(
		ctx,
		`SELECT id, status, image_dir, bucket, spreadsheet_id, image_count, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)

	var item runs.Run
	var status string

	err := row.Scan(&item.ID, &status, &item.ImageDir, &item.Bucket, &item.SpreadsheetID, &item.ImageCount, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		r.logger.ErrorContext(ctx, "[Repository] Failed to get run", "module", "repository", "runId", runID, "error", err)

		return nil, fmt.Errorf("%w: %w", ErrFailedToGetRun, err)
	}

	item.Status = runs.RunStatus(status)

	return &item, nil
}

func (r *Repository) ListRuns(ctx context.Context) ([]*runs.Run, error) {
	r.logger.DebugContext(ctx, "[Repository] Listing runs", "module", "repository")

	rows, err := r.sqliteStore.DB().QueryContext(
		ctx,
		`SELECT id, status, image_dir, bucket, spreadsheet_id, image_count, created_at, updated_at
		 FROM runs ORDER BY created_at DESC`,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "[Repository] Failed to list runs", "module", "repository", "error", err)

		return nil, fmt.Errorf("%w: %w", ErrFailedToListRuns, err)
	}
	defer rows.Close() //nolint:errcheck

	var items []*runs.Run

	for rows.Next() {
		var item runs.Run
		var status string

		err := rows.Scan(&item.ID, &status, &item.ImageDir, &item.Bucket, &item.SpreadsheetID, &item.ImageCount, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToListRuns, err)
		}

		item.Status = runs.RunStatus(status)

		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToListRuns, err)
	}

	return items, nil
}
