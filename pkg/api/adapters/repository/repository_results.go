package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/results"
)

var (
	ErrFailedToInsertResults = errors.New("failed to insert results")
	ErrFailedToListResults   = errors.New("failed to list results")
	ErrFailedToMarkExported  = errors.New("failed to mark results as exported")
)

func (r *Repository) InsertResults(ctx context.Context, runID string, rows []results.Row) error {
	r.logger.DebugContext(ctx, "[Repository] Inserting results", "module", "repository", "runId", runID, "rows", len(rows))

	if len(rows) == 0 {
		return nil
	}

	tx, err := r.sqliteStore.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsertResults, err)
	}

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO results (run_id, query_asset, matched_asset, score, exported) VALUES (?, ?, ?, ?, 0)`,
	)
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("%w: %w", ErrFailedToInsertResults, err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx, runID, row.QueryAsset, row.MatchedAsset, row.Score)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("%w: %w", ErrFailedToInsertResults, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsertResults, err)
	}

	return nil
}

func (r *Repository) ListResultsByRun(ctx context.Context, runID string) ([]results.Row, error) {
	r.logger.DebugContext(ctx, "[Repository] Listing results", "module", "repository", "runId", runID)

	rows, err := r.sqliteStore.DB().QueryContext(
		ctx,
		`SELECT query_asset, matched_asset, score, exported FROM results WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "[Repository] Failed to list results", "module", "repository", "runId", runID, "error", err)

		return nil, fmt.Errorf("%w: %w", ErrFailedToListResults, err)
	}
	defer rows.Close() //nolint:errcheck

	var items []results.Row

	for rows.Next() {
		var item results.Row
		var exported int

		err := rows.Scan(&item.QueryAsset, &item.MatchedAsset, &item.Score, &exported)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToListResults, err)
		}

		item.Exported = exported != 0

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToListResults, err)
	}

	return items, nil
}

func (r *Repository) MarkResultsExported(ctx context.Context, runID string) error {
	r.logger.DebugContext(ctx, "[Repository] Marking results as exported", "module", "repository", "runId", runID)

	_, err := r.sqliteStore.DB().ExecContext(ctx, `UPDATE results SET exported = 1 WHERE run_id = ?`, runID)
	if err != nil {
		r.logger.ErrorContext(ctx, "[Repository] Failed to mark results as exported", "module", "repository", "runId", runID, "error", err)

		return fmt.Errorf("%w: %w", ErrFailedToMarkExported, err)
	}

	return nil
}
