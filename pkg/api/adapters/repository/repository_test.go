package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/eser/ajan/logfx"
	"github.com/stretchr/testify/require"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/sqlite_store"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/results"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	logger, err := logfx.NewLoggerAsDefault(io.Discard, &logfx.Config{Level: "ERROR"})
	require.NoError(t, err)

	sqliteStore := sqlite_store.New(&sqlite_store.Config{Path: ":memory:"}, logger)
	require.NoError(t, sqliteStore.Init(context.Background()))

	t.Cleanup(func() {
		_ = sqliteStore.Close()
	})

	return New(logger, sqliteStore)
}

func newRun(id string, createdAt time.Time) *runs.Run {
	return &runs.Run{
		ID:            id,
		Status:        runs.RunStatusPending,
		ImageDir:      "/images",
		Bucket:        "logo-bucket",
		SpreadsheetID: "sheet-1",
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestCreateAndGetRun(t *testing.T) {
	t.Parallel()

	repository := newTestRepository(t)
	ctx := context.Background()

	run := newRun("run_1", time.Now().UTC())
	require.NoError(t, repository.CreateRun(ctx, run))

	got, err := repository.GetRun(ctx, "run_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, run.ID, got.ID)
	require.Equal(t, runs.RunStatusPending, got.Status)
	require.Equal(t, run.ImageDir, got.ImageDir)
	require.Equal(t, run.Bucket, got.Bucket)
	require.Equal(t, run.SpreadsheetID, got.SpreadsheetID)
	require.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestGetRunMissing(t *testing.T) {
	t.Parallel()

	repository := newTestRepository(t)

	got, err := repository.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUpdateRunStatus(t *testing.T) {
	t.Parallel()

	repository := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repository.CreateRun(ctx, newRun("run_1", time.Now().UTC())))
	require.NoError(t, repository.UpdateRunStatus(ctx, "run_1", runs.RunStatusCompleted, 42))

	got, err := repository.GetRun(ctx, "run_1")
	require.NoError(t, err)
	require.Equal(t, runs.RunStatusCompleted, got.Status)
	require.Equal(t, 42, got.ImageCount)
}

func TestListRunsOrdersByNewest(t *testing.T) {
	t.Parallel()

	repository := newTestRepository(t)
	ctx := context.Background()

	now := time.Now().UTC()

	require.NoError(t, repository.CreateRun(ctx, newRun("run_old", now.Add(-time.Hour))))
	require.NoError(t, repository.CreateRun(ctx, newRun("run_new", now)))

	items, err := repository.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "run_new", items[0].ID)
	require.Equal(t, "run_old", items[1].ID)
}

func TestResultsLifecycle(t *testing.T) {
	t.Parallel()

	repository := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repository.CreateRun(ctx, newRun("run_1", time.Now().UTC())))

	rows := []results.Row{
		{QueryAsset: "a.jpg", MatchedAsset: "b.jpg", Score: 0.92},
		{QueryAsset: "a.jpg", MatchedAsset: "c.jpg", Score: 0.71},
	}

	require.NoError(t, repository.InsertResults(ctx, "run_1", rows))

	items, err := repository.ListResultsByRun(ctx, "run_1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "b.jpg", items[0].MatchedAsset)
	require.InDelta(t, 0.92, items[0].Score, 0.0001)
	require.False(t, items[0].Exported)
	require.False(t, items[1].Exported)

	require.NoError(t, repository.MarkResultsExported(ctx, "run_1"))

	items, err = repository.ListResultsByRun(ctx, "run_1")
	require.NoError(t, err)
	require.True(t, items[0].Exported)
	require.True(t, items[1].Exported)
}

func TestInsertResultsEmpty(t *testing.T) {
	t.Parallel()

	repository := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repository.InsertResults(ctx, "run_1", nil))

	items, err := repository.ListResultsByRun(ctx, "run_1")
	require.NoError(t, err)
	require.Empty(t, items)
}
