package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eser/ajan/logfx"
	"github.com/stretchr/testify/require"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/catalog"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/results"
)

type fakeUploader struct {
	ensuredBuckets []string
	batches        [][]string
}

func (f *fakeUploader) EnsureBucketExists(_ context.Context, bucketName string) error {
	f.ensuredBuckets = append(f.ensuredBuckets, bucketName)

	return nil
}

func (f *fakeUploader) UploadBatch(_ context.Context, bucketName string, localPaths []string) ([]string, error) {
	f.batches = append(f.batches, localPaths)

	uris := make([]string, len(localPaths))
	for i, localPath := range localPaths {
		uris[i] = fmt.Sprintf("gs://%s/logos/%s", bucketName, filepath.Base(localPath))
	}

	return uris, nil
}

type fakeWarehouse struct {
	ensureCorpusErr error

	assets     []string
	queries    []string
	maxResults []int

	indexCreated    bool
	endpointName    string
	deployedIndexID string
}

func (f *fakeWarehouse) EnsureCorpus(_ context.Context) (string, error) {
	if f.ensureCorpusErr != nil {
		return "", f.ensureCorpusErr
	}

	return "corpus-1", nil
}

func (f *fakeWarehouse) CreateAsset(_ context.Context, _ string, _ string, displayName string) (string, error) {
	f.assets = append(f.assets, displayName)

	return fmt.Sprintf("asset-%d", len(f.assets)), nil
}

func (f *fakeWarehouse) CreateIndex(_ context.Context, _ string) (string, error) {
	f.indexCreated = true

	return "index-1", nil
}

func (f *fakeWarehouse) CreateIndexEndpoint(_ context.Context, displayName string, _ string) (string, error) {
	f.endpointName = displayName

	return "endpoint-1", nil
}

func (f *fakeWarehouse) DeployIndex(_ context.Context, _ string, _ string, indexID string) error {
	f.deployedIndexID = indexID

	return nil
}

func (f *fakeWarehouse) FindNeighbors(_ context.Context, _ string, queryURI string, maxResults int) ([]Neighbor, error) {
	f.queries = append(f.queries, queryURI)
	f.maxResults = append(f.maxResults, maxResults)

	return []Neighbor{
		{Asset: "asset-1", Score: 0.95},
		{Asset: "asset-2", Score: 0.72},
	}, nil
}

type fakeExporter struct {
	headerCalls int
	appended    [][]results.Row
}

func (f *fakeExporter) EnsureHeader(_ context.Context, _ string) error {
	f.headerCalls++

	return nil
}

func (f *fakeExporter) AppendRows(_ context.Context, _ string, rows []results.Row) error {
	f.appended = append(f.appended, rows)

	return nil
}

type fakeLedger struct {
	created  []*Run
	inserted []results.Row
	marked   []string
	statusCh chan RunStatus
}

func (f *fakeLedger) CreateRun(_ context.Context, run *Run) error {
	f.created = append(f.created, run)

	return nil
}

func (f *fakeLedger) UpdateRunStatus(_ context.Context, _ string, status RunStatus, _ int) error {
	if f.statusCh != nil {
		f.statusCh <- status
	}

	return nil
}

func (f *fakeLedger) InsertResults(_ context.Context, _ string, rows []results.Row) error {
	f.inserted = append(f.inserted, rows...)

	return nil
}

func (f *fakeLedger) MarkResultsExported(_ context.Context, runID string) error {
	f.marked = append(f.marked, runID)

	return nil
}

type serviceFixture struct {
	service   *Service
	uploader  *fakeUploader
	warehouse *fakeWarehouse
	exporter  *fakeExporter
	ledger    *fakeLedger
}

func newServiceFixture(t *testing.T, batchSize int) *serviceFixture {
	t.Helper()

	logger, err := logfx.NewLoggerAsDefault(io.Discard, &logfx.Config{Level: "ERROR"})
	require.NoError(t, err)

	catalogService := catalog.NewService(
		&catalog.Config{SupportedFormats: ".jpg,.jpeg,.png", BatchSize: batchSize},
		logger,
	)

	fixture := &serviceFixture{
		uploader:  &fakeUploader{},
		warehouse: &fakeWarehouse{},
		exporter:  &fakeExporter{},
		ledger:    &fakeLedger{},
	}

	fixture.service = NewService(
		&Config{
			MaxResults:                10,
			EndpointDisplayNamePrefix: "logo_similarity_endpoint",
			EndpointDescription:       "Endpoint for logo similarity search",
		},
		logger,
		catalogService,
		fixture.uploader,
		fixture.warehouse,
		fixture.exporter,
		fixture.ledger,
	)

	return fixture
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("fake image bytes"), 0o644))
	}
}

func TestExecuteRunsPipeline(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, 2)

	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg", "c.png")

	run, err := fixture.service.Execute(context.Background(), RunRequest{
		RunID:         "run_test",
		ImageDir:      dir,
		Bucket:        "logo-bucket",
		SpreadsheetID: "sheet-1",
	})
	require.NoError(t, err)
	require.Equal(t, RunStatusCompleted, run.Status)
	require.Equal(t, 3, run.ImageCount)

	require.Equal(t, []string{"logo-bucket"}, fixture.uploader.ensuredBuckets)
	require.Len(t, fixture.uploader.batches, 2)
	require.Len(t, fixture.uploader.batches[0], 2)
	require.Len(t, fixture.uploader.batches[1], 1)

	require.Equal(t, []string{"a.jpg", "b.jpg", "c.png"}, fixture.warehouse.assets)
	require.True(t, fixture.warehouse.indexCreated)
	require.Equal(t, "index-1", fixture.warehouse.deployedIndexID)

	expectedEndpoint := fmt.Sprintf("logo_similarity_endpoint_%s", time.Now().UTC().Format("20060102"))
	require.Equal(t, expectedEndpoint, fixture.warehouse.endpointName)

	// two neighbors per query image
	require.Len(t, fixture.ledger.inserted, 6)
	require.Equal(t, "a.jpg", fixture.ledger.inserted[0].QueryAsset)
	require.Equal(t, "asset-1", fixture.ledger.inserted[0].MatchedAsset)

	require.Equal(t, 1, fixture.exporter.headerCalls)
	require.Len(t, fixture.exporter.appended, 1)
	require.Len(t, fixture.exporter.appended[0], 6)
	require.Equal(t, []string{"run_test"}, fixture.ledger.marked)
}

func TestExecuteWithoutSpreadsheetSkipsExport(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, 100)

	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")

	run, err := fixture.service.Execute(context.Background(), RunRequest{
		ImageDir: dir,
		Bucket:   "logo-bucket",
	})
	require.NoError(t, err)
	require.Equal(t, RunStatusCompleted, run.Status)
	require.NotEmpty(t, run.ID)

	require.Zero(t, fixture.exporter.headerCalls)
	require.Empty(t, fixture.exporter.appended)
	require.Empty(t, fixture.ledger.marked)
	require.Len(t, fixture.ledger.inserted, 2)
}

func TestExecuteEmptyDirectory(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, 100)

	run, err := fixture.service.Execute(context.Background(), RunRequest{
		ImageDir:      t.TempDir(),
		Bucket:        "logo-bucket",
		SpreadsheetID: "sheet-1",
	})
	require.NoError(t, err)
	require.Equal(t, RunStatusCompleted, run.Status)
	require.Zero(t, run.ImageCount)

	require.Empty(t, fixture.uploader.ensuredBuckets)
	require.Empty(t, fixture.warehouse.assets)
	require.Empty(t, fixture.ledger.inserted)

	// the spreadsheet is never touched, not even for the header
	require.Zero(t, fixture.exporter.headerCalls)
	require.Empty(t, fixture.exporter.appended)
}

func TestExecuteValidation(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, 100)

	_, err := fixture.service.Execute(context.Background(), RunRequest{Bucket: "logo-bucket"})
	require.ErrorIs(t, err, ErrMissingImageDir)

	_, err = fixture.service.Execute(context.Background(), RunRequest{ImageDir: "/images"})
	require.ErrorIs(t, err, ErrMissingBucket)
}

func TestExecuteMarksRunFailed(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, 100)
	fixture.warehouse.ensureCorpusErr = errors.New("warehouse unavailable")

	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")

	run, err := fixture.service.Execute(context.Background(), RunRequest{
		ImageDir: dir,
		Bucket:   "logo-bucket",
	})
	require.Error(t, err)
	require.Equal(t, RunStatusFailed, run.Status)
	require.Empty(t, fixture.warehouse.assets)
}

func TestExecuteMaxResults(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, 100)

	dir := t.TempDir()
	writeImages(t, dir, "a.jpg")

	_, err := fixture.service.Execute(context.Background(), RunRequest{
		ImageDir:   dir,
		Bucket:     "logo-bucket",
		MaxResults: 3,
	})
	require.NoError(t, err)
	require.Equal(t, []int{3}, fixture.warehouse.maxResults)

	fixture = newServiceFixture(t, 100)

	dir = t.TempDir()
	writeImages(t, dir, "a.jpg")

	_, err = fixture.service.Execute(context.Background(), RunRequest{
		ImageDir: dir,
		Bucket:   "logo-bucket",
	})
	require.NoError(t, err)
	require.Equal(t, []int{10}, fixture.warehouse.maxResults)
}

func TestDispatchReturnsDetachedRecord(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, 100)
	fixture.ledger.statusCh = make(chan RunStatus, 8)

	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg")

	run, err := fixture.service.Dispatch(context.Background(), RunRequest{
		RunID:    "run_detached",
		ImageDir: dir,
		Bucket:   "logo-bucket",
	})
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		defer close(done)

		deadline := time.After(5 * time.Second)

		for {
			select {
			case status := <-fixture.ledger.statusCh:
				if status == RunStatusCompleted || status == RunStatusFailed {
					return
				}

			case <-deadline:
				return
			}
		}
	}()

	// serialize the returned record while the background run is mutating
	// its own copy
	for serializing := true; serializing; {
		_, marshalErr := json.Marshal(run)
		require.NoError(t, marshalErr)

		select {
		case <-done:
			serializing = false
		default:
		}
	}

	require.Equal(t, RunStatusPending, run.Status)
	require.Zero(t, run.ImageCount)
}

func TestDispatchRunsInBackground(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, 100)
	fixture.ledger.statusCh = make(chan RunStatus, 8)

	dir := t.TempDir()
	writeImages(t, dir, "a.jpg", "b.jpg")

	run, err := fixture.service.Dispatch(context.Background(), RunRequest{
		RunID:    "run_bg",
		ImageDir: dir,
		Bucket:   "logo-bucket",
	})
	require.NoError(t, err)
	require.Equal(t, RunStatusPending, run.Status)

	deadline := time.After(5 * time.Second)

	for {
		select {
		case status := <-fixture.ledger.statusCh:
			if status == RunStatusCompleted {
				require.Len(t, fixture.ledger.inserted, 4)
				require.Equal(t, []string{"a.jpg", "b.jpg"}, fixture.warehouse.assets)

				return
			}

			require.NotEqual(t, RunStatusFailed, status)

		case <-deadline:
			t.Fatal("background run did not complete in time")
		}
	}
}
