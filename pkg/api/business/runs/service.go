package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eser/ajan/logfx"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/catalog"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/results"
)

var (
	ErrMissingImageDir = errors.New("run request is missing an image directory")
	ErrMissingBucket   = errors.New("run request is missing a bucket name")
)

type Service struct {
	Config *Config

	logger    *logfx.Logger
	catalog   *catalog.Service
	uploader  Uploader
	warehouse WarehouseProvider
	exporter  Exporter
	ledger    Ledger
}

func NewService(config *Config, logger *logfx.Logger, catalogService *catalog.Service, uploader Uploader, warehouse WarehouseProvider, exporter Exporter, ledger Ledger) *Service {
	return &Service{
		Config:    config,
		logger:    logger,
		catalog:   catalogService,
		uploader:  uploader,
		warehouse: warehouse,
		exporter:  exporter,
		ledger:    ledger,
	}
}

func (s *Service) newRun(request RunRequest) *Run {
	runID := request.RunID
	if runID == "" {
		runID = fmt.Sprintf("run_%s", time.Now().UTC().Format("20060102T150405"))
	}

	now := time.Now().UTC()

	return &Run{
		ID:            runID,
		Status:        RunStatusPending,
		ImageDir:      request.ImageDir,
		Bucket:        request.Bucket,
		SpreadsheetID: request.SpreadsheetID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *Service) validate(request RunRequest) error {
	if request.ImageDir == "" {
		return ErrMissingImageDir
	}

	if request.Bucket == "" {
		return ErrMissingBucket
	}

	return nil
}

// Execute runs the whole pipeline synchronously and returns the finished
// run record.
func (s *Service) Execute(ctx context.Context, request RunRequest) (*Run, error) {
	if err := s.validate(request); err != nil {
		return nil, err
	}

	run := s.newRun(request)

	if err := s.ledger.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	err := s.execute(ctx, run, request)
	if err != nil {
		run.Status = RunStatusFailed

		if ledgerErr := s.ledger.UpdateRunStatus(ctx, run.ID, RunStatusFailed, run.ImageCount); ledgerErr != nil {
			s.logger.ErrorContext(ctx, "[Runs] Failed to record failed run", "module", "runs", "runId", run.ID, "error", ledgerErr)
		}

		return run, err
	}

	run.Status = RunStatusCompleted

	if ledgerErr := s.ledger.UpdateRunStatus(ctx, run.ID, RunStatusCompleted, run.ImageCount); ledgerErr != nil {
		return run, ledgerErr
	}

	return run, nil
}

// Dispatch starts the pipeline in the background and returns the pending
// run record immediately.
func (s *Service) Dispatch(ctx context.Context, request RunRequest) (*Run, error) {
	if err := s.validate(request); err != nil {
		return nil, err
	}

	run := s.newRun(request)

	if err := s.ledger.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	// The background goroutine owns the run record from here on; the
	// caller gets a detached copy it can read or serialize freely.
	snapshot := *run

	// The run outlives the dispatching request.
	backgroundCtx := context.WithoutCancel(ctx)

	go func() {
		err := s.execute(backgroundCtx, run, request)
		if err != nil {
			s.logger.ErrorContext(backgroundCtx, "[Runs] Background run failed", "module", "runs", "runId", run.ID, "error", err)

			if ledgerErr := s.ledger.UpdateRunStatus(backgroundCtx, run.ID, RunStatusFailed, run.ImageCount); ledgerErr != nil {
				s.logger.ErrorContext(backgroundCtx, "[Runs] Failed to record failed run", "module", "runs", "runId", run.ID, "error", ledgerErr)
			}

			return
		}

		if ledgerErr := s.ledger.UpdateRunStatus(backgroundCtx, run.ID, RunStatusCompleted, run.ImageCount); ledgerErr != nil {
			s.logger.ErrorContext(backgroundCtx, "[Runs] Failed to record completed run", "module", "runs", "runId", run.ID, "error", ledgerErr)
		}
	}()

	return &snapshot, nil
}

type indexedImage struct {
	displayName string
	gcsURI      string
}

func (s *Service) execute(ctx context.Context, run *Run, request RunRequest) error {
	s.logger.InfoContext(ctx, "[Runs] Starting run", "module", "runs", "runId", run.ID, "imageDir", request.ImageDir, "bucket", request.Bucket)

	if err := s.ledger.UpdateRunStatus(ctx, run.ID, RunStatusRunning, 0); err != nil {
		return err
	}

	refs, err := s.catalog.Discover(request.ImageDir)
	if err != nil {
		return err
	}

	run.ImageCount = len(refs)

	if len(refs) == 0 {
		s.logger.InfoContext(ctx, "[Runs] No images found, nothing to do", "module", "runs", "runId", run.ID, "imageDir", request.ImageDir)

		return nil
	}

	if err := s.uploader.EnsureBucketExists(ctx, request.Bucket); err != nil {
		return err
	}

	corpusID, err := s.warehouse.EnsureCorpus(ctx)
	if err != nil {
		return err
	}

	images, err := s.ingest(ctx, run, request, corpusID, refs)
	if err != nil {
		return err
	}

	endpointID, err := s.buildIndex(ctx, run, corpusID)
	if err != nil {
		return err
	}

	rows, err := s.query(ctx, run, request, endpointID, images)
	if err != nil {
		return err
	}

	if err := s.ledger.InsertResults(ctx, run.ID, rows); err != nil {
		return err
	}

	if request.SpreadsheetID != "" {
		if err := s.export(ctx, run, request.SpreadsheetID, rows); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "[Runs] Run finished", "module", "runs", "runId", run.ID, "images", len(images), "rows", len(rows))

	return nil
}

// ingest uploads the images batch by batch and registers each one as a
// corpus asset.
func (s *Service) ingest(ctx context.Context, run *Run, request RunRequest, corpusID string, refs []catalog.ImageRef) ([]indexedImage, error) {
	images := make([]indexedImage, 0, len(refs))

	for batchIndex, batch := range s.catalog.Batches(refs) {
		s.logger.InfoContext(ctx, "[Runs] Processing batch", "module", "runs", "runId", run.ID, "batch", batchIndex, "size", len(batch))

		localPaths := make([]string, len(batch))
		for i, ref := range batch {
			localPaths[i] = ref.LocalPath
		}

		uris, err := s.uploader.UploadBatch(ctx, request.Bucket, localPaths)
		if err != nil {
			return nil, err
		}

		for i, uri := range uris {
			_, err := s.warehouse.CreateAsset(ctx, corpusID, uri, batch[i].DisplayName)
			if err != nil {
				return nil, err
			}

			images = append(images, indexedImage{
				displayName: batch[i].DisplayName,
				gcsURI:      uri,
			})
		}
	}

	return images, nil
}

// buildIndex creates the index, provisions an endpoint and deploys the
// index to it, returning the endpoint identifier.
func (s *Service) buildIndex(ctx context.Context, run *Run, corpusID string) (string, error) {
	indexID, err := s.warehouse.CreateIndex(ctx, corpusID)
	if err != nil {
		return "", err
	}

	endpointDisplayName := fmt.Sprintf("%s_%s", s.Config.EndpointDisplayNamePrefix, time.Now().UTC().Format("20060102"))

	endpointID, err := s.warehouse.CreateIndexEndpoint(ctx, endpointDisplayName, s.Config.EndpointDescription)
	if err != nil {
		return "", err
	}

	err = s.warehouse.DeployIndex(ctx, endpointID, corpusID, indexID)
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "[Runs] Index deployed", "module", "runs", "runId", run.ID, "corpusId", corpusID, "indexId", indexID, "endpointId", endpointID)

	return endpointID, nil
}

// query issues one similarity search per indexed image. A query image
// matching itself is kept; rows are exported verbatim.
func (s *Service) query(ctx context.Context, run *Run, request RunRequest, endpointID string, images []indexedImage) ([]results.Row, error) {
	maxResults := request.MaxResults
	if maxResults <= 0 {
		maxResults = s.Config.MaxResults
	}

	var rows []results.Row

	for _, image := range images {
		neighbors, err := s.warehouse.FindNeighbors(ctx, endpointID, image.gcsURI, maxResults)
		if err != nil {
			return nil, err
		}

		for _, neighbor := range neighbors {
			rows = append(rows, results.Row{
				QueryAsset:   image.displayName,
				MatchedAsset: neighbor.Asset,
				Score:        neighbor.Score,
			})
		}
	}

	s.logger.InfoContext(ctx, "[Runs] Similarity queries finished", "module", "runs", "runId", run.ID, "queries", len(images), "rows", len(rows))

	return rows, nil
}

func (s *Service) export(ctx context.Context, run *Run, spreadsheetID string, rows []results.Row) error {
	if err := s.exporter.EnsureHeader(ctx, spreadsheetID); err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	if err := s.exporter.AppendRows(ctx, spreadsheetID, rows); err != nil {
		return err
	}

	if err := s.ledger.MarkResultsExported(ctx, run.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "[Runs] Results exported", "module", "runs", "runId", run.ID, "spreadsheetId", spreadsheetID, "rows", len(rows))

	return nil
}
