package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/appcontext"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

func run() error {
	imageDir := flag.String("image-dir", "", "directory containing logo images")
	bucket := flag.String("bucket", "", "cloud storage bucket for uploads")
	output := flag.String("output", "", "spreadsheet id for exported results")
	maxResults := flag.Int("max-results", 0, "maximum similar images per query")
	batchSize := flag.Int("batch-size", 0, "number of images per upload batch")
	runID := flag.String("run-id", "", "identifier for this run")
	flag.Parse()

	baseCtx := context.Background()

	appContext, err := appcontext.NewAppContext(baseCtx)
	if err != nil {
		return err
	}

	if *batchSize > 0 {
		appContext.Config.Catalog.BatchSize = *batchSize
	}

	err = appContext.Init(baseCtx)
	if err != nil {
		return err
	}

	defer appContext.Close()

	result, err := appContext.Runs.Execute(baseCtx, runs.RunRequest{
		RunID:         *runID,
		ImageDir:      *imageDir,
		Bucket:        *bucket,
		SpreadsheetID: *output,
		MaxResults:    *maxResults,
	})
	if err != nil {
		return err
	}

	appContext.Logger.InfoContext(
		baseCtx,
		"[Main] Run completed",
		"module", "main",
		"runId", result.ID,
		"imageCount", result.ImageCount,
	)

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
