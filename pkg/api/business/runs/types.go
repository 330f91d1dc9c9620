package runs

import (
	"context"
	"time"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/results"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records a single pipeline execution.
type Run struct {
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ID            string    `json:"id"`
	Status        RunStatus `json:"status"`
	ImageDir      string    `json:"image_dir"`
	Bucket        string    `json:"bucket"`
	SpreadsheetID string    `json:"spreadsheet_id,omitempty"`
	ImageCount    int       `json:"image_count"`
}

// RunRequest describes a pipeline run to execute.
type RunRequest struct {
	RunID         string `json:"run_id,omitempty"`
	ImageDir      string `json:"image_dir"`
	Bucket        string `json:"bucket"`
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

// Neighbor is a similarity match as seen by the business layer; identifiers
// are the opaque trailing segments of warehouse resource names.
type Neighbor struct {
	Asset string  `json:"asset"`
	Score float64 `json:"score"`
}

// Uploader moves local image files into a storage bucket.
type Uploader interface {
	EnsureBucketExists(ctx context.Context, bucketName string) error
	UploadBatch(ctx context.Context, bucketName string, localPaths []string) ([]string, error)
}

// WarehouseProvider covers the Vision Warehouse operations the pipeline
// depends on.
type WarehouseProvider interface {
	EnsureCorpus(ctx context.Context) (string, error)
	CreateAsset(ctx context.Context, corpusID string, gcsURI string, displayName string) (string, error)
	CreateIndex(ctx context.Context, corpusID string) (string, error)
	CreateIndexEndpoint(ctx context.Context, displayName string, description string) (string, error)
	DeployIndex(ctx context.Context, endpointID string, corpusID string, indexID string) error
	FindNeighbors(ctx context.Context, endpointID string, queryURI string, maxResults int) ([]Neighbor, error)
}

// Exporter writes similarity rows to a spreadsheet.
type Exporter interface {
	EnsureHeader(ctx context.Context, spreadsheetID string) error
	AppendRows(ctx context.Context, spreadsheetID string, rows []results.Row) error
}

// Ledger persists run and result records locally.
type Ledger interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus, imageCount int) error
	InsertResults(ctx context.Context, runID string, rows []results.Row) error
	MarkResultsExported(ctx context.Context, runID string) error
}
