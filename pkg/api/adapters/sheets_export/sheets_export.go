package sheets_export

import (
	"context"
	"fmt"

	"github.com/eser/ajan/logfx"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/results"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

var _ runs.Exporter = (*Exporter)(nil)

type Exporter struct {
	Config *Config

	logger  *logfx.Logger
	service *sheets.Service
}

func New(config *Config, logger *logfx.Logger) *Exporter {
	return &Exporter{Config: config, logger: logger}
}

func (e *Exporter) Init(ctx context.Context, opts ...option.ClientOption) error {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create sheets service: %w", err)
	}

	e.service = service

	e.logger.InfoContext(ctx, "[SheetsExport] Sheets service initialized", "module", "sheets_export", "range", e.Config.Range)

	return nil
}

// EnsureHeader writes the column header at the configured range. Writing is
// idempotent: re-running a pipeline overwrites the same header cells.
func (e *Exporter) EnsureHeader(ctx context.Context, spreadsheetID string) error {
	header := make([]any, len(results.HeaderColumns))
	for i, column := range results.HeaderColumns {
		header[i] = column
	}

	valueRange := &sheets.ValueRange{
		Values: [][]any{header},
	}

	_, err := e.service.Spreadsheets.Values.
		Update(spreadsheetID, e.Config.Range, valueRange).
		ValueInputOption(e.Config.ValueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header to spreadsheet %s: %w", spreadsheetID, err)
	}

	e.logger.DebugContext(ctx, "[SheetsExport] Header written", "module", "sheets_export", "spreadsheetId", spreadsheetID)

	return nil
}

// AppendRows appends the result tuples below the existing content of the
// configured range.
func (e *Exporter) AppendRows(ctx context.Context, spreadsheetID string, rows []results.Row) error {
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = row.Values()
	}

	valueRange := &sheets.ValueRange{Values: values}

	_, err := e.service.Spreadsheets.Values.
		Append(spreadsheetID, e.Config.Range, valueRange).
		ValueInputOption(e.Config.ValueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append %d rows to spreadsheet %s: %w", len(rows), spreadsheetID, err)
	}

	e.logger.InfoContext(ctx, "[SheetsExport] Rows appended", "module", "sheets_export", "spreadsheetId", spreadsheetID, "rows", len(rows))

	return nil
}
