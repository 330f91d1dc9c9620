package appcontext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/eser/ajan/configfx"
	"github.com/eser/ajan/logfx"
	"github.com/eser/ajan/metricsfx"
	"google.golang.org/api/option"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/gcp_auth"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/gcs_store"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/repository"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/sheets_export"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/sqlite_store"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/warehouse"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/catalog"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

var ErrInitFailed = errors.New("failed to initialize app context")

type AppContext struct {
	Config  *AppConfig
	Logger  *logfx.Logger
	Metrics *metricsfx.MetricsProvider

	Auth         *gcp_auth.Auth
	GcsStore     *gcs_store.Store
	Warehouse    *warehouse.Client
	SheetsExport *sheets_export.Exporter
	SqliteStore  *sqlite_store.Store
	Repository   *repository.Repository

	Catalog *catalog.Service
	Runs    *runs.Service
}

func NewAppContext(ctx context.Context) (*AppContext, error) {
	appContext := &AppContext{} //nolint:exhaustruct

	// config
	cl := configfx.NewConfigManager()

	appContext.Config = &AppConfig{} //nolint:exhaustruct

	err := cl.LoadDefaults(appContext.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	// logger
	appContext.Logger, err = logfx.NewLoggerAsDefault(os.Stdout, &appContext.Config.Log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	// metrics
	appContext.Metrics = metricsfx.NewMetricsProvider()

	err = appContext.Metrics.RegisterNativeCollectors()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	// adapters that hold no connections until Init
	appContext.Auth = gcp_auth.New(&appContext.Config.Auth, appContext.Logger)
	appContext.GcsStore = gcs_store.New(&appContext.Config.GcsStore, appContext.Logger)
	appContext.SheetsExport = sheets_export.New(&appContext.Config.SheetsExport, appContext.Logger)
	appContext.SqliteStore = sqlite_store.New(&appContext.Config.SqliteStore, appContext.Logger)
	appContext.Repository = repository.New(appContext.Logger, appContext.SqliteStore)

	// services
	appContext.Catalog = catalog.NewService(&appContext.Config.Catalog, appContext.Logger)

	return appContext, nil
}

// Init resolves credentials, brings up every adapter that talks to an
// external system, then wires the runs service on top of them.
func (a *AppContext) Init(ctx context.Context) error {
	a.Logger.InfoContext(
		ctx,
		"Initializing application layer",
		slog.String("name", a.Config.AppName),
		slog.String("environment", a.Config.AppEnv),
		slog.Any("features", a.Config.Features),
	)

	err := a.Auth.Init(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	if a.Config.GcsStore.ProjectID == "" {
		a.Config.GcsStore.ProjectID = a.Auth.ProjectID()
	}

	err = a.SqliteStore.Init(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	err = a.GcsStore.Init(ctx, option.WithCredentials(a.Auth.Credentials()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	err = a.SheetsExport.Init(ctx, option.WithCredentials(a.Auth.Credentials()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	a.Warehouse = warehouse.NewClient(&a.Config.Warehouse, a.Auth.TokenSource(), a.Logger)

	a.Runs = runs.NewService(
		&a.Config.Runs,
		a.Logger,
		a.Catalog,
		a.GcsStore,
		a.Warehouse,
		a.SheetsExport,
		a.Repository,
	)

	return nil
}

func (a *AppContext) Close() {
	if err := a.GcsStore.Close(); err != nil {
		a.Logger.Error("Failed to close cloud storage client", "error", err)
	}

	if err := a.SqliteStore.Close(); err != nil {
		a.Logger.Error("Failed to close sqlite store", "error", err)
	}
}
