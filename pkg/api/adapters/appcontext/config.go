package appcontext

import (
	"github.com/eser/ajan"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/gcp_auth"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/gcs_store"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/sheets_export"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/sqlite_store"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/warehouse"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/catalog"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

type FeatureFlags struct {
	Dummy bool `conf:"DUMMY" default:"false"` // dummy feature flag
}

type AppConfig struct {
	Auth gcp_auth.Config `conf:"AUTH"`

	GcsStore gcs_store.Config `conf:"GCS_STORE"`

	Warehouse warehouse.Config `conf:"WAREHOUSE"`

	SheetsExport sheets_export.Config `conf:"SHEETS_EXPORT"`

	SqliteStore sqlite_store.Config `conf:"SQLITE_STORE"`

	ajan.BaseConfig

	Catalog catalog.Config `conf:"CATALOG"`

	Runs runs.Config `conf:"RUNS"`

	Features FeatureFlags `conf:"FEATURES"`
}
