package repository

import (
	"github.com/eser/ajan/logfx"

	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/adapters/sqlite_store"
	"github.com/bhaktiutama/vision-warehouse-logo-similarity/pkg/api/business/runs"
)

var _ runs.Ledger = (*Repository)(nil)

// Repository exposes typed run and result persistence over the generic
// SQLite store.
type Repository struct {
	logger      *logfx.Logger
	sqliteStore *sqlite_store.Store
}

func New(logger *logfx.Logger, sqliteStore *sqlite_store.Store) *Repository {
	return &Repository{
		logger:      logger,
		sqliteStore: sqliteStore,
	}
}
