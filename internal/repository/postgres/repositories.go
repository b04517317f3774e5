package postgres

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/repository"
)

// NewRepositories creates a new set of repositories
func NewRepositories(db *sqlx.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Shop:               NewShopRepository(db, logger),
		MergeConfiguration: NewMergeConfigurationRepository(db, logger),
		IdempotencyKey:     NewIdempotencyKeyRepository(db, logger),
	}
}
