package repository

import (
	"context"
	"time"

	"github.com/jafarshop/bundleapp/internal/domain"
)

// ShopRepository defines tenant data access methods
type ShopRepository interface {
	GetByDomain(ctx context.Context, domain string) (*domain.Shop, error)
	Upsert(ctx context.Context, shop *domain.Shop) error
	UpdateShopGID(ctx context.Context, shopDomain, shopGID string) error
	Delete(ctx context.Context, shopDomain string) error
}

// MergeConfigurationRepository is the source of truth for slot bindings.
// Callers must not rely on the order rows are returned in.
type MergeConfigurationRepository interface {
	ListByShop(ctx context.Context, shop string) ([]*domain.MergeConfiguration, error)
	GetBySlot(ctx context.Context, shop string, slot domain.SlotID) (*domain.MergeConfiguration, error)
	// Create allocates the first free slot and inserts the row in one
	// transaction. cfg.SlotID is set on success.
	Create(ctx context.Context, cfg *domain.MergeConfiguration) error
	Update(ctx context.Context, cfg *domain.MergeConfiguration) error
	DeleteBySlot(ctx context.Context, shop string, slot domain.SlotID) error
	// DeleteAllByShop removes every row for shop. Zero rows is not an error.
	DeleteAllByShop(ctx context.Context, shop string) (int64, error)
}

// IdempotencyKeyRepository stores replayable responses
type IdempotencyKeyRepository interface {
	// GetByKey returns nil, nil when the key has not been used.
	GetByKey(ctx context.Context, shop, key string) (*domain.IdempotencyRecord, error)
	// Reserve stores rec as pending. It returns false when the key is
	// already held, unless the holder is pending and older than staleBefore,
	// in which case the reservation is taken over.
	Reserve(ctx context.Context, rec *domain.IdempotencyRecord, staleBefore time.Time) (bool, error)
	// Complete stores the response for a reserved key.
	Complete(ctx context.Context, rec *domain.IdempotencyRecord) error
	// Release drops a reservation that has no stored response.
	Release(ctx context.Context, shop, key string) error
	DeleteByShop(ctx context.Context, shop string) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Shop               ShopRepository
	MergeConfiguration MergeConfigurationRepository
	IdempotencyKey     IdempotencyKeyRepository
}
