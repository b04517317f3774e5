package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/repository"
)

// ShopEraser removes everything stored for a shop when Shopify sends
// shop/redact. It does not republish; the shop's metafields go away with the
// app installation.
type ShopEraser struct {
	repos  *repository.Repositories
	cache  ProductCache
	logger *zap.Logger
}

// NewShopEraser creates a new shop eraser. cache may be nil.
func NewShopEraser(repos *repository.Repositories, cache ProductCache, logger *zap.Logger) *ShopEraser {
	return &ShopEraser{repos: repos, cache: cache, logger: logger}
}

// EraseShop deletes the shop's merge groups, stored idempotent responses and
// its shop record. Erasing a
// shop with nothing stored succeeds.
func (e *ShopEraser) EraseShop(ctx context.Context, shopDomain string) error {
	removed, err := e.repos.MergeConfiguration.DeleteAllByShop(ctx, shopDomain)
	if err != nil {
		e.logger.Error("Failed to erase merge configurations", zap.String("shop", shopDomain), zap.Error(err))
		return err
	}
	if err := e.repos.IdempotencyKey.DeleteByShop(ctx, shopDomain); err != nil {
		e.logger.Error("Failed to erase idempotency keys", zap.String("shop", shopDomain), zap.Error(err))
		return err
	}
	if err := e.repos.Shop.Delete(ctx, shopDomain); err != nil {
		e.logger.Error("Failed to erase shop", zap.String("shop", shopDomain), zap.Error(err))
		return err
	}
	if e.cache != nil {
		if err := e.cache.PurgeShop(ctx, shopDomain); err != nil {
			e.logger.Warn("Failed to purge product cache", zap.String("shop", shopDomain), zap.Error(err))
		}
	}

	e.logger.Info("Erased shop data",
		zap.String("shop", shopDomain),
		zap.Int64("merge_configurations_removed", removed),
	)
	return nil
}
