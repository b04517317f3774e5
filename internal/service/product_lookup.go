package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/metrics"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

// ProductCache is implemented by *cache.RedisProductCache.
type ProductCache interface {
	GetVariant(ctx context.Context, shop, id string) (*domain.ProductVariantSummary, bool, error)
	SetVariant(ctx context.Context, shop string, v *domain.ProductVariantSummary, ttl time.Duration) error
	PurgeShop(ctx context.Context, shop string) error
}

// ProductLookupService resolves variant ids for the merge group editor.
type ProductLookupService struct {
	apis   AdminAPIFactory
	cache  ProductCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewProductLookupService creates a lookup service. cache may be nil.
func NewProductLookupService(apis AdminAPIFactory, cache ProductCache, ttl time.Duration, logger *zap.Logger) *ProductLookupService {
	return &ProductLookupService{apis: apis, cache: cache, ttl: ttl, logger: logger}
}

// GetVariant returns the variant summary, reading through the cache.
func (s *ProductLookupService) GetVariant(ctx context.Context, shop *domain.Shop, id string) (*domain.ProductVariantSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &errors.ErrValidation{Message: "id is required", Fields: map[string]string{"id": "required"}}
	}

	if s.cache != nil {
		v, ok, err := s.cache.GetVariant(ctx, shop.Domain, id)
		switch {
		case err != nil:
			metrics.ProductCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("Product cache read failed", zap.String("shop", shop.Domain), zap.Error(err))
		case ok:
			metrics.ProductCacheLookups.WithLabelValues("hit").Inc()
			return v, nil
		default:
			metrics.ProductCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	v, err := s.apis(shop).GetProductVariant(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetVariant(ctx, shop.Domain, v, s.ttl); err != nil {
			s.logger.Warn("Product cache write failed", zap.String("shop", shop.Domain), zap.Error(err))
		}
	}
	return v, nil
}
