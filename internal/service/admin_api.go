package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/shopify"
)

// AdminAPI is the part of the Shopify Admin API the bundle services call.
// *shopify.Client implements it.
type AdminAPI interface {
	SetMetafields(ctx context.Context, metafields []shopify.MetafieldsSetInput) error
	GetShopMetafieldValue(ctx context.Context, namespace, key string) (string, error)
	DeleteMetaobject(ctx context.Context, id string) error
	GetShopID(ctx context.Context) (string, error)
	GetProductVariant(ctx context.Context, id string) (*domain.ProductVariantSummary, error)
}

// AdminAPIFactory returns an Admin API client authorized for shop.
type AdminAPIFactory func(shop *domain.Shop) AdminAPI

// NewAdminAPIFactory builds per-shop clients from the shop's stored token.
func NewAdminAPIFactory(cfg config.ShopifyConfig, logger *zap.Logger) AdminAPIFactory {
	return func(shop *domain.Shop) AdminAPI {
		return shopify.NewClient(cfg, shop.Domain, shop.AccessToken, logger)
	}
}
