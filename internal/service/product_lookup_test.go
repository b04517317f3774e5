package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

func TestProductLookup_ReadsThroughCache(t *testing.T) {
	api := newFakeAdminAPI("")
	img := "https://cdn.shopify.com/v.png"
	api.variants["gid://shopify/ProductVariant/1"] = &domain.ProductVariantSummary{
		ID:           "gid://shopify/ProductVariant/1",
		Title:        "Large",
		ImageURL:     &img,
		ProductID:    "gid://shopify/Product/1",
		ProductTitle: "Coffee",
	}
	cache := newMemProductCache()
	svc := NewProductLookupService(factoryFor(api), cache, time.Minute, zap.NewNop())
	shop := testShop("a.myshopify.com")

	first, err := svc.GetVariant(context.Background(), shop, "gid://shopify/ProductVariant/1")
	require.NoError(t, err)
	second, err := svc.GetVariant(context.Background(), shop, "gid://shopify/ProductVariant/1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Coffee", second.ProductTitle)
	assert.Equal(t, int32(1), api.variantHits.Load())
}

func TestProductLookup_WithoutCache(t *testing.T) {
	api := newFakeAdminAPI("")
	svc := NewProductLookupService(factoryFor(api), nil, time.Minute, zap.NewNop())

	_, err := svc.GetVariant(context.Background(), testShop("a.myshopify.com"), "gid://shopify/ProductVariant/404")
	var nf *errors.ErrNotFound
	assert.True(t, stderrors.As(err, &nf))

	_, err = svc.GetVariant(context.Background(), testShop("a.myshopify.com"), " ")
	var verr *errors.ErrValidation
	assert.True(t, stderrors.As(err, &verr))
}
