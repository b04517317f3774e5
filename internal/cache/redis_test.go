package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/domain"
)

func newTestCache(t *testing.T) (*RedisProductCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisProductCache(context.Background(), "redis://"+mr.Addr(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func variant(id string) *domain.ProductVariantSummary {
	img := "https://cdn.shopify.com/" + id + ".png"
	return &domain.ProductVariantSummary{
		ID:           id,
		Title:        "Large",
		ImageURL:     &img,
		ProductID:    "gid://shopify/Product/1",
		ProductTitle: "Cold brew",
	}
}

func TestRedisProductCache_SetThenGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	v := variant("gid://shopify/ProductVariant/10")

	_, ok, err := c.GetVariant(ctx, "a.myshopify.com", v.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetVariant(ctx, "a.myshopify.com", v, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(variantKey("a.myshopify.com", v.ID)))

	got, ok, err := c.GetVariant(ctx, "a.myshopify.com", v.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v, got)

	_, ok, err = c.GetVariant(ctx, "b.myshopify.com", v.ID)
	require.NoError(t, err)
	assert.False(t, ok, "entries are scoped per shop")

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.GetVariant(ctx, "a.myshopify.com", v.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisProductCache_DropsUndecodableEntry(t *testing.T) {
	c, mr := newTestCache(t)
	key := variantKey("a.myshopify.com", "gid://shopify/ProductVariant/10")
	require.NoError(t, mr.Set(key, "{not json"))

	got, ok, err := c.GetVariant(context.Background(), "a.myshopify.com", "gid://shopify/ProductVariant/10")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(key))
}

func TestRedisProductCache_PurgeShopLeavesOtherShops(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	for _, shop := range []string{"a.myshopify.com", "ab.myshopify.com"} {
		for _, id := range []string{"gid://shopify/ProductVariant/1", "gid://shopify/ProductVariant/2"} {
			require.NoError(t, c.SetVariant(ctx, shop, variant(id), time.Hour))
		}
	}

	require.NoError(t, c.PurgeShop(ctx, "a.myshopify.com"))
	assert.False(t, mr.Exists(variantKey("a.myshopify.com", "gid://shopify/ProductVariant/1")))
	assert.False(t, mr.Exists(variantKey("a.myshopify.com", "gid://shopify/ProductVariant/2")))
	assert.True(t, mr.Exists(variantKey("ab.myshopify.com", "gid://shopify/ProductVariant/1")))

	// nothing left to purge
	assert.NoError(t, c.PurgeShop(ctx, "a.myshopify.com"))
}

func TestNewRedisProductCache_Errors(t *testing.T) {
	_, err := NewRedisProductCache(context.Background(), "not a url", zap.NewNop())
	assert.ErrorContains(t, err, "REDIS_URL")

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisProductCache(context.Background(), "redis://"+addr, zap.NewNop())
	assert.ErrorContains(t, err, "failed to connect")
}
