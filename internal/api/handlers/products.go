package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/service"
)

// HandleGetProductVariant handles GET /api/products/variant?id=gid://shopify/ProductVariant/1.
// Variant GIDs contain slashes, so the id travels in the query string.
func HandleGetProductVariant(cfg *config.Config, svc *service.ProductLookupService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, ok := requireShop(c)
		if !ok {
			return
		}
		variant, err := svc.GetVariant(c.Request.Context(), shop, c.Query("id"))
		if err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		c.JSON(http.StatusOK, variant)
	}
}
