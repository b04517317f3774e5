package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/service"
)

// HandleBulkDeleteBundles handles POST /api/bundles/bulk-delete.
// A batch that passes validation always answers 200; per-item failures are
// reported in the results, never as the response status.
func HandleBulkDeleteBundles(cfg *config.Config, svc *service.BulkDeleteService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				respondError(c, cfg, logger, fmt.Errorf("bulk delete panicked: %v", r))
			}
		}()

		shop, ok := requireShop(c)
		if !ok {
			return
		}
		var req service.BulkDeleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		outcome, err := svc.Delete(c.Request.Context(), shop, req.BundleIDs)
		if err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"results": outcome.Results,
			"summary": outcome.Summary,
		})
	}
}
