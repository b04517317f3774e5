package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/api/middleware"
	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/domain"
	"github.com/jafarshop/bundleapp/internal/service"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

func requireShop(c *gin.Context) (*domain.Shop, bool) {
	shop, ok := middleware.GetShopFromContext(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, errors.CodeUnauthorized, "unauthorized", nil)
		return nil, false
	}
	return shop, true
}

// HandleListMergeConfigurations handles GET /api/merge-configurations
func HandleListMergeConfigurations(cfg *config.Config, svc *service.MergeConfigurationService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, ok := requireShop(c)
		if !ok {
			return
		}
		rows, err := svc.List(c.Request.Context(), shop)
		if err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		out := make([]service.MergeConfigurationResponse, len(rows))
		for i, row := range rows {
			out[i] = service.ToMergeConfigurationResponse(row)
		}
		c.JSON(http.StatusOK, gin.H{
			"mergeConfigurations": out,
			"slotsUsed":           len(out),
			"slotsTotal":          domain.SlotCount,
		})
	}
}

// HandleGetMergeDocument handles GET /api/merge-configurations/document.
// The body is exactly what the next publish would write.
func HandleGetMergeDocument(cfg *config.Config, svc *service.MergeConfigurationService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, ok := requireShop(c)
		if !ok {
			return
		}
		doc, err := svc.Document(c.Request.Context(), shop)
		if err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// HandleCreateMergeConfiguration handles POST /api/merge-configurations
func HandleCreateMergeConfiguration(cfg *config.Config, svc *service.MergeConfigurationService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, ok := requireShop(c)
		if !ok {
			return
		}
		var req service.MergeGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		row, err := svc.Create(c.Request.Context(), shop, req)
		if err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		c.JSON(http.StatusCreated, service.ToMergeConfigurationResponse(row))
	}
}

// HandleUpdateMergeConfiguration handles PUT /api/merge-configurations/:slotId.
// An empty productIds removes the group and answers 204.
func HandleUpdateMergeConfiguration(cfg *config.Config, svc *service.MergeConfigurationService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, ok := requireShop(c)
		if !ok {
			return
		}
		var req service.MergeGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		row, err := svc.Update(c.Request.Context(), shop, domain.SlotID(c.Param("slotId")), req)
		if err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		if row == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, service.ToMergeConfigurationResponse(row))
	}
}

// HandleDeleteMergeConfiguration handles DELETE /api/merge-configurations/:slotId
func HandleDeleteMergeConfiguration(cfg *config.Config, svc *service.MergeConfigurationService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, ok := requireShop(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), shop, domain.SlotID(c.Param("slotId"))); err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandlePublishMergeConfigurations handles POST /api/merge-configurations/publish
func HandlePublishMergeConfigurations(cfg *config.Config, svc *service.MergeConfigurationService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shop, ok := requireShop(c)
		if !ok {
			return
		}
		doc, err := svc.Republish(c.Request.Context(), shop)
		if err != nil {
			respondError(c, cfg, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"published": true, "boundSlots": doc.BoundCount(), "document": doc})
	}
}
