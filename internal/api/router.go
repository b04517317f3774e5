package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/api/handlers"
	"github.com/jafarshop/bundleapp/internal/api/middleware"
	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/metrics"
	"github.com/jafarshop/bundleapp/internal/repository"
	"github.com/jafarshop/bundleapp/internal/service"
	"github.com/jafarshop/bundleapp/internal/storefront"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

// Services bundles everything the HTTP handlers call.
type Services struct {
	MergeConfigurations *service.MergeConfigurationService
	BulkDelete          *service.BulkDeleteService
	Products            *service.ProductLookupService
	Eraser              *service.ShopEraser
}

// NewServices wires the services from repositories and config. cache may be nil.
func NewServices(cfg *config.Config, repos *repository.Repositories, cache service.ProductCache, logger *zap.Logger) *Services {
	apis := service.NewAdminAPIFactory(cfg.Shopify, logger)
	publisher := service.NewMetafieldPublisher(apis, logger)
	return &Services{
		MergeConfigurations: service.NewMergeConfigurationService(repos, apis, publisher, logger),
		BulkDelete:          service.NewBulkDeleteService(apis, cfg.BulkDelete, logger),
		Products:            service.NewProductLookupService(apis, cache, cfg.Redis.ProductTTL, logger),
		Eraser:              service.NewShopEraser(repos, cache, logger),
	}
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, svcs *Services, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := registerValidators(); err != nil {
		logger.Fatal("Failed to register validators", zap.Error(err))
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Middleware
	router.Use(customRecovery(cfg, logger))
	router.Use(otelgin.Middleware("bundleapp"))
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware())

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handlers.ErrorResponse{
			Error:   true,
			Message: fmt.Sprintf("method %s not allowed", c.Request.Method),
			Code:    errors.CodeMethod,
		})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: true, Message: "not found", Code: errors.CodeNotFound})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Theme app embed loads this from the storefront
	router.GET("/storefront/bundle-merge.js", storefront.HandleScript())

	// Shopify mandatory privacy webhooks
	webhooks := router.Group("/webhooks/shopify")
	{
		webhooks.POST("/shop-redact", handlers.HandleShopRedactWebhook(cfg, svcs.Eraser, logger))
		webhooks.POST("/customers-data-request", handlers.HandleCustomerPrivacyWebhook(cfg, logger))
		webhooks.POST("/customers-redact", handlers.HandleCustomerPrivacyWebhook(cfg, logger))
	}

	// Admin API used by the embedded app
	apiRoutes := router.Group("/api")
	apiRoutes.Use(middleware.AuthMiddleware(repos, logger))
	apiRoutes.Use(middleware.IdempotencyMiddleware(repos, logger))
	{
		merge := apiRoutes.Group("/merge-configurations")
		merge.GET("", handlers.HandleListMergeConfigurations(cfg, svcs.MergeConfigurations, logger))
		merge.POST("", handlers.HandleCreateMergeConfiguration(cfg, svcs.MergeConfigurations, logger))
		merge.GET("/document", handlers.HandleGetMergeDocument(cfg, svcs.MergeConfigurations, logger))
		merge.POST("/publish", handlers.HandlePublishMergeConfigurations(cfg, svcs.MergeConfigurations, logger))
		merge.PUT("/:slotId", handlers.HandleUpdateMergeConfiguration(cfg, svcs.MergeConfigurations, logger))
		merge.DELETE("/:slotId", handlers.HandleDeleteMergeConfiguration(cfg, svcs.MergeConfigurations, logger))

		apiRoutes.POST("/bundles/bulk-delete", handlers.HandleBulkDeleteBundles(cfg, svcs.BulkDelete, logger))
		apiRoutes.GET("/products/variant", handlers.HandleGetProductVariant(cfg, svcs.Products, logger))
	}

	return router
}

// registerValidators adds the shopify_gid binding rule. Safe to call more
// than once.
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("shopify_gid", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		return strings.HasPrefix(s, "gid://shopify/") && len(s) > len("gid://shopify/")
	})
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		resp := handlers.ErrorResponse{Error: true, Message: "internal server error", Code: errors.CodeInternal}
		if !cfg.IsProduction() {
			resp.Details = fmt.Sprintf("%v", recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("shop", c.GetHeader(middleware.ShopDomainHeader)),
		)
	}
}

// metricsMiddleware records request duration by route template.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
