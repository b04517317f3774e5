package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/api"
	"github.com/jafarshop/bundleapp/internal/cache"
	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/logging"
	"github.com/jafarshop/bundleapp/internal/repository/postgres"
	"github.com/jafarshop/bundleapp/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting bundle app server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("shopify_api_version", cfg.Shopify.APIVersion),
	)

	// Initialize database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.MigrationsAuto {
		if err := postgres.RunMigrations(db, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	repos := postgres.NewRepositories(db, logger)

	// Product cache is optional; leave the interface nil when disabled
	var productCache service.ProductCache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisProductCache(context.Background(), cfg.Redis.URL, logger)
		if err != nil {
			logger.Warn("Product cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			productCache = rc
		}
	}

	router := api.NewRouter(cfg, repos, api.NewServices(cfg, repos, productCache, logger), logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // bulk delete makes up to 100 Admin API calls
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully", zap.String("address", srv.Addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
