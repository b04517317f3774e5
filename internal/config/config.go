package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	Database    DatabaseConfig
	Shopify     ShopifyConfig
	Redis       RedisConfig
	BulkDelete  BulkDeleteConfig

	// MigrationsAuto applies embedded migrations when the server starts.
	MigrationsAuto bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ShopifyConfig holds app-level Shopify settings. Per-shop access tokens live
// in the shops table.
type ShopifyConfig struct {
	APIVersion string
	APISecret  string // SHOPIFY_API_SECRET: verifies X-Shopify-Hmac-Sha256 on webhooks

	// AdminURLTemplate overrides https://%s/admin/api/%s/graphql.json (shop, version); tests only.
	AdminURLTemplate string
}

// RedisConfig configures the optional product lookup cache. Empty URL disables it.
type RedisConfig struct {
	URL        string
	ProductTTL time.Duration
}

type BulkDeleteConfig struct {
	Concurrency        int
	RateLimitPerSecond float64
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SHOPIFY_API_VERSION", "2025-10")
	viper.SetDefault("PRODUCT_CACHE_TTL", "10m")
	viper.SetDefault("BULK_DELETE_CONCURRENCY", "4")
	viper.SetDefault("SHOPIFY_RATE_LIMIT_PER_SECOND", "2")
	viper.SetDefault("MIGRATIONS_AUTO", "true")

	viper.AutomaticEnv()

	ttl, err := time.ParseDuration(getEnvOrViper("PRODUCT_CACHE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRODUCT_CACHE_TTL: %w", err)
	}
	concurrency, err := strconv.Atoi(getEnvOrViper("BULK_DELETE_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		return nil, fmt.Errorf("BULK_DELETE_CONCURRENCY must be a positive integer")
	}
	rps, err := strconv.ParseFloat(getEnvOrViper("SHOPIFY_RATE_LIMIT_PER_SECOND", "2"), 64)
	// 0 disables throttling
	if err != nil || rps < 0 {
		return nil, fmt.Errorf("SHOPIFY_RATE_LIMIT_PER_SECOND must be a non-negative number")
	}
	autoMigrate, err := strconv.ParseBool(getEnvOrViper("MIGRATIONS_AUTO", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIGRATIONS_AUTO: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "bundleapp"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Shopify: ShopifyConfig{
			APIVersion:       getEnvOrViper("SHOPIFY_API_VERSION", "2025-10"),
			APISecret:        strings.TrimSpace(getEnvOrViper("SHOPIFY_API_SECRET", "")),
			AdminURLTemplate: strings.TrimSpace(getEnvOrViper("SHOPIFY_ADMIN_URL_TEMPLATE", "")),
		},
		Redis: RedisConfig{
			URL:        strings.TrimSpace(getEnvOrViper("REDIS_URL", "")),
			ProductTTL: ttl,
		},
		BulkDelete: BulkDeleteConfig{
			Concurrency:        concurrency,
			RateLimitPerSecond: rps,
		},
		MigrationsAuto: autoMigrate,
	}

	return cfg, nil
}

// Validate checks settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	if c.Shopify.APISecret == "" {
		return fmt.Errorf("SHOPIFY_API_SECRET is required")
	}
	return nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
