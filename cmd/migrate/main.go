package main

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/logging"
	"github.com/jafarshop/bundleapp/internal/repository/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := ensureDatabase(cfg.Database, logger); err != nil {
		logger.Fatal("Failed to prepare database", zap.Error(err))
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, logger); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Migration completed successfully")
}

// ensureDatabase creates the target database through the postgres
// maintenance database when it does not exist yet.
func ensureDatabase(dbCfg config.DatabaseConfig, logger *zap.Logger) error {
	admin := dbCfg
	admin.DBName = "postgres"
	db, err := sqlx.Open("postgres", admin.DSN())
	if err != nil {
		return fmt.Errorf("connect to postgres database: %w", err)
	}
	defer db.Close()

	var exists bool
	if err := db.Get(&exists, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbCfg.DBName); err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}

	logger.Info("Creating database", zap.String("name", dbCfg.DBName))
	if _, err := db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbCfg.DBName)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}
