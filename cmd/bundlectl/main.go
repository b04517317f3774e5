// Command bundlectl is the operator CLI for the bundle app: it registers
// shops and inspects or republishes their merge configurations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/api"
	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/internal/logging"
	"github.com/jafarshop/bundleapp/internal/repository"
	"github.com/jafarshop/bundleapp/internal/repository/postgres"
)

// env is what every subcommand works against.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	repos    *repository.Repositories
	services *api.Services
	close    func()
}

type envLoader func() (*env, error)

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		return nil, err
	}
	repos := postgres.NewRepositories(db, logger)
	return &env{
		cfg:      cfg,
		logger:   logger,
		repos:    repos,
		services: api.NewServices(cfg, repos, nil, logger),
		close: func() {
			_ = db.Close()
			_ = logger.Sync()
		},
	}, nil
}

func newRootCmd(load envLoader) *cobra.Command {
	var e *env
	root := &cobra.Command{
		Use:           "bundlectl",
		Short:         "Operate the bundle app: shops and merge configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := load()
			if err != nil {
				return err
			}
			e = loaded
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e != nil && e.close != nil {
				e.close()
			}
		},
	}
	current := func() *env { return e }
	root.AddCommand(newShopsCmd(current), newMergeCmd(current))
	return root
}

func main() {
	if err := newRootCmd(loadEnv).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
