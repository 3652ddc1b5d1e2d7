package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/persistence"
)

// NewRootCmd creates the root command. Running it without a subcommand serves HTTP.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "account-service",
		Short:         "Account authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedAdminCmd())
	return cmd
}

// runtimeDeps holds what every subcommand needs.
type runtimeDeps struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func (d *runtimeDeps) Close() {
	d.pg.Close()
	_ = d.logger.Sync()
}

// loadConfig reads configuration and builds the logger. Every subcommand needs a DSN.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func bootstrap(ctx context.Context) (*runtimeDeps, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &runtimeDeps{cfg: cfg, logger: logger, pg: pg}, nil
}

// schemaMigrator is satisfied by *persistence.Migrator.
type schemaMigrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(dsn string, logger *zap.Logger) (schemaMigrator, error) {
	return persistence.NewMigrator(dsn, logger)
}

func migrateUp(dsn string, logger *zap.Logger) error {
	m, err := newMigrator(dsn, logger)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck
	return m.Up()
}
