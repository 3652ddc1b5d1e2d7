package main

import (
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command. Without a subcommand it applies pending migrations.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all tables)",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE:  runMigrateVersion,
	})
	return cmd
}

func withMigrator(fn func(cmd *cobra.Command, m schemaMigrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		m, err := newMigrator(cfg.Postgres.DSN, logger)
		if err != nil {
			return err
		}
		defer m.Close() //nolint:errcheck
		return fn(cmd, m)
	}
}

var runMigrateUp = withMigrator(func(cmd *cobra.Command, m schemaMigrator) error {
	if err := m.Up(); err != nil {
		return err
	}
	return printVersion(cmd, m)
})

var runMigrateDown = withMigrator(func(cmd *cobra.Command, m schemaMigrator) error {
	if err := m.Down(); err != nil {
		return err
	}
	cmd.Println("migrations rolled back")
	return nil
})

var runMigrateVersion = withMigrator(printVersion)

func printVersion(cmd *cobra.Command, m schemaMigrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("schema version %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("schema version %d\n", version)
	return nil
}
