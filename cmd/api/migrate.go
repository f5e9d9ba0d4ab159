package main

import (
	"database/sql"
	"fmt"

	"Todo/internal/app"
	"Todo/internal/config"
	"Todo/internal/logging"
	"Todo/internal/migrations"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema of the SQL stores",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE:  migrateRunner(migrations.Up),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	Args:  cobra.NoArgs,
	RunE:  migrateRunner(migrations.Down),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  migrateRunner(migrations.Status),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func migrateRunner(fn func(db *sql.DB, driver string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		// goose progress goes to stderr, the resulting version to stdout
		migrations.SetLogger(logging.Printer{Logger: logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())})

		db, err := app.OpenMigrationDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := fn(db, cfg.Store.Driver); err != nil {
			return err
		}
		v, err := migrations.Version(db, cfg.Store.Driver)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", cfg.Store.Driver, v)
		return nil
	}
}
