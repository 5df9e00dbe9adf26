package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/hopetreehub/innerspell/internal/adapters/sqlstore"
	"github.com/hopetreehub/innerspell/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: withDB(func(cmd *cobra.Command, db *sqlx.DB) error {
		if err := sqlstore.Migrate(db); err != nil {
			return err
		}
		return printVersion(cmd, db)
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: withDB(func(cmd *cobra.Command, db *sqlx.DB) error {
		if err := sqlstore.MigrateDown(db); err != nil {
			return err
		}
		return printVersion(cmd, db)
	}),
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE:  withDB(printVersion),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func withDB(fn func(cmd *cobra.Command, db *sqlx.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, err := sqlstore.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(cmd, db)
	}
}

func printVersion(cmd *cobra.Command, db *sqlx.DB) error {
	v, dirty, err := sqlstore.Version(db)
	if err != nil {
		return err
	}
	if v == 0 && !dirty {
		fmt.Fprintln(cmd.OutOrStdout(), "schema version: none")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d (dirty: %t)\n", v, dirty)
	return nil
}
