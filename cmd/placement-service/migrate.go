package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rackslot/rackslot-backend/migrations"
	"github.com/rackslot/rackslot-backend/pkg/config"
	"github.com/rackslot/rackslot-backend/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Applies the embedded migrations. serve runs "migrate up" on startup unless --skip-migrations is set.`,
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(mg *database.Migrator) error {
				return mg.Up()
			})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps < 1 {
				return errors.New("--steps must be at least 1")
			}
			return withMigrator(func(mg *database.Migrator) error {
				return mg.Down(steps)
			})
		},
	}
	down.Flags().Int("steps", 1, "Number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(mg *database.Migrator) error {
				v, dirty, err := mg.Version()
				if err != nil {
					return fmt.Errorf("failed to read schema version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func withMigrator(fn func(*database.Migrator) error) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	if rt.cfg.Database.Driver == config.DriverMemory {
		return errors.New("migrations require the postgres database driver")
	}

	mg, err := database.NewMigrator(&rt.cfg.Database, migrations.FS, rt.log)
	if err != nil {
		return err
	}
	defer mg.Close()

	return fn(mg)
}
