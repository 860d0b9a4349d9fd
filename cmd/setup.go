package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/anisong/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		return fmt.Errorf("%w: --config path is required", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Point engine.url and lookup.url at the download engine\n")
	r.writePlain("2. Run 'anisong engine health' to check the connection\n")
	return nil
}

// SetupDatabase initializes the SQLite document store and runs migrations.
//
// With --rollback it reverts the most recent migration instead.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Storage.DatabasePath
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("✓ Rolled back latest migration for %s\n", path)
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", path)

	if r.config.Storage.Driver != "sqlite" {
		r.writePlain("Set storage.driver = \"sqlite\" in %s to use the database\n", cmd.String("config"))
	}
	return r.writePlain("✓ Database ready at %s\n", path)
}
