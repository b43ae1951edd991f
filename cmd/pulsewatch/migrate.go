package main

import (
	"context"
	"fmt"
	"log/slog"

	"PulseWatch/internal/backend/storage"
	"PulseWatch/internal/shared/constants"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := slog.Default()

		ctx, cancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
		defer cancel()

		pool, err := storage.NewPostgres(ctx, &cfg.Database, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := storage.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}

		log.Info("Schema applied", "database", cfg.Database.DBName)
		return nil
	},
}
