package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PulseWatch/internal/backend/dependencies"
	"PulseWatch/internal/backend/server"
	"PulseWatch/internal/shared/constants"
	"PulseWatch/pkg/validator"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the check scheduler and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := slog.Default()

		log.Info("Starting PulseWatch",
			slog.String("name", cfg.App.Name),
			slog.String("version", cfg.App.Version),
			slog.Int("port", cfg.Server.Port),
		)

		startCtx, cancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
		defer cancel()

		// Создаем контейнер зависимостей
		container, err := dependencies.NewContainer(startCtx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create dependency container: %w", err)
		}
		defer container.Close()

		if err := container.SeedMonitors(startCtx); err != nil {
			return err
		}

		srv := server.New(&server.Config{
			Port:    cfg.Server.Port,
			Mode:    cfg.Server.Mode,
			Version: cfg.App.Version,
		}, container)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return srv.Start()
		})

		g.Go(func() error {
			return container.Scheduler.Run(ctx)
		})

		g.Go(func() error {
			purgeVerdicts(ctx, container.Validator, cfg.Validator.CacheTTL, log)
			return nil
		})

		// Graceful shutdown
		g.Go(func() error {
			<-ctx.Done()
			log.Info("Shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			return err
		}

		log.Info("PulseWatch stopped gracefully")
		return nil
	},
}

// purgeVerdicts периодически чистит просроченные записи кэша проверки целей
func purgeVerdicts(ctx context.Context, v *validator.Validator, ttl time.Duration, log *slog.Logger) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := v.PurgeExpired(); n > 0 {
				log.Debug("expired target verdicts purged", "count", n)
			}
		}
	}
}
