package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PulseWatch/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("Failed to open connection to postgres", "error", err)
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error("Failed to ping database", "error", err)
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	log.Info("Successfully connected to postgres database")
	return pool, nil
}

// Migrate создает схему. Идемпотентна, можно запускать повторно.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS monitors (
			id               TEXT PRIMARY KEY,
			owner            TEXT NOT NULL,
			name             TEXT NOT NULL DEFAULT '',
			url              TEXT NOT NULL,
			interval_ms      BIGINT NOT NULL,
			is_paused        BOOLEAN NOT NULL DEFAULT false,
			assertions       JSONB NOT NULL DEFAULT '{}',
			last_status      TEXT NOT NULL DEFAULT 'unknown',
			last_checked_at  TIMESTAMPTZ,
			last_response_ms BIGINT,
			last_error_code  TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_monitors_owner ON monitors(owner);

		CREATE TABLE IF NOT EXISTS checks (
			id            BIGSERIAL PRIMARY KEY,
			monitor_id    TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
			checked_at    TIMESTAMPTZ NOT NULL,
			ok            BOOLEAN NOT NULL,
			response_ms   BIGINT NOT NULL DEFAULT 0,
			status_code   INTEGER,
			error_code    TEXT NOT NULL DEFAULT '',
			error_message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_checks_monitor_time ON checks(monitor_id, checked_at);

		CREATE TABLE IF NOT EXISTS maintenance_windows (
			id           TEXT PRIMARY KEY,
			monitor_id   TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
			title        TEXT NOT NULL,
			message      TEXT NOT NULL DEFAULT '',
			starts_at    TIMESTAMPTZ NOT NULL,
			ends_at      TIMESTAMPTZ NOT NULL,
			cancelled_at TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (ends_at > starts_at)
		);
		CREATE INDEX IF NOT EXISTS idx_maintenance_monitor ON maintenance_windows(monitor_id, starts_at);

		CREATE TABLE IF NOT EXISTS slo_configs (
			monitor_id     TEXT PRIMARY KEY REFERENCES monitors(id) ON DELETE CASCADE,
			enabled        BOOLEAN NOT NULL DEFAULT false,
			target_percent DOUBLE PRECISION NOT NULL,
			window_days    INTEGER NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS hidden_incidents (
			id         TEXT PRIMARY KEY,
			monitor_id TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at   TIMESTAMPTZ,
			reason     TEXT NOT NULL,
			hidden_by  TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_hidden_incidents_monitor ON hidden_incidents(monitor_id);
	`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
