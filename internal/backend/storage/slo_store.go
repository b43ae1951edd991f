package storage

import (
	"context"
	"errors"
	"fmt"

	"PulseWatch/internal/backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sloStore struct {
	pool *pgxpool.Pool
}

func NewSLOStore(pool *pgxpool.Pool) SLOStore {
	return &sloStore{pool: pool}
}

func (s *sloStore) GetSLOConfig(ctx context.Context, monitorID string) (*models.SLOConfig, error) {
	query := `SELECT monitor_id, enabled, target_percent, window_days, updated_at
		FROM slo_configs WHERE monitor_id = $1`

	var cfg models.SLOConfig
	err := s.pool.QueryRow(ctx, query, monitorID).Scan(
		&cfg.MonitorID, &cfg.Enabled, &cfg.TargetPercent, &cfg.WindowDays, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("slo config %s: %w", monitorID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get slo config: %w", err)
	}
	return &cfg, nil
}

func (s *sloStore) UpsertSLOConfig(ctx context.Context, cfg *models.SLOConfig) error {
	query := `
		INSERT INTO slo_configs (monitor_id, enabled, target_percent, window_days, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (monitor_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
			target_percent = EXCLUDED.target_percent,
			window_days = EXCLUDED.window_days,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query, cfg.MonitorID, cfg.Enabled, cfg.TargetPercent, cfg.WindowDays, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert slo config: %w", err)
	}
	return nil
}
