package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PulseWatch/internal/backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type maintenanceStore struct {
	pool *pgxpool.Pool
}

func NewMaintenanceStore(pool *pgxpool.Pool) MaintenanceStore {
	return &maintenanceStore{pool: pool}
}

func (s *maintenanceStore) CreateWindow(ctx context.Context, w *models.MaintenanceWindow) error {
	query := `INSERT INTO maintenance_windows (id, monitor_id, title, message, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query, w.ID, w.MonitorID, w.Title, w.Message, w.StartsAt, w.EndsAt, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create maintenance window: %w", err)
	}
	return nil
}

func (s *maintenanceStore) GetWindow(ctx context.Context, id string) (*models.MaintenanceWindow, error) {
	query := `SELECT id, monitor_id, title, message, starts_at, ends_at, cancelled_at, created_at
		FROM maintenance_windows WHERE id = $1`

	var w models.MaintenanceWindow
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.MonitorID, &w.Title, &w.Message, &w.StartsAt, &w.EndsAt, &w.CancelledAt, &w.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("maintenance window %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get maintenance window: %w", err)
	}
	return &w, nil
}

func (s *maintenanceStore) ListWindows(ctx context.Context, monitorID string) ([]*models.MaintenanceWindow, error) {
	query := `SELECT id, monitor_id, title, message, starts_at, ends_at, cancelled_at, created_at
		FROM maintenance_windows WHERE monitor_id = $1 ORDER BY starts_at`

	rows, err := s.pool.Query(ctx, query, monitorID)
	if err != nil {
		return nil, fmt.Errorf("list maintenance windows: %w", err)
	}
	defer rows.Close()

	var windows []*models.MaintenanceWindow
	for rows.Next() {
		var w models.MaintenanceWindow
		if err := rows.Scan(&w.ID, &w.MonitorID, &w.Title, &w.Message, &w.StartsAt, &w.EndsAt, &w.CancelledAt, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("list maintenance windows: failed to scan row: %w", err)
		}
		windows = append(windows, &w)
	}
	return windows, rows.Err()
}

func (s *maintenanceStore) CancelWindow(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE maintenance_windows SET cancelled_at = $2 WHERE id = $1 AND cancelled_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("cancel maintenance window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetWindow(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyFinal
	}
	return nil
}
