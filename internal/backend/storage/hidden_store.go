package storage

import (
	"context"
	"fmt"

	"PulseWatch/internal/backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type hiddenIncidentStore struct {
	pool *pgxpool.Pool
}

func NewHiddenIncidentStore(pool *pgxpool.Pool) HiddenIncidentStore {
	return &hiddenIncidentStore{pool: pool}
}

func (s *hiddenIncidentStore) CreateHidden(ctx context.Context, h *models.HiddenIncident) error {
	query := `INSERT INTO hidden_incidents (id, monitor_id, started_at, ended_at, reason, hidden_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query, h.ID, h.MonitorID, h.StartedAt, h.EndedAt, h.Reason, h.HiddenBy, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to hide incident: %w", err)
	}
	return nil
}

func (s *hiddenIncidentStore) ListHidden(ctx context.Context, monitorID string) ([]*models.HiddenIncident, error) {
	query := `SELECT id, monitor_id, started_at, ended_at, reason, hidden_by, created_at
		FROM hidden_incidents WHERE monitor_id = $1 ORDER BY started_at`

	rows, err := s.pool.Query(ctx, query, monitorID)
	if err != nil {
		return nil, fmt.Errorf("list hidden incidents: %w", err)
	}
	defer rows.Close()

	var hidden []*models.HiddenIncident
	for rows.Next() {
		var h models.HiddenIncident
		if err := rows.Scan(&h.ID, &h.MonitorID, &h.StartedAt, &h.EndedAt, &h.Reason, &h.HiddenBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("list hidden incidents: failed to scan row: %w", err)
		}
		hidden = append(hidden, &h)
	}
	return hidden, rows.Err()
}
