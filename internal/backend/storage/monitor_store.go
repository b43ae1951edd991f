package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"PulseWatch/internal/backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation код ошибки Postgres для нарушения уникальности
const pgUniqueViolation = "23505"

type monitorStore struct {
	pool *pgxpool.Pool
}

func NewMonitorStore(pool *pgxpool.Pool) MonitorStore {
	return &monitorStore{pool: pool}
}

const monitorColumns = `id, owner, name, url, interval_ms, is_paused, assertions,
	last_status, last_checked_at, last_response_ms, last_error_code, created_at, updated_at`

func (s *monitorStore) CreateMonitor(ctx context.Context, m *models.Monitor) error {
	assertions, err := json.Marshal(m.Assertions)
	if err != nil {
		return fmt.Errorf("failed to marshal assertions: %w", err)
	}
	if m.LastStatus == "" {
		m.LastStatus = models.StatusUnknown
	}

	query := `INSERT INTO monitors (id, owner, name, url, interval_ms, is_paused, assertions, last_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.pool.Exec(ctx, query,
		m.ID,
		m.Owner,
		m.Name,
		m.URL,
		m.IntervalMs,
		m.Paused,
		assertions,
		m.LastStatus,
		m.CreatedAt,
		m.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("monitor %s: %w", m.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	return nil
}

// Возвращает монитор по ID
func (s *monitorStore) GetMonitor(ctx context.Context, id string) (*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE id = $1`

	m, err := scanMonitor(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("monitor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get monitor %s: %w", id, err)
	}
	return m, nil
}

func (s *monitorStore) ListMonitors(ctx context.Context) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors ORDER BY created_at, id`
	return s.query(ctx, query)
}

func (s *monitorStore) ListMonitorsByOwner(ctx context.Context, owner string) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE owner = $1 ORDER BY created_at, id`
	return s.query(ctx, query, owner)
}

func (s *monitorStore) query(ctx context.Context, query string, args ...any) ([]*models.Monitor, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list monitors: failed to query: %w", err)
	}
	defer rows.Close()

	var monitors []*models.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("list monitors: failed to scan row: %w", err)
		}
		monitors = append(monitors, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list monitors: row iteration error: %w", err)
	}
	return monitors, nil
}

func (s *monitorStore) UpdateMonitor(ctx context.Context, m *models.Monitor) error {
	assertions, err := json.Marshal(m.Assertions)
	if err != nil {
		return fmt.Errorf("failed to marshal assertions: %w", err)
	}

	query := `UPDATE monitors
		SET name = $2, url = $3, interval_ms = $4, is_paused = $5, assertions = $6, updated_at = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, m.ID, m.Name, m.URL, m.IntervalMs, m.Paused, assertions, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update monitor %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("monitor %s: %w", m.ID, ErrNotFound)
	}
	return nil
}

func (s *monitorStore) DeleteMonitor(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete monitor %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("monitor %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanMonitor(row pgx.Row) (*models.Monitor, error) {
	var m models.Monitor
	var assertions []byte
	var lastStatus, lastErrorCode string

	err := row.Scan(
		&m.ID,
		&m.Owner,
		&m.Name,
		&m.URL,
		&m.IntervalMs,
		&m.Paused,
		&assertions,
		&lastStatus,
		&m.LastCheckedAt,
		&m.LastResponseMs,
		&lastErrorCode,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(assertions) > 0 {
		if err := json.Unmarshal(assertions, &m.Assertions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assertions: %w", err)
		}
	}
	m.LastStatus = models.Status(lastStatus)
	m.LastErrorCode = models.ErrorCode(lastErrorCode)
	return &m, nil
}
