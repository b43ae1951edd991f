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

type checkStore struct {
	pool *pgxpool.Pool
}

func NewCheckStore(pool *pgxpool.Pool) CheckStore {
	return &checkStore{pool: pool}
}

// AppendCheck вставка проверки и обновление монитора в одной транзакции.
// SELECT ... FOR UPDATE сериализует только записи одного монитора.
func (s *checkStore) AppendCheck(ctx context.Context, check *models.Check) (models.Status, error) {
	var previous models.Status

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT last_status FROM monitors WHERE id = $1 FOR UPDATE`, check.MonitorID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("monitor %s: %w", check.MonitorID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock monitor: %w", err)
		}
		previous = models.Status(status)

		var message *string
		if check.ErrorMessage != "" {
			message = &check.ErrorMessage
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO checks (monitor_id, checked_at, ok, response_ms, status_code, error_code, error_message)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			check.MonitorID,
			check.CheckedAt,
			check.OK,
			check.ResponseMs,
			check.StatusCode,
			string(check.ErrorCode),
			message,
		)
		if err != nil {
			return fmt.Errorf("insert check: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE monitors
			SET last_status = $2, last_checked_at = $3, last_response_ms = $4, last_error_code = $5
			WHERE id = $1 AND (last_checked_at IS NULL OR last_checked_at <= $3)`,
			check.MonitorID,
			string(check.Status()),
			check.CheckedAt,
			check.ResponseMs,
			string(check.ErrorCode),
		)
		if err != nil {
			return fmt.Errorf("update monitor status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Запоздавшая проверка не меняет кэш, значит и перехода нет
			previous = check.Status()
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if previous == "" {
		previous = models.StatusUnknown
	}
	return previous, nil
}

func (s *checkStore) ListChecks(ctx context.Context, monitorID string, from, to time.Time) ([]*models.Check, error) {
	query := `
		SELECT monitor_id, checked_at, ok, response_ms, status_code, error_code, error_message
		FROM checks
		WHERE monitor_id = $1 AND checked_at >= $2 AND checked_at < $3
		ORDER BY checked_at, id
	`
	rows, err := s.pool.Query(ctx, query, monitorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list checks: failed to query checks (monitor=%s): %w", monitorID, err)
	}
	defer rows.Close()

	var checks []*models.Check
	for rows.Next() {
		var c models.Check
		var errorCode string
		var message *string
		if err := rows.Scan(&c.MonitorID, &c.CheckedAt, &c.OK, &c.ResponseMs, &c.StatusCode, &errorCode, &message); err != nil {
			return nil, fmt.Errorf("list checks: failed to scan row: %w", err)
		}
		c.ErrorCode = models.ErrorCode(errorCode)
		if message != nil {
			c.ErrorMessage = *message
		}
		checks = append(checks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list checks: row iteration error: %w", err)
	}
	return checks, nil
}

// DailyCounts счетчики по дням UTC
func (s *checkStore) DailyCounts(ctx context.Context, monitorID string, from, to time.Time) ([]models.CheckCounts, error) {
	query := `
		SELECT date_trunc('day', checked_at AT TIME ZONE 'UTC') AS day,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE NOT ok) AS failed
		FROM checks
		WHERE monitor_id = $1 AND checked_at >= $2 AND checked_at < $3
		GROUP BY day
		ORDER BY day
	`
	rows, err := s.pool.Query(ctx, query, monitorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	var out []models.CheckCounts
	for rows.Next() {
		var c models.CheckCounts
		if err := rows.Scan(&c.Day, &c.Total, &c.Failed); err != nil {
			return nil, fmt.Errorf("daily counts: failed to scan row: %w", err)
		}
		c.Day = time.Date(c.Day.Year(), c.Day.Month(), c.Day.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, c)
	}
	return out, rows.Err()
}
