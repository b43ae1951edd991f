package services

import (
	"context"
	"fmt"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/backend/storage"
	"PulseWatch/internal/maintenance"
)

// monitorHistory проверки монитора за период вместе с фильтром обслуживания
type monitorHistory struct {
	checks     []*models.Check
	suppressor *maintenance.Suppressor
	hidden     []*models.HiddenIncident
}

func loadHistory(ctx context.Context, store storage.Store, monitorID string, from, to time.Time) (*monitorHistory, error) {
	checks, err := store.ListChecks(ctx, monitorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}

	windows, err := store.ListWindows(ctx, monitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance windows: %w", err)
	}

	hidden, err := store.ListHidden(ctx, monitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hidden incidents: %w", err)
	}

	return &monitorHistory{
		checks:     checks,
		suppressor: maintenance.NewSuppressor(windows),
		hidden:     hidden,
	}, nil
}
