package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PulseWatch/internal/analytics"
	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/backend/storage"
	"PulseWatch/internal/shared/constants"
)

// MetricsService собирает данные для дашборда и страницы статуса
type MetricsService struct {
	store     storage.Store
	slo       *SLOService
	incidents *IncidentService
	logger    *slog.Logger
	now       func() time.Time
}

func NewMetricsService(store storage.Store, slo *SLOService, incidents *IncidentService, logger *slog.Logger) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}

	return &MetricsService{
		store:     store,
		slo:       slo,
		incidents: incidents,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *MetricsService) GetMetrics(ctx context.Context, owner, monitorID string) (*analytics.Metrics, error) {
	m, err := ownedMonitor(ctx, s.store, owner, monitorID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	recent, err := s.store.ListChecks(ctx, monitorID, now.Add(-constants.ResponseStatsWindow), now)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent checks: %w", err)
	}

	yearStart := now.UTC().Truncate(constants.Day).AddDate(0, 0, -(constants.HeatmapDays - 1))
	counts, err := s.store.DailyCounts(ctx, monitorID, yearStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily counts: %w", err)
	}

	summary, err := s.slo.summary(ctx, monitorID, now)
	if err != nil {
		return nil, err
	}

	query, lookback, err := s.incidents.parseRequest(ListIncidentsRequest{})
	if err != nil {
		return nil, err
	}
	listing, err := s.incidents.list(ctx, []*models.Monitor{m}, lookback, query, now)
	if err != nil {
		return nil, err
	}

	metrics := analytics.Build(analytics.Input{
		Monitor:      m,
		RecentChecks: recent,
		DailyCounts:  counts,
		SLO:          summary,
		Incidents:    *listing,
	}, now)

	s.logger.Debug("metrics built",
		"monitor_id", monitorID,
		"recent_checks", len(recent),
		"days", len(counts),
	)
	return metrics, nil
}
