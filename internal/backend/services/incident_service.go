package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/backend/storage"
	"PulseWatch/internal/incidents"
	"PulseWatch/pkg/uuidutil"
)

type IncidentServiceConfig struct {
	DefaultLookbackDays int
	MaxLookbackDays     int
	DefaultLimit        int
	MaxLimit            int
}

type IncidentService struct {
	store      storage.Store
	aggregator *incidents.Aggregator
	cfg        IncidentServiceConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewIncidentService(store storage.Store, aggregator *incidents.Aggregator, cfg IncidentServiceConfig, logger *slog.Logger) *IncidentService {
	if cfg.DefaultLookbackDays == 0 {
		cfg.DefaultLookbackDays = 30
	}
	if cfg.MaxLookbackDays == 0 {
		cfg.MaxLookbackDays = 365
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit == 0 {
		cfg.MaxLimit = 500
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IncidentService{
		store:      store,
		aggregator: aggregator,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// ListIncidentsRequest пустой MonitorID - все мониторы владельца
type ListIncidentsRequest struct {
	MonitorID     string
	Sort          string
	Order         string
	LookbackDays  int
	Limit         int
	IncludeHidden bool
}

func (s *IncidentService) ListIncidents(ctx context.Context, owner string, req ListIncidentsRequest) (*incidents.Listing, error) {
	query, lookback, err := s.parseRequest(req)
	if err != nil {
		return nil, err
	}

	var monitors []*models.Monitor
	if req.MonitorID != "" {
		m, err := ownedMonitor(ctx, s.store, owner, req.MonitorID)
		if err != nil {
			return nil, err
		}
		monitors = []*models.Monitor{m}
	} else {
		monitors, err = s.store.ListMonitorsByOwner(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to list monitors: %w", err)
		}
	}

	listing, err := s.list(ctx, monitors, lookback, query, s.now())
	if err != nil {
		s.logger.Error("failed to list incidents", "error", err, "owner", owner)
		return nil, err
	}

	s.logger.Debug("incidents listed",
		"owner", owner,
		"monitors", len(monitors),
		"total", listing.Total,
		"hidden", listing.Hidden,
	)
	return listing, nil
}

func (s *IncidentService) list(ctx context.Context, monitors []*models.Monitor, lookback time.Duration, query incidents.Query, now time.Time) (*incidents.Listing, error) {
	var (
		all    []*models.Incident
		hidden []*models.HiddenIncident
	)

	for _, m := range monitors {
		history, err := loadHistory(ctx, s.store, m.ID, now.Add(-lookback), now)
		if err != nil {
			return nil, err
		}
		all = append(all, s.aggregator.Build(m.ID, history.checks, history.suppressor, now)...)
		hidden = append(hidden, history.hidden...)
	}

	listing := s.aggregator.List(all, hidden, query)
	return &listing, nil
}

func (s *IncidentService) parseRequest(req ListIncidentsRequest) (incidents.Query, time.Duration, error) {
	sort, err := incidents.ParseSortField(req.Sort)
	if err != nil {
		return incidents.Query{}, 0, invalid("invalid_sort", "%s", err)
	}
	order, err := incidents.ParseOrder(req.Order)
	if err != nil {
		return incidents.Query{}, 0, invalid("invalid_order", "%s", err)
	}

	days := req.LookbackDays
	if days == 0 {
		days = s.cfg.DefaultLookbackDays
	}
	if days < 1 || days > s.cfg.MaxLookbackDays {
		return incidents.Query{}, 0, invalid("invalid_lookback", "lookback_days must be between 1 and %d", s.cfg.MaxLookbackDays)
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit < 1 || limit > s.cfg.MaxLimit {
		return incidents.Query{}, 0, invalid("invalid_limit", "limit must be between 1 and %d", s.cfg.MaxLimit)
	}

	query := incidents.Query{
		Sort:          sort,
		Order:         order,
		Limit:         limit,
		IncludeHidden: req.IncludeHidden,
	}
	return query, time.Duration(days) * 24 * time.Hour, nil
}

type HideIncidentRequest struct {
	MonitorID string     `json:"monitor_id" binding:"required"`
	StartedAt time.Time  `json:"started_at" binding:"required"`
	EndedAt   *time.Time `json:"ended_at"`
	Reason    string     `json:"reason"`
}

// HideIncident скрывает диапазон инцидентов из списка. Данные не удаляются,
// расчет доступности не меняется
func (s *IncidentService) HideIncident(ctx context.Context, owner string, req HideIncidentRequest) (*models.HiddenIncident, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invalid("reason_required", "reason is required to hide an incident")
	}
	if req.EndedAt != nil && req.EndedAt.Before(req.StartedAt) {
		return nil, invalid("invalid_range", "ended_at must not be before started_at")
	}

	if _, err := ownedMonitor(ctx, s.store, owner, req.MonitorID); err != nil {
		return nil, err
	}

	h := &models.HiddenIncident{
		ID:        uuidutil.New(),
		MonitorID: req.MonitorID,
		StartedAt: req.StartedAt.UTC(),
		Reason:    reason,
		HiddenBy:  owner,
		CreatedAt: s.now().UTC(),
	}
	if req.EndedAt != nil {
		end := req.EndedAt.UTC()
		h.EndedAt = &end
	}

	if err := s.store.CreateHidden(ctx, h); err != nil {
		s.logger.Error("failed to hide incident", "error", err, "monitor_id", req.MonitorID)
		return nil, fmt.Errorf("failed to hide incident: %w", err)
	}

	s.logger.Info("incident hidden",
		"monitor_id", req.MonitorID,
		"started_at", h.StartedAt,
		"reason", reason,
		"hidden_by", owner,
	)
	return h, nil
}
