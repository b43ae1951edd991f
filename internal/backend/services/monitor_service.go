package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/backend/storage"
	"PulseWatch/internal/config"
	"PulseWatch/pkg/uuidutil"
	"PulseWatch/pkg/validator"
)

// TargetChecker проверка цели на SSRF перед сохранением монитора
type TargetChecker interface {
	Validate(ctx context.Context, target string) validator.Verdict
}

type MonitorService struct {
	store   storage.Store
	targets TargetChecker
	slo     SLOServiceConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewMonitorService(store storage.Store, targets TargetChecker, slo SLOServiceConfig, logger *slog.Logger) *MonitorService {
	if logger == nil {
		logger = slog.Default()
	}

	return &MonitorService{
		store:   store,
		targets: targets,
		slo:     slo.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

type CreateMonitorRequest struct {
	Name       string                  `json:"name"`
	URL        string                  `json:"url" binding:"required"`
	IntervalMs int64                   `json:"interval_ms"`
	Paused     bool                    `json:"paused"`
	Assertions *models.AssertionConfig `json:"assertions"`
}

// CreateMonitor проверяет цель, интервал и assertions, затем сохраняет монитор
func (s *MonitorService) CreateMonitor(ctx context.Context, owner string, req CreateMonitorRequest) (*models.Monitor, error) {
	s.logger.Info("creating monitor",
		"owner", owner,
		"url", req.URL,
		"interval_ms", req.IntervalMs,
	)

	if req.IntervalMs == 0 {
		req.IntervalMs = time.Minute.Milliseconds()
	}
	if !validator.ValidateInterval(req.IntervalMs) {
		return nil, invalid("invalid_interval", "interval %dms is not allowed, use one of %v", req.IntervalMs, validator.AllowedIntervalsMs())
	}

	var assertions models.AssertionConfig
	if req.Assertions != nil {
		assertions = *req.Assertions
		if err := assertions.Validate(); err != nil {
			return nil, invalid("invalid_assertions", "%s", err)
		}
	}

	if err := s.checkTarget(ctx, req.URL); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = validator.Hostname(req.URL)
	}

	now := s.now().UTC()
	m := &models.Monitor{
		ID:         uuidutil.New(),
		Owner:      owner,
		Name:       name,
		URL:        req.URL,
		IntervalMs: req.IntervalMs,
		Paused:     req.Paused,
		Assertions: assertions,
		LastStatus: models.StatusUnknown,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateMonitor(ctx, m); err != nil {
		s.logger.Error("failed to create monitor in storage",
			"error", err,
			"owner", owner,
			"url", req.URL,
		)
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}

	s.logger.Info("monitor created",
		"monitor_id", m.ID,
		"owner", owner,
		"url", m.URL,
	)
	return m, nil
}

func (s *MonitorService) checkTarget(ctx context.Context, target string) error {
	verdict := s.targets.Validate(ctx, target)
	if verdict.Allowed {
		return nil
	}

	s.logger.Warn("monitor target rejected",
		"url", target,
		"reason", verdict.Reason,
	)
	if verdict.Reason.Transient() {
		return invalid(string(verdict.Reason), "target hostname could not be resolved")
	}
	return invalid("target_blocked", "target is not allowed: %s", verdict.Reason)
}

func (s *MonitorService) GetMonitor(ctx context.Context, owner, id string) (*models.Monitor, error) {
	return ownedMonitor(ctx, s.store, owner, id)
}

func (s *MonitorService) ListMonitors(ctx context.Context, owner string) ([]*models.Monitor, error) {
	monitors, err := s.store.ListMonitorsByOwner(ctx, owner)
	if err != nil {
		s.logger.Error("failed to list monitors", "error", err, "owner", owner)
		return nil, fmt.Errorf("failed to list monitors: %w", err)
	}
	return monitors, nil
}

func (s *MonitorService) DeleteMonitor(ctx context.Context, owner, id string) error {
	if _, err := ownedMonitor(ctx, s.store, owner, id); err != nil {
		return err
	}

	if err := s.store.DeleteMonitor(ctx, id); err != nil {
		s.logger.Error("failed to delete monitor", "error", err, "monitor_id", id)
		return fmt.Errorf("failed to delete monitor: %w", err)
	}

	s.logger.Info("monitor deleted", "monitor_id", id, "owner", owner)
	return nil
}

// SetPaused ставит монитор на паузу или снимает с нее
func (s *MonitorService) SetPaused(ctx context.Context, owner, id string, paused bool) (*models.Monitor, error) {
	return s.update(ctx, owner, id, func(m *models.Monitor) error {
		m.Paused = paused
		return nil
	})
}

// UpdateInterval меняет интервал проверки, допустимы только значения из списка
func (s *MonitorService) UpdateInterval(ctx context.Context, owner, id string, intervalMs int64) (*models.Monitor, error) {
	if !validator.ValidateInterval(intervalMs) {
		return nil, invalid("invalid_interval", "interval %dms is not allowed, use one of %v", intervalMs, validator.AllowedIntervalsMs())
	}
	return s.update(ctx, owner, id, func(m *models.Monitor) error {
		m.IntervalMs = intervalMs
		return nil
	})
}

func (s *MonitorService) GetAssertions(ctx context.Context, owner, id string) (*models.AssertionConfig, error) {
	m, err := ownedMonitor(ctx, s.store, owner, id)
	if err != nil {
		return nil, err
	}
	return &m.Assertions, nil
}

func (s *MonitorService) UpdateAssertions(ctx context.Context, owner, id string, cfg models.AssertionConfig) (*models.Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, invalid("invalid_assertions", "%s", err)
	}
	return s.update(ctx, owner, id, func(m *models.Monitor) error {
		m.Assertions = cfg
		return nil
	})
}

func (s *MonitorService) update(ctx context.Context, owner, id string, apply func(*models.Monitor) error) (*models.Monitor, error) {
	m, err := ownedMonitor(ctx, s.store, owner, id)
	if err != nil {
		return nil, err
	}

	if err := apply(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateMonitor(ctx, m); err != nil {
		s.logger.Error("failed to update monitor", "error", err, "monitor_id", id)
		return nil, fmt.Errorf("failed to update monitor: %w", err)
	}

	s.logger.Info("monitor updated",
		"monitor_id", id,
		"paused", m.Paused,
		"interval_ms", m.IntervalMs,
	)
	return m, nil
}

// SeedMonitors создает мониторы из файла начальной загрузки. Уже существующие
// у владельца URL пропускаются
func (s *MonitorService) SeedMonitors(ctx context.Context, seeds []config.SeedMonitor) (int, error) {
	created := 0
	for _, seed := range seeds {
		existing, err := s.ListMonitors(ctx, seed.Owner)
		if err != nil {
			return created, err
		}
		if containsURL(existing, seed.URL) {
			continue
		}

		req := CreateMonitorRequest{
			Name:       seed.Name,
			URL:        seed.URL,
			IntervalMs: seed.Interval.Milliseconds(),
			Paused:     seed.Paused,
		}
		if a := seed.Assertions; a != nil {
			req.Assertions = &models.AssertionConfig{
				Enabled:             true,
				AcceptedStatusCodes: a.AcceptedStatusCodes,
				ContentType:         a.ContentType,
				BodyContains:        a.BodyContains,
				FollowRedirects:     a.FollowRedirects,
				MaxRedirects:        a.MaxRedirects,
				TimeoutMs:           a.Timeout.Milliseconds(),
			}
		}

		m, err := s.CreateMonitor(ctx, seed.Owner, req)
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.logger.Warn("skipping seed monitor", "url", seed.URL, "error", err)
			continue
		}
		if err != nil {
			return created, err
		}
		created++

		if seed.SLO != nil {
			cfg := &models.SLOConfig{
				MonitorID:     m.ID,
				Enabled:       true,
				TargetPercent: seed.SLO.TargetPercent,
				WindowDays:    seed.SLO.WindowDays,
				UpdatedAt:     s.now().UTC(),
			}
			if cfg.TargetPercent == 0 {
				cfg.TargetPercent = s.slo.DefaultTarget
			}
			if cfg.WindowDays == 0 {
				cfg.WindowDays = s.slo.DefaultWindowDays
			}
			if err := s.store.UpsertSLOConfig(ctx, cfg); err != nil {
				return created, fmt.Errorf("failed to save seed slo config: %w", err)
			}
		}
	}

	s.logger.Info("seed monitors loaded", "created", created, "total", len(seeds))
	return created, nil
}

func containsURL(monitors []*models.Monitor, url string) bool {
	for _, m := range monitors {
		if m.URL == url {
			return true
		}
	}
	return false
}
