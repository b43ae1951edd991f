package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/backend/storage"
	"PulseWatch/internal/incidents"
	"PulseWatch/internal/slo"
)

type SLOServiceConfig struct {
	DefaultTarget     float64
	MinTarget         float64
	MaxTarget         float64
	DefaultWindowDays int
	MaxWindowDays     int
}

func (c SLOServiceConfig) withDefaults() SLOServiceConfig {
	if c.MinTarget == 0 {
		c.MinTarget = 90
	}
	if c.MaxTarget == 0 {
		c.MaxTarget = 99.999
	}
	if c.DefaultTarget == 0 {
		c.DefaultTarget = 99.9
	}
	if c.DefaultWindowDays == 0 {
		c.DefaultWindowDays = 30
	}
	if c.MaxWindowDays == 0 {
		c.MaxWindowDays = 365
	}
	return c
}

type SLOService struct {
	store  storage.Store
	engine *slo.Engine
	cfg    SLOServiceConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewSLOService(store storage.Store, engine *slo.Engine, cfg SLOServiceConfig, logger *slog.Logger) *SLOService {
	if logger == nil {
		logger = slog.Default()
	}

	return &SLOService{
		store:  store,
		engine: engine,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// UpdateSLORequest частичное обновление, nil поля не меняются
type UpdateSLORequest struct {
	Enabled       *bool    `json:"enabled"`
	TargetPercent *float64 `json:"target_percent"`
	WindowDays    *int     `json:"window_days"`
}

// GetConfig настройки SLO монитора; если их нет, возвращаются выключенные по умолчанию
func (s *SLOService) GetConfig(ctx context.Context, owner, monitorID string) (*models.SLOConfig, error) {
	if _, err := ownedMonitor(ctx, s.store, owner, monitorID); err != nil {
		return nil, err
	}
	return s.config(ctx, monitorID)
}

func (s *SLOService) config(ctx context.Context, monitorID string) (*models.SLOConfig, error) {
	cfg, err := s.store.GetSLOConfig(ctx, monitorID)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.SLOConfig{
			MonitorID:     monitorID,
			Enabled:       false,
			TargetPercent: s.cfg.DefaultTarget,
			WindowDays:    s.cfg.DefaultWindowDays,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slo config: %w", err)
	}
	return cfg, nil
}

func (s *SLOService) UpdateConfig(ctx context.Context, owner, monitorID string, req UpdateSLORequest) (*models.SLOConfig, error) {
	cfg, err := s.GetConfig(ctx, owner, monitorID)
	if err != nil {
		return nil, err
	}

	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.TargetPercent != nil {
		target := *req.TargetPercent
		if target < s.cfg.MinTarget || target > s.cfg.MaxTarget {
			return nil, invalid("invalid_target_percent", "target_percent must be between %v and %v", s.cfg.MinTarget, s.cfg.MaxTarget)
		}
		cfg.TargetPercent = target
	}
	if req.WindowDays != nil {
		days := *req.WindowDays
		if days < 1 || days > s.cfg.MaxWindowDays {
			return nil, invalid("invalid_window_days", "window_days must be between 1 and %d", s.cfg.MaxWindowDays)
		}
		cfg.WindowDays = days
	}
	cfg.UpdatedAt = s.now().UTC()

	if err := s.store.UpsertSLOConfig(ctx, cfg); err != nil {
		s.logger.Error("failed to save slo config", "error", err, "monitor_id", monitorID)
		return nil, fmt.Errorf("failed to save slo config: %w", err)
	}

	s.logger.Info("slo config updated",
		"monitor_id", monitorID,
		"enabled", cfg.Enabled,
		"target_percent", cfg.TargetPercent,
		"window_days", cfg.WindowDays,
	)
	return cfg, nil
}

// Summary сводка SLO за окно цели
func (s *SLOService) Summary(ctx context.Context, owner, monitorID string) (*slo.Summary, error) {
	if _, err := ownedMonitor(ctx, s.store, owner, monitorID); err != nil {
		return nil, err
	}
	return s.summary(ctx, monitorID, s.now())
}

func (s *SLOService) summary(ctx context.Context, monitorID string, now time.Time) (*slo.Summary, error) {
	cfg, err := s.config(ctx, monitorID)
	if err != nil {
		return nil, err
	}

	history, err := loadHistory(ctx, s.store, monitorID, now.Add(-cfg.Window()), now)
	if err != nil {
		return nil, err
	}

	list := incidents.Build(monitorID, history.checks, history.suppressor, now)
	summary := s.engine.Compute(cfg, history.checks, list, history.suppressor, now)
	return &summary, nil
}
