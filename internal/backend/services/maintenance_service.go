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
	"PulseWatch/internal/maintenance"
	"PulseWatch/pkg/uuidutil"
	"PulseWatch/pkg/validator"
)

// DomainVerifier подтверждение владения доменом (внешний сервис)
type DomainVerifier interface {
	IsVerified(ctx context.Context, owner, hostname string) (bool, error)
}

// TrustAllDomains считает любой домен подтвержденным
type TrustAllDomains struct{}

func (TrustAllDomains) IsVerified(context.Context, string, string) (bool, error) {
	return true, nil
}

type MaintenanceService struct {
	store    storage.Store
	policy   maintenance.Policy
	verifier DomainVerifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewMaintenanceService(store storage.Store, policy maintenance.Policy, verifier DomainVerifier, logger *slog.Logger) *MaintenanceService {
	if verifier == nil {
		verifier = TrustAllDomains{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MaintenanceService{
		store:    store,
		policy:   policy,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

type CreateWindowRequest struct {
	Title    string    `json:"title" binding:"required"`
	Message  string    `json:"message"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
}

// WindowView окно вместе с вычисленным статусом
type WindowView struct {
	*models.MaintenanceWindow
	Status models.MaintenanceStatus `json:"status"`
}

func (s *MaintenanceService) view(w *models.MaintenanceWindow) *WindowView {
	return &WindowView{MaintenanceWindow: w, Status: w.StatusAt(s.now())}
}

func (s *MaintenanceService) CreateWindow(ctx context.Context, owner, monitorID string, req CreateWindowRequest) (*WindowView, error) {
	m, err := ownedMonitor(ctx, s.store, owner, monitorID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Title) == "" {
		return nil, invalid("title_required", "title is required")
	}

	if validator.IsLiteralIPOrLocalhost(m.URL) {
		return nil, invalid("invalid_target", "maintenance is not available for literal IP or localhost targets")
	}

	host := validator.Hostname(m.URL)
	verified, err := s.verifier.IsVerified(ctx, owner, host)
	if err != nil {
		return nil, fmt.Errorf("failed to verify domain: %w", err)
	}
	if !verified {
		return nil, invalid("domain_not_verified", "domain %s is not verified", host)
	}

	now := s.now()
	if err := s.policy.Check(req.StartsAt, req.EndsAt, now); err != nil {
		var rule *maintenance.RuleError
		if errors.As(err, &rule) {
			return nil, invalid(rule.Code, "%s", rule.Message)
		}
		return nil, err
	}

	w := &models.MaintenanceWindow{
		ID:        uuidutil.New(),
		MonitorID: monitorID,
		Title:     strings.TrimSpace(req.Title),
		Message:   req.Message,
		StartsAt:  req.StartsAt.UTC(),
		EndsAt:    req.EndsAt.UTC(),
		CreatedAt: now.UTC(),
	}

	if err := s.store.CreateWindow(ctx, w); err != nil {
		s.logger.Error("failed to create maintenance window", "error", err, "monitor_id", monitorID)
		return nil, fmt.Errorf("failed to create maintenance window: %w", err)
	}

	s.logger.Info("maintenance window created",
		"window_id", w.ID,
		"monitor_id", monitorID,
		"starts_at", w.StartsAt,
		"ends_at", w.EndsAt,
	)
	return s.view(w), nil
}

func (s *MaintenanceService) ListWindows(ctx context.Context, owner, monitorID string) ([]*WindowView, error) {
	if _, err := ownedMonitor(ctx, s.store, owner, monitorID); err != nil {
		return nil, err
	}

	windows, err := s.store.ListWindows(ctx, monitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance windows: %w", err)
	}

	out := make([]*WindowView, 0, len(windows))
	for _, w := range windows {
		out = append(out, s.view(w))
	}
	return out, nil
}

// CancelWindow отменяет запланированное или активное окно
func (s *MaintenanceService) CancelWindow(ctx context.Context, owner, windowID string) (*WindowView, error) {
	w, err := s.store.GetWindow(ctx, windowID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("maintenance window %s: %w", windowID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance window: %w", err)
	}

	if _, err := ownedMonitor(ctx, s.store, owner, w.MonitorID); err != nil {
		return nil, err
	}

	now := s.now()
	switch w.StatusAt(now) {
	case models.MaintenanceCompleted, models.MaintenanceCancelled:
		return nil, invalid("window_final", "maintenance window is already %s", w.StatusAt(now))
	}

	if err := s.store.CancelWindow(ctx, windowID, now.UTC()); err != nil {
		if errors.Is(err, storage.ErrAlreadyFinal) {
			return nil, invalid("window_final", "maintenance window is already cancelled")
		}
		return nil, fmt.Errorf("failed to cancel maintenance window: %w", err)
	}

	cancelledAt := now.UTC()
	w.CancelledAt = &cancelledAt

	s.logger.Info("maintenance window cancelled", "window_id", windowID, "monitor_id", w.MonitorID)
	return s.view(w), nil
}
