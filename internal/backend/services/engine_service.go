package services

import (
	"context"
	"log/slog"

	"PulseWatch/internal/scheduler"
	"PulseWatch/internal/telemetry"
	"PulseWatch/pkg/validator"
)

// EngineService состояние движка проверок для владельца сервиса
type EngineService struct {
	telemetry *telemetry.Telemetry
	failsafe  *scheduler.Failsafe
	targets   TargetChecker
	logger    *slog.Logger
}

func NewEngineService(tel *telemetry.Telemetry, failsafe *scheduler.Failsafe, targets TargetChecker, logger *slog.Logger) *EngineService {
	if logger == nil {
		logger = slog.Default()
	}

	return &EngineService{
		telemetry: tel,
		failsafe:  failsafe,
		targets:   targets,
		logger:    logger,
	}
}

func (s *EngineService) Telemetry() telemetry.Snapshot {
	return s.telemetry.Snapshot()
}

func (s *EngineService) Failsafe() telemetry.FailsafeState {
	return s.failsafe.State()
}

// ResetFailsafe оператор подтвердил, что сеть восстановлена
func (s *EngineService) ResetFailsafe() telemetry.FailsafeState {
	before := s.failsafe.State()
	state := s.failsafe.Reset()
	s.logger.Info("failsafe state reset", "was_triggered", before.Triggered)
	return state
}

func (s *EngineService) ValidateTarget(ctx context.Context, target string) validator.Verdict {
	return s.targets.Validate(ctx, target)
}
