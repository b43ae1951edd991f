package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/telemetry"
)

type FailsafeConfig struct {
	// Доля упавших мониторов (в процентах), начиная с которой цикл считается плохим
	TriggerPercent float64
	// Сколько плохих циклов подряд нужно для срабатывания
	RequiredCycles int
	// Меньше мониторов с известным статусом - цикл не оценивается
	MinMonitors int
}

// Failsafe останавливает планирование, когда падает почти весь парк сразу:
// вероятнее потерял сеть сам мониторинг, чем все цели одновременно.
// Сработавшее состояние снимается только оператором.
type Failsafe struct {
	mu        sync.Mutex
	cfg       FailsafeConfig
	state     telemetry.FailsafeState
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
	now       func() time.Time
}

func NewFailsafe(cfg FailsafeConfig, tel *telemetry.Telemetry, logger *slog.Logger) *Failsafe {
	if cfg.RequiredCycles <= 0 {
		cfg.RequiredCycles = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Failsafe{
		cfg:       cfg,
		telemetry: tel,
		logger:    logger,
		now:       time.Now,
	}
}

// ObserveMonitors оценивает цикл по закэшированным статусам активных мониторов
func (f *Failsafe) ObserveMonitors(monitors []*models.Monitor) telemetry.FailsafeState {
	failed, total := 0, 0
	for _, m := range monitors {
		if m.Paused || m.LastStatus == models.StatusUnknown || m.LastStatus == "" {
			continue
		}
		total++
		if m.LastStatus == models.StatusOffline {
			failed++
		}
	}
	return f.Observe(failed, total)
}

// Observe учитывает один цикл планировщика
func (f *Failsafe) Observe(failed, total int) telemetry.FailsafeState {
	f.mu.Lock()
	defer f.mu.Unlock()

	percent := 0.0
	if total > 0 {
		percent = 100 * float64(failed) / float64(total)
	}
	f.state.LastFailurePercent = percent

	if f.state.Triggered {
		return f.publish()
	}

	if total == 0 || total < f.cfg.MinMonitors || percent < f.cfg.TriggerPercent {
		f.state.ConsecutiveOverThreshold = 0
		return f.publish()
	}

	f.state.ConsecutiveOverThreshold++
	if f.state.ConsecutiveOverThreshold >= f.cfg.RequiredCycles {
		f.state.Triggered = true
		f.state.TriggeredAt = f.now()
		f.logger.Error("failsafe triggered, scheduling halted",
			"failure_percent", percent,
			"failed", failed,
			"total", total,
			"cycles", f.state.ConsecutiveOverThreshold,
		)
	}
	return f.publish()
}

// Reset снимает срабатывание после подтверждения оператором
func (f *Failsafe) Reset() telemetry.FailsafeState {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Triggered {
		f.logger.Warn("failsafe reset by operator")
	}
	f.state = telemetry.FailsafeState{}
	return f.publish()
}

func (f *Failsafe) State() telemetry.FailsafeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Failsafe) Triggered() bool {
	return f.State().Triggered
}

// publish вызывается под mu
func (f *Failsafe) publish() telemetry.FailsafeState {
	if f.telemetry != nil {
		f.telemetry.SetFailsafe(f.state)
	}
	return f.state
}
