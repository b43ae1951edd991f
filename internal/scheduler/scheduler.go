package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/telemetry"

	"golang.org/x/sync/semaphore"
)

// MonitorLister источник мониторов для планирования
type MonitorLister interface {
	ListMonitors(ctx context.Context) ([]*models.Monitor, error)
}

type Prober interface {
	Probe(ctx context.Context, m *models.Monitor) *models.Check
	Timeout(m *models.Monitor) time.Duration
}

type Recorder interface {
	Record(ctx context.Context, m *models.Monitor, check *models.Check) (*models.StatusTransition, error)
}

type Config struct {
	TickInterval time.Duration
	MaxInFlight  int64
	// Запас поверх таймаута пробы, после которого проба отменяется принудительно
	ProbeGrace     time.Duration
	PersistTimeout time.Duration
}

// Scheduler на каждом тике выбирает мониторы, которым пора проверяться,
// и запускает пробы с ограничением параллельности.
type Scheduler struct {
	cfg       Config
	monitors  MonitorLister
	prober    Prober
	recorder  Recorder
	telemetry *telemetry.Telemetry
	failsafe  *Failsafe
	logger    *slog.Logger

	sem *semaphore.Weighted

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup

	now func() time.Time
}

func New(
	cfg Config,
	monitors MonitorLister,
	prober Prober,
	recorder Recorder,
	tel *telemetry.Telemetry,
	failsafe *Failsafe,
	logger *slog.Logger,
) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 50
	}
	if cfg.ProbeGrace <= 0 {
		cfg.ProbeGrace = 2 * time.Second
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	if tel == nil {
		tel = telemetry.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cfg:       cfg,
		monitors:  monitors,
		prober:    prober,
		recorder:  recorder,
		telemetry: tel,
		failsafe:  failsafe,
		logger:    logger,
		sem:       semaphore.NewWeighted(cfg.MaxInFlight),
		inFlight:  make(map[string]struct{}),
		now:       time.Now,
	}
}

// Run крутит цикл планирования до отмены ctx, затем ждет запущенные пробы
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"tick", s.cfg.TickInterval,
		"max_in_flight", s.cfg.MaxInFlight,
	)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.Tick(ctx, s.now())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, waiting for in-flight probes",
				"in_flight", s.telemetry.InFlight(),
			)
			s.Wait()
			return nil
		case scheduledAt := <-ticker.C:
			s.Tick(ctx, scheduledAt)
		}
	}
}

// Tick один цикл: отбор, защита от наложения, запуск под лимитом.
// Не блокируется на пробах.
func (s *Scheduler) Tick(ctx context.Context, scheduledAt time.Time) telemetry.CycleStats {
	startedAt := s.now()
	s.telemetry.RecordRun(startedAt.Sub(scheduledAt))

	cycle := telemetry.CycleStats{StartedAt: startedAt}
	defer func() {
		cycle.Duration = s.now().Sub(startedAt)
		s.telemetry.RecordCycle(cycle)
	}()

	monitors, err := s.monitors.ListMonitors(ctx)
	if err != nil {
		s.logger.Error("failed to list monitors", "error", err)
		return cycle
	}

	if s.failsafe != nil {
		if state := s.failsafe.ObserveMonitors(monitors); state.Triggered {
			s.logger.Warn("failsafe active, skipping dispatch",
				"failure_percent", state.LastFailurePercent,
			)
			return cycle
		}
	}

	for _, m := range monitors {
		if !m.IsDue(startedAt) {
			continue
		}
		cycle.Due++

		// Предыдущая проба еще идет: пропускаем, второй параллельной не будет
		if s.isInFlight(m.ID) {
			cycle.Skipped++
			s.telemetry.RecordOverlapSkip()
			s.logger.Debug("monitor skipped, previous probe in flight", "monitor_id", m.ID)
			continue
		}

		// Лимит исчерпан: монитор подождет следующего тика
		if !s.sem.TryAcquire(1) {
			cycle.Deferred++
			continue
		}

		s.markInFlight(m.ID)
		cycle.Dispatched++
		s.wg.Add(1)
		go s.execute(ctx, m)
	}

	s.telemetry.RecordCapDeferred(cycle.Deferred)

	if cycle.Due > 0 {
		s.logger.Debug("scheduler cycle",
			"due", cycle.Due,
			"dispatched", cycle.Dispatched,
			"skipped", cycle.Skipped,
			"deferred", cycle.Deferred,
		)
	}
	return cycle
}

// execute проба и запись результата одного монитора. Паника изолируется.
func (s *Scheduler) execute(ctx context.Context, m *models.Monitor) {
	startedAt := s.now()
	s.telemetry.ProbeStarted()

	defer func() {
		s.telemetry.ProbeFinished(s.now().Sub(startedAt))
		s.release(m.ID)
		s.sem.Release(1)
		s.wg.Done()
	}()

	check := s.safeProbe(ctx, m, startedAt)
	if check == nil {
		return
	}
	s.telemetry.RecordCheck(check.OK)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()

	if _, err := s.recorder.Record(persistCtx, m, check); err != nil {
		// Повтора нет: следующая плановая проверка запишется как обычно
		s.telemetry.RecordPersistFailure()
		s.logger.Error("failed to record check",
			"monitor_id", m.ID,
			"error", err,
		)
	}
}

// safeProbe возвращает nil, если проба прервана отменой ctx
func (s *Scheduler) safeProbe(ctx context.Context, m *models.Monitor, startedAt time.Time) (check *models.Check) {
	defer func() {
		if r := recover(); r != nil {
			s.telemetry.RecordPanic()
			s.logger.Error("probe panicked",
				"monitor_id", m.ID,
				"panic", r,
			)
			check = models.NewFailedCheck(m.ID, startedAt, s.now().Sub(startedAt).Milliseconds(),
				models.ErrorInternal, fmt.Sprintf("probe panicked: %v", r))
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, s.prober.Timeout(m)+s.cfg.ProbeGrace)
	defer cancel()

	check = s.prober.Probe(probeCtx, m)
	if ctx.Err() != nil {
		// Пробу оборвала остановка планировщика, цель тут ни при чем.
		// Такой результат не записываем, иначе рестарт выглядит как падение.
		s.logger.Info("probe interrupted by shutdown, result dropped",
			"monitor_id", m.ID,
		)
		return nil
	}
	if check == nil {
		check = models.NewFailedCheck(m.ID, startedAt, s.now().Sub(startedAt).Milliseconds(),
			models.ErrorInternal, "probe returned no result")
	}

	if !check.OK {
		s.logger.Warn("check failed",
			"monitor_id", m.ID,
			"url", m.URL,
			"error_code", check.ErrorCode,
			"error", check.ErrorMessage,
		)
	}
	return check
}

func (s *Scheduler) isInFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

func (s *Scheduler) markInFlight(id string) {
	s.mu.Lock()
	s.inFlight[id] = struct{}{}
	s.mu.Unlock()
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// Wait ждет завершения всех запущенных проб
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) Failsafe() *Failsafe {
	return s.failsafe
}

func (s *Scheduler) Telemetry() *telemetry.Telemetry {
	return s.telemetry
}
