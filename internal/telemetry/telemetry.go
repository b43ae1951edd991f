package telemetry

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"PulseWatch/pkg/stats"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DriftSamples    = 120
	DurationSamples = 500
)

// Telemetry процессная телеметрия планировщика. Пишут планировщик, пробер и
// рекордер, читают отчеты. Не сохраняется, сбрасывается только рестартом.
type Telemetry struct {
	runs            atomic.Int64
	overlapSkips    atomic.Int64
	capDeferred     atomic.Int64
	dispatched      atomic.Int64
	probePanics     atomic.Int64
	persistFailures atomic.Int64
	inFlight        atomic.Int64
	maxInFlight     atomic.Int64

	cycleMu   sync.Mutex
	lastCycle CycleStats

	drift     *ring
	durations *ring

	blockedMu sync.Mutex
	blocked   map[string]int64

	failsafeMu sync.Mutex
	failsafe   FailsafeState

	registry *prometheus.Registry
	metrics  *collectors
}

type CycleStats struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Due        int           `json:"due"`
	Dispatched int           `json:"dispatched"`
	Skipped    int           `json:"skipped"`
	Deferred   int           `json:"deferred"`
}

type FailsafeState struct {
	ConsecutiveOverThreshold int       `json:"consecutive_over_threshold"`
	Triggered                bool      `json:"triggered"`
	TriggeredAt              time.Time `json:"triggered_at,omitzero"`
	LastFailurePercent       float64   `json:"last_failure_percent"`
}

type collectors struct {
	runs            prometheus.Counter
	overlapSkips    prometheus.Counter
	capDeferred     prometheus.Counter
	dispatched      prometheus.Counter
	probePanics     prometheus.Counter
	persistFailures prometheus.Counter
	inFlight        prometheus.Gauge
	drift           prometheus.Histogram
	checkDuration   prometheus.Histogram
	checks          *prometheus.CounterVec
	blocked         *prometheus.CounterVec
	failsafeStreak  prometheus.Gauge
	failsafeActive  prometheus.Gauge
}

func New() *Telemetry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	t := &Telemetry{
		drift:     newRing(DriftSamples),
		durations: newRing(DurationSamples),
		blocked:   make(map[string]int64),
		registry:  reg,
		metrics: &collectors{
			runs: factory.NewCounter(prometheus.CounterOpts{
				Name: "pulsewatch_scheduler_runs_total",
				Help: "Scheduler ticks executed",
			}),
			overlapSkips: factory.NewCounter(prometheus.CounterOpts{
				Name: "pulsewatch_scheduler_overlap_skips_total",
				Help: "Due monitors skipped because the previous probe was still in flight",
			}),
			capDeferred: factory.NewCounter(prometheus.CounterOpts{
				Name: "pulsewatch_scheduler_cap_deferred_total",
				Help: "Due monitors deferred to the next tick by the concurrency cap",
			}),
			dispatched: factory.NewCounter(prometheus.CounterOpts{
				Name: "pulsewatch_scheduler_dispatched_total",
				Help: "Probes dispatched",
			}),
			probePanics: factory.NewCounter(prometheus.CounterOpts{
				Name: "pulsewatch_probe_panics_total",
				Help: "Recovered panics while probing a monitor",
			}),
			persistFailures: factory.NewCounter(prometheus.CounterOpts{
				Name: "pulsewatch_persist_failures_total",
				Help: "Check results that failed to persist",
			}),
			inFlight: factory.NewGauge(prometheus.GaugeOpts{
				Name: "pulsewatch_probes_in_flight",
				Help: "Probes currently running",
			}),
			drift: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "pulsewatch_scheduler_tick_drift_seconds",
				Help:    "Actual minus scheduled tick time",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			}),
			checkDuration: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "pulsewatch_check_duration_seconds",
				Help:    "Wall time of a single check including persistence",
				Buckets: prometheus.DefBuckets,
			}),
			checks: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "pulsewatch_checks_total",
				Help: "Recorded checks by result",
			}, []string{"result"}),
			blocked: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "pulsewatch_targets_blocked_total",
				Help: "Targets refused by the SSRF policy by reason",
			}, []string{"reason"}),
			failsafeStreak: factory.NewGauge(prometheus.GaugeOpts{
				Name: "pulsewatch_failsafe_streak",
				Help: "Consecutive cycles over the failsafe threshold",
			}),
			failsafeActive: factory.NewGauge(prometheus.GaugeOpts{
				Name: "pulsewatch_failsafe_triggered",
				Help: "1 when the failsafe halted scheduling",
			}),
		},
	}
	return t
}

// Registry реестр Prometheus для /metrics
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

func (t *Telemetry) RecordRun(drift time.Duration) {
	t.runs.Add(1)
	t.metrics.runs.Inc()

	ms := float64(drift) / float64(time.Millisecond)
	t.drift.add(ms)
	t.metrics.drift.Observe(drift.Seconds())
}

func (t *Telemetry) RecordOverlapSkip() {
	t.overlapSkips.Add(1)
	t.metrics.overlapSkips.Inc()
}

func (t *Telemetry) RecordCapDeferred(n int) {
	if n <= 0 {
		return
	}
	t.capDeferred.Add(int64(n))
	t.metrics.capDeferred.Add(float64(n))
}

func (t *Telemetry) RecordCycle(cycle CycleStats) {
	t.cycleMu.Lock()
	t.lastCycle = cycle
	t.cycleMu.Unlock()
}

// ProbeStarted увеличивает in-flight и обновляет максимум
func (t *Telemetry) ProbeStarted() {
	t.dispatched.Add(1)
	t.metrics.dispatched.Inc()
	t.metrics.inFlight.Inc()

	current := t.inFlight.Add(1)
	for {
		peak := t.maxInFlight.Load()
		if current <= peak || t.maxInFlight.CompareAndSwap(peak, current) {
			return
		}
	}
}

func (t *Telemetry) ProbeFinished(duration time.Duration) {
	t.inFlight.Add(-1)
	t.metrics.inFlight.Dec()

	t.durations.add(float64(duration.Milliseconds()))
	t.metrics.checkDuration.Observe(duration.Seconds())
}

func (t *Telemetry) RecordCheck(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	t.metrics.checks.WithLabelValues(result).Inc()
}

func (t *Telemetry) RecordPanic() {
	t.probePanics.Add(1)
	t.metrics.probePanics.Inc()
}

func (t *Telemetry) RecordPersistFailure() {
	t.persistFailures.Add(1)
	t.metrics.persistFailures.Inc()
}

// RecordBlocked счетчик блокировок по причине
func (t *Telemetry) RecordBlocked(reason string) {
	t.blockedMu.Lock()
	t.blocked[reason]++
	t.blockedMu.Unlock()
	t.metrics.blocked.WithLabelValues(reason).Inc()
}

func (t *Telemetry) SetFailsafe(state FailsafeState) {
	t.failsafeMu.Lock()
	t.failsafe = state
	t.failsafeMu.Unlock()

	t.metrics.failsafeStreak.Set(float64(state.ConsecutiveOverThreshold))
	if state.Triggered {
		t.metrics.failsafeActive.Set(1)
	} else {
		t.metrics.failsafeActive.Set(0)
	}
}

func (t *Telemetry) InFlight() int64 {
	return t.inFlight.Load()
}

type Snapshot struct {
	Runs             int64            `json:"runs"`
	OverlapSkips     int64            `json:"skipped_due_to_overlap"`
	CapDeferred      int64            `json:"deferred_by_cap"`
	Dispatched       int64            `json:"dispatched"`
	ProbePanics      int64            `json:"probe_panics"`
	PersistFailures  int64            `json:"persist_failures"`
	InFlight         int64            `json:"in_flight"`
	MaxInFlight      int64            `json:"max_in_flight"`
	LastCycle        CycleStats       `json:"last_cycle"`
	DriftMs          []float64        `json:"drift_ms"`
	DriftP95Ms       *float64         `json:"drift_p95_ms"`
	CheckDurationsMs []float64        `json:"check_durations_ms"`
	CheckP50Ms       *float64         `json:"check_p50_ms"`
	CheckP95Ms       *float64         `json:"check_p95_ms"`
	BlockedByReason  map[string]int64 `json:"blocked_by_reason"`
	Failsafe         FailsafeState    `json:"failsafe"`
}

func (t *Telemetry) Snapshot() Snapshot {
	t.cycleMu.Lock()
	cycle := t.lastCycle
	t.cycleMu.Unlock()

	t.blockedMu.Lock()
	blocked := maps.Clone(t.blocked)
	t.blockedMu.Unlock()

	t.failsafeMu.Lock()
	failsafe := t.failsafe
	t.failsafeMu.Unlock()

	drift := t.drift.snapshot()
	durations := t.durations.snapshot()

	return Snapshot{
		Runs:             t.runs.Load(),
		OverlapSkips:     t.overlapSkips.Load(),
		CapDeferred:      t.capDeferred.Load(),
		Dispatched:       t.dispatched.Load(),
		ProbePanics:      t.probePanics.Load(),
		PersistFailures:  t.persistFailures.Load(),
		InFlight:         t.inFlight.Load(),
		MaxInFlight:      t.maxInFlight.Load(),
		LastCycle:        cycle,
		DriftMs:          drift,
		DriftP95Ms:       stats.Percentile(drift, 95),
		CheckDurationsMs: durations,
		CheckP50Ms:       stats.Percentile(durations, 50),
		CheckP95Ms:       stats.Percentile(durations, 95),
		BlockedByReason:  blocked,
		Failsafe:         failsafe,
	}
}
