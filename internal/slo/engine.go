package slo

import (
	"math"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/incidents"
	"PulseWatch/pkg/stats"
)

// Summary сводка SLO монитора за скользящее окно
type Summary struct {
	MonitorID     string  `json:"monitor_id"`
	Enabled       bool    `json:"enabled"`
	TargetPercent float64 `json:"target_percent"`
	WindowDays    int     `json:"window_days"`

	Checks        int      `json:"checks"`
	Incidents     int      `json:"incidents"`
	UptimePercent *float64 `json:"uptime_percent"`

	ErrorBudgetMs          int64   `json:"error_budget_ms"`
	ConsumedDowntimeMs     int64   `json:"consumed_downtime_ms"`
	ConsumedBudgetPercent  float64 `json:"consumed_budget_percent"`
	RemainingBudgetPercent float64 `json:"remaining_budget_percent"`
	RemainingDowntimeMs    int64   `json:"remaining_downtime_ms"`

	BurnRates []BurnSnapshot `json:"burn_rates"`
}

type Engine struct {
	thresholds Thresholds
}

func NewEngine(thresholds Thresholds) *Engine {
	if !thresholds.Valid() {
		thresholds = DefaultThresholds()
	}
	return &Engine{thresholds: thresholds}
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Compute считает сводку. checks - проверки монитора за окно цели по возрастанию
// времени, list - инциденты, построенные из тех же проверок. Проверки внутри
// окон обслуживания не входят ни в числитель, ни в знаменатель.
// Скрытие инцидентов на результат не влияет.
func (e *Engine) Compute(cfg *models.SLOConfig, checks []*models.Check, list []*models.Incident, ex incidents.Exclusions, now time.Time) Summary {
	summary := Summary{
		MonitorID:     cfg.MonitorID,
		Enabled:       cfg.Enabled,
		TargetPercent: cfg.TargetPercent,
		WindowDays:    cfg.WindowDays,
	}

	window := cfg.Window()
	from := now.Add(-window)

	counted := countable(cfg.MonitorID, checks, ex, from, now)
	summary.Checks = len(counted)
	summary.UptimePercent = uptimeOf(counted)

	if !cfg.Enabled {
		return summary
	}

	for _, inc := range list {
		end := now
		if inc.EndedAt != nil {
			end = *inc.EndedAt
		}
		if end.After(from) && inc.StartedAt.Before(now) {
			summary.Incidents++
		}
	}

	allowedPercent := 100 - cfg.TargetPercent
	budget := time.Duration(float64(window) * allowedPercent / 100)
	consumed := incidents.DowntimeWithin(list, ex, from, now, now)

	summary.ErrorBudgetMs = budget.Milliseconds()
	summary.ConsumedDowntimeMs = consumed.Milliseconds()

	consumedPercent := 0.0
	switch {
	case budget > 0:
		consumedPercent = 100 * float64(consumed) / float64(budget)
	case consumed > 0:
		consumedPercent = 100
	}
	consumedPercent = stats.Round(math.Max(0, math.Min(100, consumedPercent)), 4)
	summary.ConsumedBudgetPercent = consumedPercent
	summary.RemainingBudgetPercent = stats.Round(100-consumedPercent, 4)

	if remaining := budget - consumed; remaining > 0 {
		summary.RemainingDowntimeMs = remaining.Milliseconds()
	}

	summary.BurnRates = e.burnRates(counted, allowedPercent, now)
	return summary
}

func (e *Engine) burnRates(counted []*models.Check, allowedPercent float64, now time.Time) []BurnSnapshot {
	snapshots := make([]BurnSnapshot, 0, len(BurnWindows))

	for _, w := range BurnWindows {
		snap := BurnSnapshot{
			Window:   w.Name,
			WindowMs: w.Duration.Milliseconds(),
			State:    BurnUnknown,
		}

		from := now.Add(-w.Duration)
		for _, c := range counted {
			if c.CheckedAt.Before(from) {
				continue
			}
			snap.Checks++
			if !c.OK {
				snap.Failures++
			}
		}

		if snap.Checks > 0 {
			failureRate := float64(snap.Failures) / float64(snap.Checks)
			switch {
			case allowedPercent > 0:
				rate := stats.Round(failureRate/(allowedPercent/100), 4)
				snap.Rate = &rate
				snap.State = e.thresholds.State(rate)
			case snap.Failures == 0:
				rate := 0.0
				snap.Rate = &rate
				snap.State = BurnHealthy
			default:
				// Цель 100%: любое падение сжигает весь бюджет
				snap.State = BurnCritical
			}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots
}

// Uptime процент успешных проверок без учета окон обслуживания, nil если проверок нет
func Uptime(monitorID string, checks []*models.Check, ex incidents.Exclusions, from, to time.Time) *float64 {
	return uptimeOf(countable(monitorID, checks, ex, from, to))
}

func uptimeOf(counted []*models.Check) *float64 {
	if len(counted) == 0 {
		return nil
	}
	okCount := 0
	for _, c := range counted {
		if c.OK {
			okCount++
		}
	}
	uptime := stats.Round(100*float64(okCount)/float64(len(counted)), 4)
	return &uptime
}

func countable(monitorID string, checks []*models.Check, ex incidents.Exclusions, from, to time.Time) []*models.Check {
	out := make([]*models.Check, 0, len(checks))
	for _, c := range checks {
		if c.CheckedAt.Before(from) || !c.CheckedAt.Before(to) {
			continue
		}
		if ex != nil && ex.IsExcluded(c.CheckedAt, monitorID) {
			continue
		}
		out = append(out, c)
	}
	return out
}
