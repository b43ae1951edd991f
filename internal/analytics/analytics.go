package analytics

import (
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/incidents"
	"PulseWatch/internal/shared/constants"
	"PulseWatch/internal/slo"
	"PulseWatch/pkg/stats"
)

type DayStatus string

const (
	DayOK    DayStatus = "ok"
	DayWarn  DayStatus = "warn"
	DayDown  DayStatus = "down"
	DayEmpty DayStatus = "empty"
)

// UptimeWindows периоды сводок доступности в днях
var UptimeWindows = []int{7, 30, 365}

type ResponseStats struct {
	Samples int      `json:"samples"`
	AvgMs   *float64 `json:"avg_ms"`
	P50Ms   *float64 `json:"p50_ms"`
	P95Ms   *float64 `json:"p95_ms"`
}

type HourBar struct {
	Start         time.Time `json:"start"`
	Checks        int       `json:"checks"`
	Failures      int       `json:"failures"`
	UptimePercent *float64  `json:"uptime_percent"`
}

type HeatmapDay struct {
	Day           string    `json:"day"`
	Status        DayStatus `json:"status"`
	Checks        int       `json:"checks"`
	Failed        int       `json:"failed"`
	UptimePercent *float64  `json:"uptime_percent"`
}

type UptimeSummary struct {
	Days          int      `json:"days"`
	Checks        int      `json:"checks"`
	UptimePercent *float64 `json:"uptime_percent"`
}

// Metrics данные для дашборда и публичной страницы статуса монитора
type Metrics struct {
	MonitorID      string               `json:"monitor_id"`
	Status         models.DisplayStatus `json:"status"`
	LastCheckedAt  *time.Time           `json:"last_checked_at"`
	LastResponseMs *int64               `json:"last_response_ms"`
	LastErrorCode  models.ErrorCode     `json:"last_error_code,omitempty"`

	Response  ResponseStats     `json:"response"`
	Hourly    []HourBar         `json:"hourly"`
	Heatmap   []HeatmapDay      `json:"heatmap"`
	Uptime    []UptimeSummary   `json:"uptime"`
	SLO       *slo.Summary      `json:"slo,omitempty"`
	Incidents incidents.Listing `json:"incidents"`
}

// Input исходные данные для сборки метрик
type Input struct {
	Monitor *models.Monitor
	// Проверки за последние сутки по возрастанию времени
	RecentChecks []*models.Check
	// Дневные счетчики за последний год
	DailyCounts []models.CheckCounts
	SLO         *slo.Summary
	Incidents   incidents.Listing
}

func Build(in Input, now time.Time) *Metrics {
	m := in.Monitor
	return &Metrics{
		MonitorID:      m.ID,
		Status:         m.DisplayStatus(),
		LastCheckedAt:  m.LastCheckedAt,
		LastResponseMs: m.LastResponseMs,
		LastErrorCode:  m.LastErrorCode,
		Response:       ResponseTimes(in.RecentChecks, now.Add(-constants.ResponseStatsWindow), now),
		Hourly:         HourlyBars(in.RecentChecks, now),
		Heatmap:        Heatmap(in.DailyCounts, now, constants.HeatmapDays),
		Uptime:         UptimeSummaries(in.DailyCounts, now, UptimeWindows),
		SLO:            in.SLO,
		Incidents:      in.Incidents,
	}
}

// ResponseTimes статистика времени ответа по успешным проверкам в [from, to)
func ResponseTimes(checks []*models.Check, from, to time.Time) ResponseStats {
	var samples []int64
	for _, c := range checks {
		if c.OK && !c.CheckedAt.Before(from) && c.CheckedAt.Before(to) {
			samples = append(samples, c.ResponseMs)
		}
	}

	values := stats.Int64s(samples)
	return ResponseStats{
		Samples: len(values),
		AvgMs:   rounded(stats.Mean(values)),
		P50Ms:   rounded(stats.Percentile(values, 50)),
		P95Ms:   rounded(stats.Percentile(values, 95)),
	}
}

// HourlyBars 24 часовых корзины, последняя - текущий час
func HourlyBars(checks []*models.Check, now time.Time) []HourBar {
	current := now.UTC().Truncate(time.Hour)
	first := current.Add(-23 * time.Hour)

	bars := make([]HourBar, 24)
	for i := range bars {
		bars[i].Start = first.Add(time.Duration(i) * time.Hour)
	}

	for _, c := range checks {
		idx := int(c.CheckedAt.UTC().Sub(first) / time.Hour)
		if c.CheckedAt.Before(first) || idx >= len(bars) {
			continue
		}
		bars[idx].Checks++
		if !c.OK {
			bars[idx].Failures++
		}
	}

	for i := range bars {
		bars[i].UptimePercent = percent(bars[i].Checks-bars[i].Failures, bars[i].Checks)
	}
	return bars
}

// Heatmap статус по дням (UTC) за days дней, последний - сегодня
func Heatmap(counts []models.CheckCounts, now time.Time, days int) []HeatmapDay {
	byDay := indexByDay(counts)
	today := startOfDay(now)

	out := make([]HeatmapDay, days)
	for i := range out {
		day := today.AddDate(0, 0, i-days+1)
		key := day.Format(time.DateOnly)
		c := byDay[key]

		out[i] = HeatmapDay{
			Day:           key,
			Status:        dayStatus(c.Total, c.Failed),
			Checks:        c.Total,
			Failed:        c.Failed,
			UptimePercent: percent(c.Total-c.Failed, c.Total),
		}
	}
	return out
}

func dayStatus(total, failed int) DayStatus {
	switch {
	case total == 0:
		return DayEmpty
	case failed == 0:
		return DayOK
	case 100*float64(total-failed)/float64(total) >= constants.WarnUptimePercent:
		return DayWarn
	default:
		return DayDown
	}
}

// UptimeSummaries доступность за последние N дней, включая сегодняшний
func UptimeSummaries(counts []models.CheckCounts, now time.Time, windows []int) []UptimeSummary {
	today := startOfDay(now)

	out := make([]UptimeSummary, 0, len(windows))
	for _, days := range windows {
		from := today.AddDate(0, 0, -days+1)
		total, failed := 0, 0
		for _, c := range counts {
			if c.Day.Before(from) || c.Day.After(today) {
				continue
			}
			total += c.Total
			failed += c.Failed
		}
		out = append(out, UptimeSummary{
			Days:          days,
			Checks:        total,
			UptimePercent: percent(total-failed, total),
		})
	}
	return out
}

func indexByDay(counts []models.CheckCounts) map[string]models.CheckCounts {
	out := make(map[string]models.CheckCounts, len(counts))
	for _, c := range counts {
		key := c.Day.UTC().Format(time.DateOnly)
		prev := out[key]
		prev.Day = c.Day
		prev.Total += c.Total
		prev.Failed += c.Failed
		out[key] = prev
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return t.UTC().Truncate(constants.Day)
}

func percent(part, total int) *float64 {
	if total == 0 {
		return nil
	}
	v := stats.Round(100*float64(part)/float64(total), 4)
	return &v
}

func rounded(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := stats.Round(*v, 2)
	return &r
}
