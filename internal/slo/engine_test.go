package slo

import (
	"testing"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/incidents"
	"PulseWatch/internal/maintenance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func config(target float64, days int) *models.SLOConfig {
	return &models.SLOConfig{MonitorID: "m1", Enabled: true, TargetPercent: target, WindowDays: days}
}

// series проверки раз в минуту за последние n минут, failing решает, упала ли i-я
func series(n int, failing func(i int) bool) []*models.Check {
	checks := make([]*models.Check, 0, n)
	for i := n; i > 0; i-- {
		ts := now.Add(-time.Duration(i) * time.Minute)
		if failing(i) {
			checks = append(checks, models.NewFailedCheck("m1", ts, 100, models.ErrorTimeout, "timeout"))
		} else {
			checks = append(checks, models.NewSuccessCheck("m1", ts, 100, 200))
		}
	}
	return checks
}

func TestThresholdStates(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, BurnHealthy, th.State(0))
	assert.Equal(t, BurnHealthy, th.State(0.99))
	assert.Equal(t, BurnWarn, th.State(1))
	assert.Equal(t, BurnWarn, th.State(2.9))
	assert.Equal(t, BurnHigh, th.State(3))
	assert.Equal(t, BurnHigh, th.State(10))
	assert.Equal(t, BurnCritical, th.State(10.5))

	assert.False(t, Thresholds{Warn: 5, High: 3, Critical: 10}.Valid())
	assert.Equal(t, DefaultThresholds(), NewEngine(Thresholds{}).Thresholds())
}

func TestComputeBudgetSumsToHundred(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	cases := []func(i int) bool{
		func(i int) bool { return false },
		func(i int) bool { return i%10 == 0 },
		func(i int) bool { return i < 100 },
		func(i int) bool { return true },
	}

	for _, failing := range cases {
		checks := series(24*60, failing)
		list := incidents.Build("m1", checks, nil, now)
		s := engine.Compute(config(99.9, 30), checks, list, nil, now)

		require.NotNil(t, s.UptimePercent)
		assert.InDelta(t, 100, s.ConsumedBudgetPercent+s.RemainingBudgetPercent, 1e-9)
		assert.GreaterOrEqual(t, s.ConsumedBudgetPercent, 0.0)
		assert.LessOrEqual(t, s.ConsumedBudgetPercent, 100.0)
	}
}

func TestComputeValues(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	// 10 упавших проверок подряд из 1440 за сутки
	checks := series(24*60, func(i int) bool { return i > 100 && i <= 110 })
	list := incidents.Build("m1", checks, nil, now)
	require.Len(t, list, 1)

	s := engine.Compute(config(99, 1), checks, list, nil, now)

	assert.Equal(t, 1440, s.Checks)
	assert.Equal(t, 1, s.Incidents)
	require.NotNil(t, s.UptimePercent)
	assert.InDelta(t, 100*1430.0/1440.0, *s.UptimePercent, 1e-3)

	// 1% от суток = 864000 мс, простой 10 минут
	assert.Equal(t, int64(864000), s.ErrorBudgetMs)
	assert.Equal(t, int64(600000), s.ConsumedDowntimeMs)
	assert.InDelta(t, 69.4444, s.ConsumedBudgetPercent, 1e-3)
	assert.Equal(t, int64(264000), s.RemainingDowntimeMs)

	require.Len(t, s.BurnRates, 3)
	assert.Equal(t, "1h", s.BurnRates[0].Window)
	require.NotNil(t, s.BurnRates[0].Rate)
	assert.Zero(t, *s.BurnRates[0].Rate)
	assert.Equal(t, BurnHealthy, s.BurnRates[0].State)

	// 10 из 360 за 6 часов: 2.78% при допустимом 1%
	assert.Equal(t, 360, s.BurnRates[1].Checks)
	assert.Equal(t, 10, s.BurnRates[1].Failures)
	require.NotNil(t, s.BurnRates[1].Rate)
	assert.InDelta(t, 2.7778, *s.BurnRates[1].Rate, 1e-3)
	assert.Equal(t, BurnWarn, s.BurnRates[1].State)
}

func TestBurnRateNilWithoutChecks(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	old := []*models.Check{
		models.NewFailedCheck("m1", now.Add(-48*time.Hour), 100, models.ErrorTimeout, "timeout"),
	}
	s := engine.Compute(config(99.9, 30), old, incidents.Build("m1", old, nil, now), nil, now)

	for _, b := range s.BurnRates {
		assert.Nil(t, b.Rate, b.Window)
		assert.Equal(t, BurnUnknown, b.State)
		assert.Zero(t, b.Checks)
	}
	require.NotNil(t, s.UptimePercent)
	assert.Zero(t, *s.UptimePercent)

	empty := engine.Compute(config(99.9, 30), nil, nil, nil, now)
	assert.Nil(t, empty.UptimePercent)
	assert.InDelta(t, 100, empty.RemainingBudgetPercent, 1e-9)
}

func TestMaintenanceExcludedFromSLO(t *testing.T) {
	engine := NewEngine(DefaultThresholds())

	checks := series(120, func(i int) bool { return i <= 30 })
	sup := maintenance.NewSuppressor([]*models.MaintenanceWindow{{
		MonitorID: "m1",
		StartsAt:  now.Add(-time.Hour),
		EndsAt:    now,
	}})

	list := incidents.Build("m1", checks, sup, now)
	assert.Empty(t, list)

	s := engine.Compute(config(99.9, 1), checks, list, sup, now)
	assert.Equal(t, 60, s.Checks)
	require.NotNil(t, s.UptimePercent)
	assert.Equal(t, 100.0, *s.UptimePercent)
	assert.Zero(t, s.ConsumedDowntimeMs)
}

func TestHidingDoesNotChangeUptime(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	agg := incidents.NewAggregator(0)

	checks := series(600, func(i int) bool { return i > 200 && i <= 230 })
	list := agg.Build("m1", checks, nil, now)
	require.Len(t, list, 1)

	before := engine.Compute(config(99.9, 7), checks, list, nil, now)

	hidden := []*models.HiddenIncident{{MonitorID: "m1", StartedAt: list[0].StartedAt, Reason: "noise"}}
	listing := agg.List(list, hidden, incidents.Query{})
	assert.Empty(t, listing.Incidents)
	assert.True(t, list[0].Hidden)

	after := engine.Compute(config(99.9, 7), checks, list, nil, now)
	assert.Equal(t, before.UptimePercent, after.UptimePercent)
	assert.Equal(t, before.ConsumedDowntimeMs, after.ConsumedDowntimeMs)
}

func TestDisabledSLO(t *testing.T) {
	cfg := config(99.9, 30)
	cfg.Enabled = false

	s := NewEngine(DefaultThresholds()).Compute(cfg, series(10, func(int) bool { return false }), nil, nil, now)
	assert.False(t, s.Enabled)
	assert.Nil(t, s.BurnRates)
	require.NotNil(t, s.UptimePercent)
	assert.Equal(t, 100.0, *s.UptimePercent)
}
