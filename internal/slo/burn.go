package slo

import "time"

type BurnState string

const (
	BurnUnknown  BurnState = "unknown"
	BurnHealthy  BurnState = "healthy"
	BurnWarn     BurnState = "warn"
	BurnHigh     BurnState = "high"
	BurnCritical BurnState = "critical"
)

// Thresholds границы состояний скорости сжигания бюджета.
// Должны быть монотонны: Warn <= High <= Critical
type Thresholds struct {
	Warn     float64
	High     float64
	Critical float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Warn: 1, High: 3, Critical: 10}
}

func (t Thresholds) Valid() bool {
	return t.Warn > 0 && t.Warn <= t.High && t.High <= t.Critical
}

// State rate < Warn - healthy, [Warn, High) - warn, [High, Critical] - high, выше - critical
func (t Thresholds) State(rate float64) BurnState {
	switch {
	case rate < t.Warn:
		return BurnHealthy
	case rate < t.High:
		return BurnWarn
	case rate <= t.Critical:
		return BurnHigh
	default:
		return BurnCritical
	}
}

// BurnWindows короткие окна для оценки скорости сжигания
var BurnWindows = []struct {
	Name     string
	Duration time.Duration
}{
	{"1h", time.Hour},
	{"6h", 6 * time.Hour},
	{"24h", 24 * time.Hour},
}

// BurnSnapshot скорость сжигания за окно. Rate nil, если проверок не было
type BurnSnapshot struct {
	Window   string    `json:"window"`
	WindowMs int64     `json:"window_ms"`
	Checks   int       `json:"checks"`
	Failures int       `json:"failures"`
	Rate     *float64  `json:"rate"`
	State    BurnState `json:"state"`
}
