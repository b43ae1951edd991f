package models

import "time"

type SLOConfig struct {
	MonitorID     string    `json:"monitor_id"`
	Enabled       bool      `json:"enabled"`
	TargetPercent float64   `json:"target_percent"`
	WindowDays    int       `json:"window_days"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (c *SLOConfig) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}
