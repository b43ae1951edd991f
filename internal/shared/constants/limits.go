package constants

import "time"

const (
	// MaxBodyBytes верхняя граница чтения тела ответа при проверке
	MaxBodyBytes = 64 * 1024

	ResponseStatsWindow = 24 * time.Hour
	HeatmapDays         = 365

	// WarnUptimePercent день с падениями, но не ниже этого порога, отображается как warn
	WarnUptimePercent = 95.0

	Day = 24 * time.Hour
)
