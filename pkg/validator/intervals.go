package validator

import "time"

// AllowedIntervals допустимые интервалы проверки
var AllowedIntervals = []time.Duration{
	30 * time.Second,
	time.Minute,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
}

func ValidateInterval(intervalMs int64) bool {
	interval := time.Duration(intervalMs) * time.Millisecond
	for _, allowed := range AllowedIntervals {
		if interval == allowed {
			return true
		}
	}
	return false
}

func AllowedIntervalsMs() []int64 {
	out := make([]int64, len(AllowedIntervals))
	for i, interval := range AllowedIntervals {
		out[i] = interval.Milliseconds()
	}
	return out
}
