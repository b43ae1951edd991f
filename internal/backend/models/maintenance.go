package models

import "time"

type MaintenanceStatus string

const (
	MaintenanceScheduled MaintenanceStatus = "scheduled"
	MaintenanceActive    MaintenanceStatus = "active"
	MaintenanceCompleted MaintenanceStatus = "completed"
	MaintenanceCancelled MaintenanceStatus = "cancelled"
)

type MaintenanceWindow struct {
	ID          string     `json:"id"`
	MonitorID   string     `json:"monitor_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StatusAt вычисляет статус окна относительно now
func (w *MaintenanceWindow) StatusAt(now time.Time) MaintenanceStatus {
	switch {
	case w.CancelledAt != nil:
		return MaintenanceCancelled
	case now.Before(w.StartsAt):
		return MaintenanceScheduled
	case now.Before(w.EndsAt):
		return MaintenanceActive
	default:
		return MaintenanceCompleted
	}
}

// Covers попадает ли ts в [start, end) неотмененного окна
func (w *MaintenanceWindow) Covers(ts time.Time) bool {
	if w.CancelledAt != nil {
		return false
	}
	return !ts.Before(w.StartsAt) && ts.Before(w.EndsAt)
}

func (w *MaintenanceWindow) Duration() time.Duration {
	return w.EndsAt.Sub(w.StartsAt)
}
