package models

import "time"

// Cause грубая причина инцидента
type Cause string

const (
	CauseDNS               Cause = "dns"
	CauseTLS               Cause = "tls"
	CauseTimeout           Cause = "timeout"
	CauseConnectionRefused Cause = "connection_refused"
	CauseTargetBlocked     Cause = "target_blocked"
	CauseAssertion         Cause = "assertion"
	CauseHTTP5xx           Cause = "http_5xx"
	CauseHTTP4xx           Cause = "http_4xx"
	CauseUnknown           Cause = "unknown"
)

// Incident максимальная серия подряд идущих неуспешных проверок
type Incident struct {
	ID          string            `json:"id"`
	MonitorID   string            `json:"monitor_id"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     *time.Time        `json:"ended_at"`
	DurationMs  int64             `json:"duration_ms"`
	DowntimeMs  int64             `json:"downtime_ms"`
	Samples     int               `json:"samples"`
	ErrorCodes  map[ErrorCode]int `json:"error_codes"`
	StatusCodes []int             `json:"status_codes"`
	Cause       Cause             `json:"cause"`
	LastError   string            `json:"last_error,omitempty"`
	Hidden      bool              `json:"hidden"`
}

func (i *Incident) Ongoing() bool {
	return i.EndedAt == nil
}

// DailyIncident свертка инцидентов монитора за календарный день (UTC)
type DailyIncident struct {
	MonitorID     string            `json:"monitor_id"`
	Day           string            `json:"day"` // 2006-01-02
	StartedAt     time.Time         `json:"started_at"`
	EndedAt       *time.Time        `json:"ended_at"`
	IncidentCount int               `json:"incident_count"`
	FailedChecks  int               `json:"failed_checks"`
	DurationMs    int64             `json:"duration_ms"`
	ErrorCodes    map[ErrorCode]int `json:"error_codes"`
	StatusCodes   []int             `json:"status_codes"`
	Cause         Cause             `json:"cause"`
	IncidentIDs   []string          `json:"incident_ids"`
}

// IncidentView элемент списка для отображения: либо инцидент, либо дневная свертка
type IncidentView struct {
	Kind     string         `json:"kind"` // incident | daily
	Incident *Incident      `json:"incident,omitempty"`
	Daily    *DailyIncident `json:"daily,omitempty"`
}

// HiddenIncident скрывает диапазон инцидентов из списка по умолчанию.
// На расчет доступности не влияет.
type HiddenIncident struct {
	ID        string     `json:"id"`
	MonitorID string     `json:"monitor_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Reason    string     `json:"reason"`
	HiddenBy  string     `json:"hidden_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Matches проверяет, что инцидент [start, end] лежит внутри скрытого диапазона
func (h *HiddenIncident) Matches(monitorID string, start time.Time, end *time.Time) bool {
	if h.MonitorID != monitorID || start.Before(h.StartedAt) {
		return false
	}
	if h.EndedAt == nil {
		return true
	}
	if end == nil {
		return false
	}
	return !end.After(*h.EndedAt)
}
