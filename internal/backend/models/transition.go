package models

import "time"

// StatusTransition смена статуса монитора online <-> offline.
// Единственный триггер для оповещений
type StatusTransition struct {
	MonitorID    string    `json:"monitor_id"`
	Owner        string    `json:"owner"`
	URL          string    `json:"url"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	At           time.Time `json:"at"`
	StatusCode   *int      `json:"status_code,omitempty"`
	ErrorCode    ErrorCode `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

func NewStatusTransition(m *Monitor, from Status, check *Check) *StatusTransition {
	return &StatusTransition{
		MonitorID:    m.ID,
		Owner:        m.Owner,
		URL:          m.URL,
		From:         from,
		To:           check.Status(),
		At:           check.CheckedAt,
		StatusCode:   check.StatusCode,
		ErrorCode:    check.ErrorCode,
		ErrorMessage: check.ErrorMessage,
	}
}
