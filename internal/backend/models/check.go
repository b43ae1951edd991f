package models

import "time"

// ErrorCode классифицирует причину неуспешной проверки. Пустой код - проверка прошла
type ErrorCode string

const (
	ErrorTargetBlocked ErrorCode = "target_blocked"

	ErrorDNS               ErrorCode = "dns_error"
	ErrorTLS               ErrorCode = "tls_error"
	ErrorTimeout           ErrorCode = "timeout"
	ErrorConnectionRefused ErrorCode = "connection_refused"
	ErrorConnectionReset   ErrorCode = "connection_reset"
	ErrorRedirectLimit     ErrorCode = "redirect_limit"
	ErrorConnection        ErrorCode = "connection_error"
	ErrorRequest           ErrorCode = "request_error"

	ErrorStatusMismatch      ErrorCode = "status_mismatch"
	ErrorContentTypeMismatch ErrorCode = "content_type_mismatch"
	ErrorBodyMismatch        ErrorCode = "body_mismatch"
	ErrorBodyRead            ErrorCode = "body_read_error"

	ErrorInternal ErrorCode = "internal_error"
)

// ErrorCategory верхний уровень классификации ошибок
type ErrorCategory string

const (
	CategoryNone            ErrorCategory = ""
	CategoryTargetBlocked   ErrorCategory = "target_blocked"
	CategoryTransportError  ErrorCategory = "transport_error"
	CategoryAssertionFailed ErrorCategory = "assertion_failed"
	CategoryInternalError   ErrorCategory = "internal_error"
)

func (c ErrorCode) Category() ErrorCategory {
	switch c {
	case "":
		return CategoryNone
	case ErrorTargetBlocked:
		return CategoryTargetBlocked
	case ErrorDNS, ErrorTLS, ErrorTimeout, ErrorConnectionRefused, ErrorConnectionReset,
		ErrorRedirectLimit, ErrorConnection, ErrorRequest:
		return CategoryTransportError
	case ErrorStatusMismatch, ErrorContentTypeMismatch, ErrorBodyMismatch, ErrorBodyRead:
		return CategoryAssertionFailed
	default:
		return CategoryInternalError
	}
}

// Check неизменяемый результат одной проверки
type Check struct {
	MonitorID    string    `json:"monitor_id"`
	CheckedAt    time.Time `json:"checked_at"`
	OK           bool      `json:"ok"`
	ResponseMs   int64     `json:"response_ms"`
	StatusCode   *int      `json:"status_code"`
	ErrorCode    ErrorCode `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Valid проверяет инвариант: у успешной проверки нет кода ошибки,
// у неуспешной есть код ответа или код ошибки
func (c *Check) Valid() bool {
	if c.OK {
		return c.ErrorCode == ""
	}
	return c.StatusCode != nil || c.ErrorCode != ""
}

func (c *Check) Status() Status {
	if c.OK {
		return StatusOnline
	}
	return StatusOffline
}

func NewSuccessCheck(monitorID string, at time.Time, responseMs int64, statusCode int) *Check {
	code := statusCode
	return &Check{
		MonitorID:  monitorID,
		CheckedAt:  at,
		OK:         true,
		ResponseMs: responseMs,
		StatusCode: &code,
	}
}

func NewFailedCheck(monitorID string, at time.Time, responseMs int64, code ErrorCode, message string) *Check {
	if code == "" {
		code = ErrorInternal
	}
	return &Check{
		MonitorID:    monitorID,
		CheckedAt:    at,
		OK:           false,
		ResponseMs:   responseMs,
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

// CheckCounts дневные счетчики проверок
type CheckCounts struct {
	Day    time.Time `json:"day"`
	Total  int       `json:"total"`
	Failed int       `json:"failed"`
}
