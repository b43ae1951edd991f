package maintenance

import (
	"fmt"
	"time"
)

// RuleError нарушение правил создания окна, Code стабилен для клиентов
type RuleError struct {
	Code    string
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

const (
	CodeEndBeforeStart   = "end_before_start"
	CodeStartInPast      = "start_in_past"
	CodeStartTooFar      = "start_too_far"
	CodeDurationTooShort = "duration_too_short"
	CodeDurationTooLong  = "duration_too_long"
)

// Policy ограничения на окна обслуживания
type Policy struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	// Насколько заранее можно планировать окно
	MaxLeadTime time.Duration
	// Допуск для начала "прямо сейчас" с учетом задержки клиента
	PastGrace time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MinDuration: 5 * time.Minute,
		MaxDuration: 7 * 24 * time.Hour,
		MaxLeadTime: 90 * 24 * time.Hour,
		PastGrace:   5 * time.Minute,
	}
}

// Check проверяет время окна относительно now
func (p Policy) Check(start, end, now time.Time) error {
	if !end.After(start) {
		return &RuleError{Code: CodeEndBeforeStart, Message: "end must be after start"}
	}

	if start.Before(now.Add(-p.PastGrace)) {
		return &RuleError{Code: CodeStartInPast, Message: "start must not be in the past"}
	}

	if p.MaxLeadTime > 0 && start.After(now.Add(p.MaxLeadTime)) {
		return &RuleError{
			Code:    CodeStartTooFar,
			Message: fmt.Sprintf("start must be within %s from now", p.MaxLeadTime),
		}
	}

	duration := end.Sub(start)
	if duration < p.MinDuration {
		return &RuleError{
			Code:    CodeDurationTooShort,
			Message: fmt.Sprintf("duration must be at least %s", p.MinDuration),
		}
	}
	if p.MaxDuration > 0 && duration > p.MaxDuration {
		return &RuleError{
			Code:    CodeDurationTooLong,
			Message: fmt.Sprintf("duration must be at most %s", p.MaxDuration),
		}
	}
	return nil
}
