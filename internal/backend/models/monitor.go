package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// DisplayStatus статус для отображения. Заблокированная цель
// показывается отдельно от недоступной
type DisplayStatus string

const (
	DisplayUnknown DisplayStatus = "unknown"
	DisplayOnline  DisplayStatus = "online"
	DisplayOffline DisplayStatus = "offline"
	DisplayPaused  DisplayStatus = "paused"
	DisplayBlocked DisplayStatus = "blocked"
)

type Monitor struct {
	ID         string          `json:"id"`
	Owner      string          `json:"owner"`
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	IntervalMs int64           `json:"interval_ms"`
	Paused     bool            `json:"paused"`
	Assertions AssertionConfig `json:"assertions"`

	LastStatus     Status     `json:"last_status"`
	LastCheckedAt  *time.Time `json:"last_checked_at"`
	LastResponseMs *int64     `json:"last_response_ms"`
	LastErrorCode  ErrorCode  `json:"last_error_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Monitor) Interval() time.Duration {
	return time.Duration(m.IntervalMs) * time.Millisecond
}

// IsDue пора ли проверять монитор
func (m *Monitor) IsDue(now time.Time) bool {
	if m.Paused {
		return false
	}
	if m.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*m.LastCheckedAt) >= m.Interval()
}

func (m *Monitor) DisplayStatus() DisplayStatus {
	switch {
	case m.Paused:
		return DisplayPaused
	case m.LastErrorCode == ErrorTargetBlocked:
		return DisplayBlocked
	case m.LastStatus == StatusOnline:
		return DisplayOnline
	case m.LastStatus == StatusOffline:
		return DisplayOffline
	default:
		return DisplayUnknown
	}
}

// Clone копия для выдачи наружу из хранилища
func (m *Monitor) Clone() *Monitor {
	c := *m
	if m.LastCheckedAt != nil {
		t := *m.LastCheckedAt
		c.LastCheckedAt = &t
	}
	if m.LastResponseMs != nil {
		v := *m.LastResponseMs
		c.LastResponseMs = &v
	}
	return &c
}

// AssertionConfig дополнительные правила, только сужают понятие успешного ответа
type AssertionConfig struct {
	Enabled             bool   `json:"enabled"`
	AcceptedStatusCodes string `json:"accepted_status_codes,omitempty"` // e.g. "200-299,301"
	ContentType         string `json:"content_type,omitempty"`
	BodyContains        string `json:"body_contains,omitempty"`
	FollowRedirects     bool   `json:"follow_redirects"`
	MaxRedirects        int    `json:"max_redirects"`
	TimeoutMs           int64  `json:"timeout_ms,omitempty"`
}

func (a AssertionConfig) Validate() error {
	ranges, err := ParseStatusRanges(a.AcceptedStatusCodes)
	if err != nil {
		return err
	}
	// Коды только сужают правило по умолчанию
	for _, r := range ranges {
		if !r.Within(DefaultStatusRanges) {
			return fmt.Errorf("status range %s is outside %s", r, FormatStatusRanges(DefaultStatusRanges))
		}
	}
	if a.MaxRedirects < 0 || a.MaxRedirects > 20 {
		return fmt.Errorf("max_redirects must be between 0 and 20")
	}
	if a.TimeoutMs < 0 || a.TimeoutMs > 60_000 {
		return fmt.Errorf("timeout_ms must be between 0 and 60000")
	}
	return nil
}

type StatusRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r StatusRange) Contains(code int) bool {
	return code >= r.Min && code <= r.Max
}

// Within целиком ли диапазон лежит внутри одного из outer
func (r StatusRange) Within(outer []StatusRange) bool {
	for _, o := range outer {
		if r.Min >= o.Min && r.Max <= o.Max {
			return true
		}
	}
	return false
}

func (r StatusRange) String() string {
	if r.Min == r.Max {
		return strconv.Itoa(r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// DefaultStatusRanges 2xx или 3xx
var DefaultStatusRanges = []StatusRange{{Min: 200, Max: 399}}

// ParseStatusRanges разбирает строку вида "200-299,301". Пустая строка - nil
func ParseStatusRanges(raw string) ([]StatusRange, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var ranges []StatusRange
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		min, err := parseStatusCode(lo)
		if err != nil {
			return nil, err
		}
		max := min
		if isRange {
			if max, err = parseStatusCode(hi); err != nil {
				return nil, err
			}
		}
		if max < min {
			return nil, fmt.Errorf("invalid status range %q", part)
		}
		ranges = append(ranges, StatusRange{Min: min, Max: max})
	}
	return ranges, nil
}

func parseStatusCode(s string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || code < 100 || code > 599 {
		return 0, fmt.Errorf("invalid status code %q", s)
	}
	return code, nil
}

func FormatStatusRanges(ranges []StatusRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
