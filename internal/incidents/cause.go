package incidents

import (
	"strings"

	"PulseWatch/internal/backend/models"
)

// Коды ошибок, однозначно указывающие на причину
var explicitCauses = map[models.ErrorCode]models.Cause{
	models.ErrorDNS:                 models.CauseDNS,
	models.ErrorTLS:                 models.CauseTLS,
	models.ErrorTimeout:             models.CauseTimeout,
	models.ErrorConnectionRefused:   models.CauseConnectionRefused,
	models.ErrorTargetBlocked:       models.CauseTargetBlocked,
	models.ErrorContentTypeMismatch: models.CauseAssertion,
	models.ErrorBodyMismatch:        models.CauseAssertion,
}

var messageCauses = []struct {
	cause    models.Cause
	patterns []string
}{
	{models.CauseDNS, []string{"no such host", "dns", "name resolution"}},
	{models.CauseTLS, []string{"tls", "x509", "certificate", "handshake"}},
	{models.CauseTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{models.CauseConnectionRefused, []string{"connection refused", "econnrefused"}},
}

// ClassifyCheck причина одной неуспешной проверки. Приоритет: явный код ошибки,
// затем код ответа, затем текст сообщения
func ClassifyCheck(c *models.Check) models.Cause {
	if cause, ok := explicitCauses[c.ErrorCode]; ok {
		return cause
	}

	if c.StatusCode != nil {
		switch code := *c.StatusCode; {
		case code >= 500 && code <= 599:
			return models.CauseHTTP5xx
		case code >= 400 && code <= 499:
			return models.CauseHTTP4xx
		}
	}

	if c.ErrorCode == models.ErrorStatusMismatch {
		return models.CauseAssertion
	}

	message := strings.ToLower(c.ErrorMessage)
	for _, mc := range messageCauses {
		for _, p := range mc.patterns {
			if strings.Contains(message, p) {
				return mc.cause
			}
		}
	}
	return models.CauseUnknown
}

// causeTally считает причины, при равенстве побеждает встреченная первой
type causeTally struct {
	counts map[models.Cause]int
	order  []models.Cause
}

func (t *causeTally) add(cause models.Cause, n int) {
	if t.counts == nil {
		t.counts = make(map[models.Cause]int)
	}
	if _, seen := t.counts[cause]; !seen {
		t.order = append(t.order, cause)
	}
	t.counts[cause] += n
}

func (t *causeTally) top() models.Cause {
	best := models.CauseUnknown
	bestCount := 0
	for _, c := range t.order {
		if t.counts[c] > bestCount {
			best, bestCount = c, t.counts[c]
		}
	}
	return best
}
