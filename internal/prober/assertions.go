package prober

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"PulseWatch/internal/backend/models"
)

type rules struct {
	acceptedStatus []models.StatusRange
	contentType    string
	bodyContains   string
}

// compileRules без включенных проверок действует только правило "2xx или 3xx".
// Настроенные коды действуют только внутри этого правила.
func compileRules(cfg models.AssertionConfig) (rules, error) {
	r := rules{acceptedStatus: models.DefaultStatusRanges}
	if !cfg.Enabled {
		return r, nil
	}

	ranges, err := models.ParseStatusRanges(cfg.AcceptedStatusCodes)
	if err != nil {
		return r, err
	}
	if len(ranges) > 0 {
		r.acceptedStatus = ranges
	}
	r.contentType = strings.TrimSpace(cfg.ContentType)
	r.bodyContains = cfg.BodyContains
	return r, nil
}

type ruleFailure struct {
	code    models.ErrorCode
	message string
}

// evaluate проверяет правила по порядку: статус, content-type, тело.
// Проверяются все правила, код ошибки берется у первого нарушенного.
func (r rules) evaluate(resp *http.Response, maxBody int64) []ruleFailure {
	var failures []ruleFailure

	if !r.statusAccepted(resp.StatusCode) {
		failures = append(failures, ruleFailure{
			code:    models.ErrorStatusMismatch,
			message: fmt.Sprintf("status %d not in %s", resp.StatusCode, models.FormatStatusRanges(r.acceptedStatus)),
		})
	}

	if r.contentType != "" {
		got := resp.Header.Get("Content-Type")
		if !strings.Contains(strings.ToLower(got), strings.ToLower(r.contentType)) {
			failures = append(failures, ruleFailure{
				code:    models.ErrorContentTypeMismatch,
				message: fmt.Sprintf("content-type %q does not contain %q", got, r.contentType),
			})
		}
	}

	if r.bodyContains != "" {
		// Читаем не больше maxBody байт
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		switch {
		case err != nil:
			// Зависшее тело после заголовков - это таймаут транспорта, а не провал проверки
			code := models.ErrorBodyRead
			if transport := classifyTransportError(err); transport == models.ErrorTimeout {
				code = transport
			}
			failures = append(failures, ruleFailure{
				code:    code,
				message: fmt.Sprintf("failed to read body: %v", err),
			})
		case !bytes.Contains(body, []byte(r.bodyContains)):
			failures = append(failures, ruleFailure{
				code:    models.ErrorBodyMismatch,
				message: fmt.Sprintf("body (first %d bytes) does not contain %q", maxBody, r.bodyContains),
			})
		}
	}

	return failures
}

func (r rules) statusAccepted(code int) bool {
	if !inRanges(models.DefaultStatusRanges, code) {
		return false
	}
	return inRanges(r.acceptedStatus, code)
}

func inRanges(ranges []models.StatusRange, code int) bool {
	for _, sr := range ranges {
		if sr.Contains(code) {
			return true
		}
	}
	return false
}

// primaryFailure код проверки берется у первого нарушенного правила,
// но таймаут транспорта важнее провала assertion
func primaryFailure(failures []ruleFailure) ruleFailure {
	for _, f := range failures {
		if f.code.Category() == models.CategoryTransportError {
			return f
		}
	}
	return failures[0]
}

func joinFailures(failures []ruleFailure) string {
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = string(f.code) + ": " + f.message
	}
	return strings.Join(parts, "; ")
}
