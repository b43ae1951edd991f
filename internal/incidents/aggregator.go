package incidents

import (
	"slices"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/pkg/uuidutil"
)

// Exclusions фильтр окон обслуживания. Строится до агрегации и
// передается сюда и в расчет SLO
type Exclusions interface {
	IsExcluded(ts time.Time, monitorID string) bool
	ExcludedOverlap(monitorID string, from, to time.Time) time.Duration
}

type noExclusions struct{}

func (noExclusions) IsExcluded(time.Time, string) bool                           { return false }
func (noExclusions) ExcludedOverlap(string, time.Time, time.Time) time.Duration { return 0 }

// Build собирает инциденты монитора из проверок, отсортированных по времени.
// Проверки внутри окон обслуживания вырезаются из серии целиком.
// Инцидент заканчивается на первой успешной проверке после серии,
// незакрытый инцидент считается длящимся до now.
func Build(monitorID string, checks []*models.Check, ex Exclusions, now time.Time) []*models.Incident {
	if ex == nil {
		ex = noExclusions{}
	}

	var (
		result []*models.Incident
		cur    *models.Incident
		tally  causeTally
	)

	for _, c := range checks {
		if ex.IsExcluded(c.CheckedAt, monitorID) {
			continue
		}

		if c.OK {
			if cur != nil {
				end := c.CheckedAt
				cur.EndedAt = &end
				finish(cur, &tally, end, ex)
				result = append(result, cur)
				cur, tally = nil, causeTally{}
			}
			continue
		}

		if cur == nil {
			cur = &models.Incident{
				ID:         uuidutil.IncidentKey(monitorID, c.CheckedAt),
				MonitorID:  monitorID,
				StartedAt:  c.CheckedAt,
				ErrorCodes: make(map[models.ErrorCode]int),
			}
		}
		cur.Samples++
		if c.ErrorCode != "" {
			cur.ErrorCodes[c.ErrorCode]++
		}
		if c.StatusCode != nil && !slices.Contains(cur.StatusCodes, *c.StatusCode) {
			cur.StatusCodes = append(cur.StatusCodes, *c.StatusCode)
		}
		if c.ErrorMessage != "" {
			cur.LastError = c.ErrorMessage
		}
		tally.add(ClassifyCheck(c), 1)
	}

	if cur != nil {
		end := now
		if end.Before(cur.StartedAt) {
			end = cur.StartedAt
		}
		finish(cur, &tally, end, ex)
		result = append(result, cur)
	}
	return result
}

func finish(inc *models.Incident, tally *causeTally, end time.Time, ex Exclusions) {
	slices.Sort(inc.StatusCodes)
	inc.Cause = tally.top()

	duration := end.Sub(inc.StartedAt)
	downtime := duration - ex.ExcludedOverlap(inc.MonitorID, inc.StartedAt, end)
	if downtime < 0 {
		downtime = 0
	}
	inc.DurationMs = duration.Milliseconds()
	inc.DowntimeMs = downtime.Milliseconds()
}

// MarkHidden выставляет Hidden для инцидентов, попавших в скрытые диапазоны
func MarkHidden(incidents []*models.Incident, hidden []*models.HiddenIncident) {
	for _, inc := range incidents {
		inc.Hidden = false
		for _, h := range hidden {
			if h.Matches(inc.MonitorID, inc.StartedAt, inc.EndedAt) {
				inc.Hidden = true
				break
			}
		}
	}
}

// DowntimeWithin суммарный простой инцидентов внутри [from, to) за вычетом обслуживания
func DowntimeWithin(incidents []*models.Incident, ex Exclusions, from, to, now time.Time) time.Duration {
	if ex == nil {
		ex = noExclusions{}
	}

	var total time.Duration
	for _, inc := range incidents {
		start, end := inc.StartedAt, now
		if inc.EndedAt != nil {
			end = *inc.EndedAt
		}
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if !end.After(start) {
			continue
		}
		total += end.Sub(start) - ex.ExcludedOverlap(inc.MonitorID, start, end)
	}
	if total < 0 {
		return 0
	}
	return total
}
