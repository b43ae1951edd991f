package incidents

import (
	"slices"

	"PulseWatch/internal/backend/models"
)

const dayLayout = "2006-01-02"

// Rollup сворачивает инциденты по дням (UTC) там, где неуспешных проверок
// за день больше threshold. Возвращает список для отображения в исходном порядке;
// дневная свертка встает на место первого инцидента дня.
// Порог <= 0 отключает свертку.
func Rollup(incidents []*models.Incident, threshold int) []models.IncidentView {
	type dayKey struct {
		monitorID string
		day       string
	}

	failed := make(map[dayKey]int)
	if threshold > 0 {
		for _, inc := range incidents {
			failed[dayKey{inc.MonitorID, inc.StartedAt.UTC().Format(dayLayout)}] += inc.Samples
		}
	}

	daily := make(map[dayKey]*models.DailyIncident)
	tallies := make(map[dayKey]*causeTally)
	views := make([]models.IncidentView, 0, len(incidents))

	for _, inc := range incidents {
		key := dayKey{inc.MonitorID, inc.StartedAt.UTC().Format(dayLayout)}
		if threshold <= 0 || failed[key] <= threshold {
			views = append(views, models.IncidentView{Kind: "incident", Incident: inc})
			continue
		}

		d, ok := daily[key]
		if !ok {
			d = &models.DailyIncident{
				MonitorID:  inc.MonitorID,
				Day:        key.day,
				StartedAt:  inc.StartedAt,
				EndedAt:    inc.EndedAt,
				ErrorCodes: make(map[models.ErrorCode]int),
			}
			daily[key] = d
			tallies[key] = &causeTally{}
			views = append(views, models.IncidentView{Kind: "daily", Daily: d})
		}
		mergeInto(d, inc)
		tallies[key].add(inc.Cause, inc.Samples)
		d.Cause = tallies[key].top()
	}
	return views
}

func mergeInto(d *models.DailyIncident, inc *models.Incident) {
	if inc.StartedAt.Before(d.StartedAt) {
		d.StartedAt = inc.StartedAt
	}
	switch {
	case inc.EndedAt == nil:
		d.EndedAt = nil
	case d.EndedAt != nil && inc.EndedAt.After(*d.EndedAt):
		end := *inc.EndedAt
		d.EndedAt = &end
	}

	d.IncidentCount++
	d.FailedChecks += inc.Samples
	d.DurationMs += inc.DurationMs
	d.IncidentIDs = append(d.IncidentIDs, inc.ID)
	for code, n := range inc.ErrorCodes {
		d.ErrorCodes[code] += n
	}
	for _, sc := range inc.StatusCodes {
		if !slices.Contains(d.StatusCodes, sc) {
			d.StatusCodes = append(d.StatusCodes, sc)
		}
	}
	slices.Sort(d.StatusCodes)
}
