package maintenance

import (
	"sort"
	"time"

	"PulseWatch/internal/backend/models"
)

type span struct {
	start, end time.Time
}

// Suppressor отвечает на вопрос "исключена ли проверка": строится один раз из
// окон обслуживания и передается фильтром в агрегатор инцидентов и SLO.
// Отмененные окна не учитываются, интервал окна [start, end).
type Suppressor struct {
	spans map[string][]span
}

func NewSuppressor(windows []*models.MaintenanceWindow) *Suppressor {
	byMonitor := make(map[string][]span)
	for _, w := range windows {
		if w.CancelledAt != nil || !w.EndsAt.After(w.StartsAt) {
			continue
		}
		byMonitor[w.MonitorID] = append(byMonitor[w.MonitorID], span{start: w.StartsAt, end: w.EndsAt})
	}

	for id, spans := range byMonitor {
		byMonitor[id] = merge(spans)
	}
	return &Suppressor{spans: byMonitor}
}

// merge объединяет пересекающиеся интервалы
func merge(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	out := spans[:0]
	for _, s := range spans {
		if n := len(out); n > 0 && !s.start.After(out[n-1].end) {
			if s.end.After(out[n-1].end) {
				out[n-1].end = s.end
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// IsExcluded попадает ли момент ts в окно обслуживания монитора
func (s *Suppressor) IsExcluded(ts time.Time, monitorID string) bool {
	if s == nil {
		return false
	}
	spans := s.spans[monitorID]
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end.After(ts) })
	return i < len(spans) && !ts.Before(spans[i].start)
}

// ExcludedOverlap сколько времени из [from, to) покрыто окнами обслуживания
func (s *Suppressor) ExcludedOverlap(monitorID string, from, to time.Time) time.Duration {
	if s == nil || !to.After(from) {
		return 0
	}

	var total time.Duration
	for _, sp := range s.spans[monitorID] {
		start, end := sp.start, sp.end
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if end.After(start) {
			total += end.Sub(start)
		}
	}
	return total
}

// Filter проверки вне окон обслуживания
func (s *Suppressor) Filter(checks []*models.Check) []*models.Check {
	if s == nil {
		return checks
	}
	out := make([]*models.Check, 0, len(checks))
	for _, c := range checks {
		if !s.IsExcluded(c.CheckedAt, c.MonitorID) {
			out = append(out, c)
		}
	}
	return out
}
