package incidents

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"PulseWatch/internal/backend/models"
)

type SortField string

const (
	SortStartedAt SortField = "started_at"
	SortDuration  SortField = "duration"
	SortSamples   SortField = "samples"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case "":
		return SortStartedAt, nil
	case SortStartedAt, SortDuration, SortSamples:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported sort field %q", s)
	}
}

func ParseOrder(s string) (Order, error) {
	switch o := Order(s); o {
	case "":
		return OrderDesc, nil
	case OrderAsc, OrderDesc:
		return o, nil
	default:
		return "", fmt.Errorf("unsupported order %q", s)
	}
}

// Query параметры выдачи списка
type Query struct {
	Sort          SortField
	Order         Order
	Limit         int
	IncludeHidden bool
}

// Listing результат: сырые инциденты и список для отображения со свертками
type Listing struct {
	Incidents []*models.Incident    `json:"incidents"`
	Display   []models.IncidentView `json:"display"`
	Total     int                   `json:"total"`
	Hidden    int                   `json:"hidden"`
}

// Aggregator собирает и выдает инциденты по настройкам свертки
type Aggregator struct {
	dailyThreshold int
}

func NewAggregator(dailyThreshold int) *Aggregator {
	return &Aggregator{dailyThreshold: dailyThreshold}
}

func (a *Aggregator) Build(monitorID string, checks []*models.Check, ex Exclusions, now time.Time) []*models.Incident {
	return Build(monitorID, checks, ex, now)
}

// List применяет скрытие, сортировку и лимит. Скрытые инциденты по умолчанию
// не выдаются, но на остальные расчеты это не влияет
func (a *Aggregator) List(incidents []*models.Incident, hidden []*models.HiddenIncident, q Query) Listing {
	MarkHidden(incidents, hidden)

	visible := make([]*models.Incident, 0, len(incidents))
	hiddenCount := 0
	for _, inc := range incidents {
		if inc.Hidden {
			hiddenCount++
			if !q.IncludeHidden {
				continue
			}
		}
		visible = append(visible, inc)
	}

	sortIncidents(visible, q.Sort, q.Order)
	display := Rollup(visible, a.dailyThreshold)
	total := len(visible)

	if q.Limit > 0 {
		if len(visible) > q.Limit {
			visible = visible[:q.Limit]
		}
		if len(display) > q.Limit {
			display = display[:q.Limit]
		}
	}

	return Listing{
		Incidents: visible,
		Display:   display,
		Total:     total,
		Hidden:    hiddenCount,
	}
}

func sortIncidents(incidents []*models.Incident, field SortField, order Order) {
	key := func(inc *models.Incident) int64 {
		switch field {
		case SortDuration:
			return inc.DurationMs
		case SortSamples:
			return int64(inc.Samples)
		default:
			return inc.StartedAt.UnixMilli()
		}
	}

	slices.SortStableFunc(incidents, func(a, b *models.Incident) int {
		c := cmp.Compare(key(a), key(b))
		if c == 0 {
			c = a.StartedAt.Compare(b.StartedAt)
		}
		if order == OrderAsc {
			return c
		}
		return -c
	})
}
