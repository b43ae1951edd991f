package maintenance

import (
	"errors"
	"testing"
	"time"

	"PulseWatch/internal/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func window(monitorID string, from, to time.Duration) *models.MaintenanceWindow {
	return &models.MaintenanceWindow{
		ID:        monitorID + from.String(),
		MonitorID: monitorID,
		StartsAt:  base.Add(from),
		EndsAt:    base.Add(to),
	}
}

func TestIsExcludedHalfOpen(t *testing.T) {
	s := NewSuppressor([]*models.MaintenanceWindow{window("m1", 0, time.Hour)})

	assert.True(t, s.IsExcluded(base, "m1"))
	assert.True(t, s.IsExcluded(base.Add(59*time.Minute), "m1"))
	assert.False(t, s.IsExcluded(base.Add(time.Hour), "m1"))
	assert.False(t, s.IsExcluded(base.Add(-time.Second), "m1"))
	assert.False(t, s.IsExcluded(base.Add(time.Minute), "m2"))
}

func TestCancelledWindowIsIgnored(t *testing.T) {
	w := window("m1", 0, time.Hour)
	cancelled := base.Add(-time.Hour)
	w.CancelledAt = &cancelled

	s := NewSuppressor([]*models.MaintenanceWindow{w})
	assert.False(t, s.IsExcluded(base.Add(time.Minute), "m1"))
}

func TestOverlapMergesWindows(t *testing.T) {
	s := NewSuppressor([]*models.MaintenanceWindow{
		window("m1", 0, time.Hour),
		window("m1", 30*time.Minute, 90*time.Minute),
		window("m1", 3*time.Hour, 4*time.Hour),
	})

	// 0-90m и 3h-4h без двойного учета пересечения
	assert.Equal(t, 150*time.Minute, s.ExcludedOverlap("m1", base.Add(-time.Hour), base.Add(5*time.Hour)))
	assert.Equal(t, 30*time.Minute, s.ExcludedOverlap("m1", base.Add(time.Hour), base.Add(2*time.Hour)))
	assert.Zero(t, s.ExcludedOverlap("m1", base.Add(2*time.Hour), base.Add(3*time.Hour)))
	assert.Zero(t, s.ExcludedOverlap("m1", base.Add(time.Hour), base))
	assert.True(t, s.IsExcluded(base.Add(80*time.Minute), "m1"))
}

func TestFilter(t *testing.T) {
	s := NewSuppressor([]*models.MaintenanceWindow{window("m1", 0, time.Hour)})

	checks := []*models.Check{
		models.NewSuccessCheck("m1", base.Add(-time.Minute), 1, 200),
		models.NewFailedCheck("m1", base.Add(time.Minute), 1, models.ErrorTimeout, "t"),
		models.NewSuccessCheck("m1", base.Add(time.Hour), 1, 200),
	}
	kept := s.Filter(checks)
	require.Len(t, kept, 2)
	assert.True(t, kept[0].OK)
	assert.True(t, kept[1].OK)

	var nilSuppressor *Suppressor
	assert.Len(t, nilSuppressor.Filter(checks), 3)
	assert.False(t, nilSuppressor.IsExcluded(base, "m1"))
}

func TestPolicyCheck(t *testing.T) {
	p := DefaultPolicy()
	now := base

	tests := []struct {
		name       string
		start, end time.Time
		code       string
	}{
		{"valid", now.Add(time.Hour), now.Add(2 * time.Hour), ""},
		{"starting now within grace", now.Add(-time.Minute), now.Add(time.Hour), ""},
		{"end before start", now.Add(2 * time.Hour), now.Add(time.Hour), CodeEndBeforeStart},
		{"end equals start", now.Add(time.Hour), now.Add(time.Hour), CodeEndBeforeStart},
		{"in past", now.Add(-time.Hour), now.Add(time.Hour), CodeStartInPast},
		{"too far ahead", now.Add(100 * 24 * time.Hour), now.Add(100*24*time.Hour + time.Hour), CodeStartTooFar},
		{"too short", now.Add(time.Hour), now.Add(time.Hour + time.Minute), CodeDurationTooShort},
		{"too long", now.Add(time.Hour), now.Add(time.Hour + 8*24*time.Hour), CodeDurationTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Check(tt.start, tt.end, now)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var rule *RuleError
			require.True(t, errors.As(err, &rule))
			assert.Equal(t, tt.code, rule.Code)
		})
	}
}

func TestWindowStatus(t *testing.T) {
	w := window("m1", time.Hour, 2*time.Hour)

	assert.Equal(t, models.MaintenanceScheduled, w.StatusAt(base))
	assert.Equal(t, models.MaintenanceActive, w.StatusAt(base.Add(time.Hour)))
	assert.Equal(t, models.MaintenanceCompleted, w.StatusAt(base.Add(2*time.Hour)))

	cancelled := base
	w.CancelledAt = &cancelled
	assert.Equal(t, models.MaintenanceCancelled, w.StatusAt(base.Add(90*time.Minute)))
}
