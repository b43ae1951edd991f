package storage

import (
	"context"
	"testing"
	"time"

	"PulseWatch/internal/backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractT0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newContractMonitor(owner string) *models.Monitor {
	return &models.Monitor{
		ID:         uuid.NewString(),
		Owner:      owner,
		Name:       "example",
		URL:        "https://example.com/" + uuid.NewString()[:8],
		IntervalMs: 60_000,
		Assertions: models.AssertionConfig{FollowRedirects: true, MaxRedirects: 5},
		LastStatus: models.StatusUnknown,
		CreatedAt:  contractT0,
		UpdatedAt:  contractT0,
	}
}

func okCheck(monitorID string, at time.Time, ms int64) *models.Check {
	code := 200
	return &models.Check{MonitorID: monitorID, CheckedAt: at, OK: true, ResponseMs: ms, StatusCode: &code}
}

func failedCheck(monitorID string, at time.Time, status int) *models.Check {
	return &models.Check{MonitorID: monitorID, CheckedAt: at, StatusCode: &status, ErrorCode: models.ErrorStatusMismatch}
}

// runStoreContract общие проверки поведения для любой реализации Store
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("monitor crud", func(t *testing.T) {
		s := newStore(t)
		m := newContractMonitor("alice")
		require.NoError(t, s.CreateMonitor(ctx, m))

		assert.ErrorIs(t, s.CreateMonitor(ctx, m), ErrAlreadyExists)

		got, err := s.GetMonitor(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.URL, got.URL)
		assert.Equal(t, models.StatusUnknown, got.LastStatus)
		assert.Nil(t, got.LastCheckedAt)
		assert.True(t, got.Assertions.FollowRedirects)

		got.Paused = true
		got.IntervalMs = 120_000
		require.NoError(t, s.UpdateMonitor(ctx, got))

		updated, err := s.GetMonitor(ctx, m.ID)
		require.NoError(t, err)
		assert.True(t, updated.Paused)
		assert.Equal(t, int64(120_000), updated.IntervalMs)

		owned, err := s.ListMonitorsByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Contains(t, monitorIDs(owned), m.ID)

		others, err := s.ListMonitorsByOwner(ctx, "bob-"+m.ID)
		require.NoError(t, err)
		assert.Empty(t, others)

		require.NoError(t, s.DeleteMonitor(ctx, m.ID))
		_, err = s.GetMonitor(ctx, m.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteMonitor(ctx, m.ID), ErrNotFound)
	})

	t.Run("append check updates status cache", func(t *testing.T) {
		s := newStore(t)
		m := newContractMonitor("alice")
		require.NoError(t, s.CreateMonitor(ctx, m))

		prev, err := s.AppendCheck(ctx, failedCheck(m.ID, contractT0, 503))
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnknown, prev)

		prev, err = s.AppendCheck(ctx, okCheck(m.ID, contractT0.Add(time.Minute), 42))
		require.NoError(t, err)
		assert.Equal(t, models.StatusOffline, prev)

		got, err := s.GetMonitor(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOnline, got.LastStatus)
		require.NotNil(t, got.LastCheckedAt)
		assert.True(t, got.LastCheckedAt.Equal(contractT0.Add(time.Minute)))
		require.NotNil(t, got.LastResponseMs)
		assert.Equal(t, int64(42), *got.LastResponseMs)
		assert.Empty(t, got.LastErrorCode)

		_, err = s.AppendCheck(ctx, okCheck("missing-"+m.ID, contractT0, 1))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("late check keeps newest status", func(t *testing.T) {
		s := newStore(t)
		m := newContractMonitor("alice")
		require.NoError(t, s.CreateMonitor(ctx, m))

		_, err := s.AppendCheck(ctx, okCheck(m.ID, contractT0.Add(2*time.Minute), 10))
		require.NoError(t, err)

		// Запоздавшая проверка возвращает свой же статус: перехода нет
		previous, err := s.AppendCheck(ctx, failedCheck(m.ID, contractT0, 500))
		require.NoError(t, err)
		assert.Equal(t, models.StatusOffline, previous)

		got, err := s.GetMonitor(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOnline, got.LastStatus)
		assert.True(t, got.LastCheckedAt.Equal(contractT0.Add(2*time.Minute)))

		checks, err := s.ListChecks(ctx, m.ID, contractT0, contractT0.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, checks, 2)
		assert.False(t, checks[0].OK)
		assert.True(t, checks[1].OK)
	})

	t.Run("list checks half-open range", func(t *testing.T) {
		s := newStore(t)
		m := newContractMonitor("alice")
		require.NoError(t, s.CreateMonitor(ctx, m))

		for i := range 5 {
			_, err := s.AppendCheck(ctx, okCheck(m.ID, contractT0.Add(time.Duration(i)*time.Minute), int64(i)))
			require.NoError(t, err)
		}

		checks, err := s.ListChecks(ctx, m.ID, contractT0.Add(time.Minute), contractT0.Add(3*time.Minute))
		require.NoError(t, err)
		require.Len(t, checks, 2)
		assert.Equal(t, int64(1), checks[0].ResponseMs)
		assert.Equal(t, int64(2), checks[1].ResponseMs)

		empty, err := s.ListChecks(ctx, m.ID, contractT0.Add(time.Hour), contractT0.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("daily counts by utc day", func(t *testing.T) {
		s := newStore(t)
		m := newContractMonitor("alice")
		require.NoError(t, s.CreateMonitor(ctx, m))

		day1 := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
		day2 := time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)
		for _, c := range []*models.Check{
			okCheck(m.ID, day1, 1),
			failedCheck(m.ID, day1.Add(time.Minute), 500),
			okCheck(m.ID, day2, 1),
		} {
			_, err := s.AppendCheck(ctx, c)
			require.NoError(t, err)
		}

		counts, err := s.DailyCounts(ctx, m.ID, day1.Add(-24*time.Hour), day2.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, counts, 2)
		assert.True(t, counts[0].Day.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, 2, counts[0].Total)
		assert.Equal(t, 1, counts[0].Failed)
		assert.Equal(t, 1, counts[1].Total)
		assert.Equal(t, 0, counts[1].Failed)
	})

	t.Run("maintenance windows", func(t *testing.T) {
		s := newStore(t)
		m := newContractMonitor("alice")
		require.NoError(t, s.CreateMonitor(ctx, m))

		late := &models.MaintenanceWindow{
			ID: uuid.NewString(), MonitorID: m.ID, Title: "db upgrade",
			StartsAt: contractT0.Add(2 * time.Hour), EndsAt: contractT0.Add(3 * time.Hour), CreatedAt: contractT0,
		}
		early := &models.MaintenanceWindow{
			ID: uuid.NewString(), MonitorID: m.ID, Title: "deploy",
			StartsAt: contractT0, EndsAt: contractT0.Add(time.Hour), CreatedAt: contractT0,
		}
		require.NoError(t, s.CreateWindow(ctx, late))
		require.NoError(t, s.CreateWindow(ctx, early))

		windows, err := s.ListWindows(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, windows, 2)
		assert.Equal(t, early.ID, windows[0].ID)
		assert.Equal(t, late.ID, windows[1].ID)

		require.NoError(t, s.CancelWindow(ctx, late.ID, contractT0.Add(time.Hour)))
		assert.ErrorIs(t, s.CancelWindow(ctx, late.ID, contractT0.Add(time.Hour)), ErrAlreadyFinal)
		assert.ErrorIs(t, s.CancelWindow(ctx, uuid.NewString(), contractT0), ErrNotFound)

		got, err := s.GetWindow(ctx, late.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CancelledAt)
		assert.Equal(t, models.MaintenanceCancelled, got.StatusAt(contractT0))

		_, err = s.GetWindow(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("slo config upsert", func(t *testing.T) {
		s := newStore(t)
		m := newContractMonitor("alice")
		require.NoError(t, s.CreateMonitor(ctx, m))

		_, err := s.GetSLOConfig(ctx, m.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		cfg := &models.SLOConfig{MonitorID: m.ID, Enabled: true, TargetPercent: 99.9, WindowDays: 30, UpdatedAt: contractT0}
		require.NoError(t, s.UpsertSLOConfig(ctx, cfg))

		cfg.TargetPercent = 99.5
		require.NoError(t, s.UpsertSLOConfig(ctx, cfg))

		got, err := s.GetSLOConfig(ctx, m.ID)
		require.NoError(t, err)
		assert.True(t, got.Enabled)
		assert.InDelta(t, 99.5, got.TargetPercent, 1e-9)
		assert.Equal(t, 30, got.WindowDays)
	})

	t.Run("hidden incidents", func(t *testing.T) {
		s := newStore(t)
		m := newContractMonitor("alice")
		require.NoError(t, s.CreateMonitor(ctx, m))

		end := contractT0.Add(time.Hour)
		h := &models.HiddenIncident{
			ID: uuid.NewString(), MonitorID: m.ID, StartedAt: contractT0, EndedAt: &end,
			Reason: "planned migration", HiddenBy: "alice", CreatedAt: contractT0,
		}
		require.NoError(t, s.CreateHidden(ctx, h))

		hidden, err := s.ListHidden(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, hidden, 1)
		assert.Equal(t, "planned migration", hidden[0].Reason)
		require.NotNil(t, hidden[0].EndedAt)
		assert.True(t, hidden[0].EndedAt.Equal(end))

		none, err := s.ListHidden(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func monitorIDs(monitors []*models.Monitor) []string {
	ids := make([]string, len(monitors))
	for i, m := range monitors {
		ids[i] = m.ID
	}
	return ids
}
