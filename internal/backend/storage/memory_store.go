package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"PulseWatch/internal/backend/models"
)

// monitorShard состояние одного монитора под собственной блокировкой:
// записи разных мониторов не сериализуются друг с другом
type monitorShard struct {
	mu      sync.RWMutex
	monitor *models.Monitor
	checks  []*models.Check
}

// MemoryStore хранилище в памяти для разработки и тестов
type MemoryStore struct {
	mu     sync.RWMutex
	shards map[string]*monitorShard

	auxMu   sync.RWMutex
	windows map[string]*models.MaintenanceWindow
	slo     map[string]*models.SLOConfig
	hidden  map[string][]*models.HiddenIncident
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shards:  make(map[string]*monitorShard),
		windows: make(map[string]*models.MaintenanceWindow),
		slo:     make(map[string]*models.SLOConfig),
		hidden:  make(map[string][]*models.HiddenIncident),
	}
}

func (s *MemoryStore) shard(id string) (*monitorShard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shards[id]
	if !ok {
		return nil, fmt.Errorf("monitor %s: %w", id, ErrNotFound)
	}
	return sh, nil
}

func (s *MemoryStore) CreateMonitor(_ context.Context, m *models.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shards[m.ID]; exists {
		return fmt.Errorf("monitor %s: %w", m.ID, ErrAlreadyExists)
	}
	if m.LastStatus == "" {
		m.LastStatus = models.StatusUnknown
	}
	s.shards[m.ID] = &monitorShard{monitor: m.Clone()}
	return nil
}

func (s *MemoryStore) GetMonitor(_ context.Context, id string) (*models.Monitor, error) {
	sh, err := s.shard(id)
	if err != nil {
		return nil, err
	}
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.monitor.Clone(), nil
}

func (s *MemoryStore) ListMonitors(ctx context.Context) ([]*models.Monitor, error) {
	return s.listMonitors(func(*models.Monitor) bool { return true }), nil
}

func (s *MemoryStore) ListMonitorsByOwner(_ context.Context, owner string) ([]*models.Monitor, error) {
	return s.listMonitors(func(m *models.Monitor) bool { return m.Owner == owner }), nil
}

func (s *MemoryStore) listMonitors(keep func(*models.Monitor) bool) []*models.Monitor {
	s.mu.RLock()
	shards := make([]*monitorShard, 0, len(s.shards))
	for _, sh := range s.shards {
		shards = append(shards, sh)
	}
	s.mu.RUnlock()

	out := make([]*models.Monitor, 0, len(shards))
	for _, sh := range shards {
		sh.mu.RLock()
		if keep(sh.monitor) {
			out = append(out, sh.monitor.Clone())
		}
		sh.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) UpdateMonitor(_ context.Context, m *models.Monitor) error {
	sh, err := s.shard(m.ID)
	if err != nil {
		return err
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.monitor.Name = m.Name
	sh.monitor.URL = m.URL
	sh.monitor.IntervalMs = m.IntervalMs
	sh.monitor.Paused = m.Paused
	sh.monitor.Assertions = m.Assertions
	sh.monitor.UpdatedAt = m.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteMonitor(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shards[id]; !ok {
		return fmt.Errorf("monitor %s: %w", id, ErrNotFound)
	}
	delete(s.shards, id)
	return nil
}

func (s *MemoryStore) AppendCheck(_ context.Context, check *models.Check) (models.Status, error) {
	sh, err := s.shard(check.MonitorID)
	if err != nil {
		return "", err
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	previous := sh.monitor.LastStatus
	if previous == "" {
		previous = models.StatusUnknown
	}

	stored := *check
	n := len(sh.checks)
	if n > 0 && stored.CheckedAt.Before(sh.checks[n-1].CheckedAt) {
		// Запоздавшая проверка: вставка по времени, кэш статуса не трогаем.
		// Возвращаем ее собственный статус, чтобы перехода не было.
		idx := sort.Search(n, func(i int) bool { return sh.checks[i].CheckedAt.After(stored.CheckedAt) })
		sh.checks = slices.Insert(sh.checks, idx, &stored)
		return stored.Status(), nil
	}
	sh.checks = append(sh.checks, &stored)

	checkedAt := stored.CheckedAt
	responseMs := stored.ResponseMs
	sh.monitor.LastStatus = stored.Status()
	sh.monitor.LastCheckedAt = &checkedAt
	sh.monitor.LastResponseMs = &responseMs
	sh.monitor.LastErrorCode = stored.ErrorCode

	return previous, nil
}

func (s *MemoryStore) ListChecks(_ context.Context, monitorID string, from, to time.Time) ([]*models.Check, error) {
	sh, err := s.shard(monitorID)
	if err != nil {
		return nil, err
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	lo := sort.Search(len(sh.checks), func(i int) bool { return !sh.checks[i].CheckedAt.Before(from) })
	hi := sort.Search(len(sh.checks), func(i int) bool { return !sh.checks[i].CheckedAt.Before(to) })

	out := make([]*models.Check, 0, max(hi-lo, 0))
	for _, c := range sh.checks[lo:max(hi, lo)] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) DailyCounts(ctx context.Context, monitorID string, from, to time.Time) ([]models.CheckCounts, error) {
	checks, err := s.ListChecks(ctx, monitorID, from, to)
	if err != nil {
		return nil, err
	}

	var out []models.CheckCounts
	for _, c := range checks {
		day := c.CheckedAt.UTC().Truncate(24 * time.Hour)
		if len(out) == 0 || !out[len(out)-1].Day.Equal(day) {
			out = append(out, models.CheckCounts{Day: day})
		}
		last := &out[len(out)-1]
		last.Total++
		if !c.OK {
			last.Failed++
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateWindow(_ context.Context, w *models.MaintenanceWindow) error {
	s.auxMu.Lock()
	defer s.auxMu.Unlock()
	cp := *w
	s.windows[w.ID] = &cp
	return nil
}

func (s *MemoryStore) GetWindow(_ context.Context, id string) (*models.MaintenanceWindow, error) {
	s.auxMu.RLock()
	defer s.auxMu.RUnlock()
	w, ok := s.windows[id]
	if !ok {
		return nil, fmt.Errorf("maintenance window %s: %w", id, ErrNotFound)
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) ListWindows(_ context.Context, monitorID string) ([]*models.MaintenanceWindow, error) {
	s.auxMu.RLock()
	defer s.auxMu.RUnlock()

	var out []*models.MaintenanceWindow
	for _, w := range s.windows {
		if w.MonitorID == monitorID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *MemoryStore) CancelWindow(_ context.Context, id string, at time.Time) error {
	s.auxMu.Lock()
	defer s.auxMu.Unlock()
	w, ok := s.windows[id]
	if !ok {
		return fmt.Errorf("maintenance window %s: %w", id, ErrNotFound)
	}
	if w.CancelledAt != nil {
		return ErrAlreadyFinal
	}
	cancelledAt := at
	w.CancelledAt = &cancelledAt
	return nil
}

func (s *MemoryStore) GetSLOConfig(_ context.Context, monitorID string) (*models.SLOConfig, error) {
	s.auxMu.RLock()
	defer s.auxMu.RUnlock()
	cfg, ok := s.slo[monitorID]
	if !ok {
		return nil, fmt.Errorf("slo config %s: %w", monitorID, ErrNotFound)
	}
	cp := *cfg
	return &cp, nil
}

func (s *MemoryStore) UpsertSLOConfig(_ context.Context, cfg *models.SLOConfig) error {
	s.auxMu.Lock()
	defer s.auxMu.Unlock()
	cp := *cfg
	s.slo[cfg.MonitorID] = &cp
	return nil
}

func (s *MemoryStore) CreateHidden(_ context.Context, h *models.HiddenIncident) error {
	s.auxMu.Lock()
	defer s.auxMu.Unlock()
	cp := *h
	s.hidden[h.MonitorID] = append(s.hidden[h.MonitorID], &cp)
	return nil
}

func (s *MemoryStore) ListHidden(_ context.Context, monitorID string) ([]*models.HiddenIncident, error) {
	s.auxMu.RLock()
	defer s.auxMu.RUnlock()
	out := make([]*models.HiddenIncident, 0, len(s.hidden[monitorID]))
	for _, h := range s.hidden[monitorID] {
		cp := *h
		out = append(out, &cp)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
