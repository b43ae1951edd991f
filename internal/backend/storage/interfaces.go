package storage

import (
	"context"
	"errors"
	"time"

	"PulseWatch/internal/backend/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrAlreadyFinal  = errors.New("already completed or cancelled")
)

// MonitorStore интерфейс для работы с мониторами
type MonitorStore interface {
	CreateMonitor(ctx context.Context, m *models.Monitor) error
	GetMonitor(ctx context.Context, id string) (*models.Monitor, error)
	ListMonitors(ctx context.Context) ([]*models.Monitor, error)
	ListMonitorsByOwner(ctx context.Context, owner string) ([]*models.Monitor, error)
	// UpdateMonitor меняет только настройки (имя, URL, интервал, пауза, assertions)
	UpdateMonitor(ctx context.Context, m *models.Monitor) error
	DeleteMonitor(ctx context.Context, id string) error
}

// CheckStore интерфейс для работы с результатами проверок
type CheckStore interface {
	// AppendCheck добавляет проверку и в той же транзакции обновляет кэш статуса
	// монитора. Возвращает статус монитора до обновления.
	AppendCheck(ctx context.Context, check *models.Check) (models.Status, error)
	// ListChecks проверки в [from, to) по возрастанию времени
	ListChecks(ctx context.Context, monitorID string, from, to time.Time) ([]*models.Check, error)
	// DailyCounts дневные счетчики (UTC) в [from, to)
	DailyCounts(ctx context.Context, monitorID string, from, to time.Time) ([]models.CheckCounts, error)
}

// MaintenanceStore интерфейс для окон обслуживания
type MaintenanceStore interface {
	CreateWindow(ctx context.Context, w *models.MaintenanceWindow) error
	GetWindow(ctx context.Context, id string) (*models.MaintenanceWindow, error)
	ListWindows(ctx context.Context, monitorID string) ([]*models.MaintenanceWindow, error)
	CancelWindow(ctx context.Context, id string, at time.Time) error
}

// SLOStore интерфейс для настроек SLO
type SLOStore interface {
	GetSLOConfig(ctx context.Context, monitorID string) (*models.SLOConfig, error)
	UpsertSLOConfig(ctx context.Context, cfg *models.SLOConfig) error
}

// HiddenIncidentStore интерфейс для скрытых инцидентов
type HiddenIncidentStore interface {
	CreateHidden(ctx context.Context, h *models.HiddenIncident) error
	ListHidden(ctx context.Context, monitorID string) ([]*models.HiddenIncident, error)
}

// Store все хранилища вместе
type Store interface {
	MonitorStore
	CheckStore
	MaintenanceStore
	SLOStore
	HiddenIncidentStore
}

// Publisher публикация переходов статуса для внешних потребителей
type Publisher interface {
	PublishTransition(ctx context.Context, t *models.StatusTransition) error
	Close() error
}
