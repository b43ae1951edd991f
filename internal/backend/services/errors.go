package services

import (
	"context"
	"errors"
	"fmt"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/backend/storage"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

// ValidationError ошибка входных данных со стабильным кодом для клиента
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ownedMonitor возвращает монитор, если он принадлежит owner
func ownedMonitor(ctx context.Context, store storage.MonitorStore, owner, id string) (*models.Monitor, error) {
	m, err := store.GetMonitor(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("monitor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monitor: %w", err)
	}
	if m.Owner != owner {
		return nil, fmt.Errorf("monitor %s: %w", id, ErrForbidden)
	}
	return m, nil
}
