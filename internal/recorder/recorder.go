package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PulseWatch/internal/backend/models"
)

var ErrInvalidCheck = errors.New("invalid check")

// CheckAppender атомарно добавляет проверку и обновляет кэш статуса монитора
type CheckAppender interface {
	AppendCheck(ctx context.Context, check *models.Check) (models.Status, error)
}

// TransitionPublisher потребитель переходов статуса (уведомления, стрим)
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, t *models.StatusTransition) error
}

// Recorder сохраняет результат проверки и определяет смену статуса
type Recorder struct {
	store      CheckAppender
	publishers []TransitionPublisher
	logger     *slog.Logger
}

func New(store CheckAppender, logger *slog.Logger, publishers ...TransitionPublisher) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:      store,
		publishers: publishers,
		logger:     logger,
	}
}

// Record добавляет проверку. При смене статуса возвращает переход и
// рассылает его подписчикам. Первая успешная проверка нового монитора
// переходом не считается, первая неуспешная - считается.
func (r *Recorder) Record(ctx context.Context, m *models.Monitor, check *models.Check) (*models.StatusTransition, error) {
	if check.MonitorID != m.ID || !check.Valid() {
		return nil, fmt.Errorf("%w for monitor %s", ErrInvalidCheck, m.ID)
	}

	previous, err := r.store.AppendCheck(ctx, check)
	if err != nil {
		return nil, fmt.Errorf("append check: %w", err)
	}

	current := check.Status()
	if !IsTransition(previous, current) {
		return nil, nil
	}

	transition := models.NewStatusTransition(m, previous, check)
	r.publish(ctx, transition)
	return transition, nil
}

func IsTransition(from, to models.Status) bool {
	if from == to {
		return false
	}
	if (from == models.StatusUnknown || from == "") && to == models.StatusOnline {
		return false
	}
	return true
}

// publish ошибки доставки только логируются: проверка уже сохранена
func (r *Recorder) publish(ctx context.Context, t *models.StatusTransition) {
	for _, p := range r.publishers {
		if err := p.PublishTransition(ctx, t); err != nil {
			r.logger.Error("failed to publish transition",
				"monitor_id", t.MonitorID,
				"from", t.From,
				"to", t.To,
				"error", err,
			)
		}
	}
}
