package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"PulseWatch/internal/backend/models"
)

// LogPublisher пишет переходы в лог
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishTransition(ctx context.Context, t *models.StatusTransition) error {
	level := slog.LevelInfo
	if t.To == models.StatusOffline {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "monitor status changed",
		"monitor_id", t.MonitorID,
		"url", t.URL,
		"from", t.From,
		"to", t.To,
		"error_code", t.ErrorCode,
	)
	return nil
}

// Hub раздает переходы подписчикам (websocket клиентам).
// Медленный подписчик с полным буфером отключается.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	closed bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[chan []byte]struct{}),
		logger: logger,
	}
}

// Subscribe возвращает канал сообщений и функцию отписки
func (h *Hub) Subscribe(buffer int) (<-chan []byte, func()) {
	ch := make(chan []byte, buffer)

	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.subs[ch] = struct{}{}
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.drop(ch) })
	}
}

func (h *Hub) drop(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) PublishTransition(_ context.Context, t *models.StatusTransition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- data:
		default:
			delete(h.subs, ch)
			close(ch)
			h.logger.Warn("dropping slow transition subscriber")
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close закрывает все подписки
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		close(ch)
	}
	h.subs = make(map[chan []byte]struct{})
	h.closed = true
	return nil
}
