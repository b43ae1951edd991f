package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"PulseWatch/internal/backend/models"
	"PulseWatch/internal/config"

	"github.com/redis/go-redis/v9"
)

const TransitionsChannel = "pulsewatch:transitions"

// redisPublisher публикует переходы статуса в канал Redis
// для внешнего сервиса уведомлений
type redisPublisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisPublisher(cfg *config.RedisConfig, log *slog.Logger) (Publisher, error) {
	client := redis.NewClient(cfg.GetRedisOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Connected to Redis", "addr", cfg.Addr)
	return newRedisPublisher(client, cfg.Channel, log), nil
}

func newRedisPublisher(client *redis.Client, channel string, log *slog.Logger) *redisPublisher {
	if channel == "" {
		channel = TransitionsChannel
	}
	return &redisPublisher{client: client, channel: channel, logger: log}
}

func (r *redisPublisher) PublishTransition(ctx context.Context, t *models.StatusTransition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	receivers, err := r.client.Publish(ctx, r.channel, data).Result()
	if err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}

	r.logger.Debug("transition published",
		"channel", r.channel,
		"monitor_id", t.MonitorID,
		"receivers", receivers,
	)
	return nil
}

func (r *redisPublisher) Close() error {
	return r.client.Close()
}
