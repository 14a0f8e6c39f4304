package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"counsel/backend/internal/domain"
)

// RedisStreamPublisher appends events to a Redis stream. The event id is
// carried as a field so consumers can drop redeliveries.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	if client == nil {
		panic("events: redis client required")
	}
	if stream == "" {
		stream = "counsel:events"
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Handle(ctx context.Context, event domain.Event) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":    event.ID.String(),
			"provider_id": event.ProviderID,
			"type":        string(event.Type),
			"payload":     string(event.Payload),
			"created_at":  event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("events: xadd %s: %w", p.stream, err)
	}
	return nil
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("events: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("events: ping redis: %w", err)
	}
	return client, nil
}
