package publisher

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/samcutley/intelwatch/internal/config"
	"github.com/samcutley/intelwatch/internal/domain"
)

// RedisPublisher implements Publisher on a Redis stream. Content is stripped
// from the published record; consumers read bodies from the store.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher creates a new Redis stream publisher.
// Parameters:
//   - cfg: Redis address, stream name, and length cap.
//
// Returns:
//   - *RedisPublisher: publisher bound to the configured stream.
func NewRedisPublisher(cfg *config.PublisherConfig) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	return &RedisPublisher{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
	}
}

// NotifyNew publishes one newly created article to the stream.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - article: article to publish; the body is omitted from the message.
//
// Returns:
//   - error: non-nil if encoding or the stream append fails.
func (p *RedisPublisher) NotifyNew(ctx context.Context, article *domain.Article) error {
	record := *article
	record.Content = ""
	payload, err := json.Marshal(&record)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"article": string(payload),
		},
	}).Err()
}

// Trim caps the stream at the configured maximum length.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//
// Returns:
//   - error: non-nil if the trim fails.
func (p *RedisPublisher) Trim(ctx context.Context) error {
	return p.client.XTrimMaxLen(ctx, p.stream, p.maxLen).Err()
}

// Close closes the Redis connection.
// Parameters: none.
// Returns:
//   - error: non-nil if the close fails.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
