package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// IngestStream is the stream consumed by the downstream ranking service.
const IngestStream = "schedules.ingested.usclublax"

// RedisPublisher publishes ingestion events to Redis streams
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a new Redis stream publisher
func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisPublisher{
		client: client,
	}, nil
}

// NewRedisPublisherFromClient wraps an existing client
func NewRedisPublisherFromClient(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Close closes the Redis connection
func (rp *RedisPublisher) Close() error {
	return rp.client.Close()
}

// PublishIngestResult publishes a per-URL ingestion summary to the stream
func (rp *RedisPublisher) PublishIngestResult(ctx context.Context, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return rp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: IngestStream,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}
