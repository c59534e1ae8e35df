package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix prefixes every archived run key.
const KeyPrefix = "gridflow:run:"

// Redis archives runs as JSON strings with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the server at url (redis://...) and pings it.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisFromClient(client, ttl), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Key returns the redis key of a run.
func Key(runID string) string {
	return KeyPrefix + runID
}

func (r *Redis) Save(ctx context.Context, runID string, data []byte) error {
	if err := r.client.Set(ctx, Key(runID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to archive run '%s': %w", runID, err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, runID string) ([]byte, error) {
	data, err := r.client.Get(ctx, Key(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("run '%s': %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run '%s': %w", runID, err)
	}
	return data, nil
}

// TTL returns the remaining lifetime of an archived run.
func (r *Redis) TTL(ctx context.Context, runID string) (time.Duration, error) {
	return r.client.TTL(ctx, Key(runID)).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
