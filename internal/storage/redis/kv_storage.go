package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
)

// KVStorage implements KeyValueStorage with plain Redis strings.
// Descriptions are not stored; the intake side writes bare values.
type KVStorage struct {
	client redis.Cmdable
	ttl    time.Duration
	logger arbor.ILogger
}

// NewKVStorage creates a Redis-backed KVStorage. A zero ttl stores keys without expiry.
func NewKVStorage(client redis.Cmdable, ttl time.Duration, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get retrieves a value by key
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

// Set stores a value, applying the configured expiry
func (s *KVStorage) Set(ctx context.Context, key string, value string, description string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key/value: %w", err)
	}
	return nil
}

// Delete removes a key
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	if n == 0 {
		return interfaces.ErrKeyNotFound
	}
	return nil
}
