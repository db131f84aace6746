package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
)

// Manager implements the StorageManager interface for Redis
type Manager struct {
	client *redis.Client
	kv     interfaces.KeyValueStorage
	queue  *Queue
	logger arbor.ILogger
}

// NewManager connects to Redis and subscribes to the job channels
func NewManager(ctx context.Context, logger arbor.ILogger, config *common.RedisConfig, queueConfig *common.QueueConfig) (interfaces.StorageManager, error) {
	client, err := NewClient(ctx, config)
	if err != nil {
		return nil, err
	}

	queue, err := NewQueue(ctx, client, []string{queueConfig.QuoteChannel, queueConfig.DataChannel}, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.Info().Msg("Redis storage manager initialized")

	return &Manager{
		client: client,
		kv:     NewKVStorage(client, config.CredentialExpiry(), logger),
		queue:  queue,
		logger: logger,
	}, nil
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// JobQueue returns the job queue
func (m *Manager) JobQueue() interfaces.JobQueue {
	return m.queue
}

// Close unsubscribes and closes the client
func (m *Manager) Close() error {
	if err := m.queue.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to close Redis subscription")
	}
	return m.client.Close()
}
