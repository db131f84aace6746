package storage

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/storage/badger"
	"github.com/ternarybob/pricing-engine/internal/storage/redis"
)

// NewStorageManager creates the storage manager for the configured queue backend
func NewStorageManager(ctx context.Context, logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	switch config.Queue.Backend {
	case "badger", "":
		return badger.NewManager(logger, &config.Storage.Badger, &config.Queue)
	case "redis":
		return redis.NewManager(ctx, logger, &config.Redis, &config.Queue)
	default:
		return nil, fmt.Errorf("unsupported queue backend: %s (expected 'badger' or 'redis')", config.Queue.Backend)
	}
}
