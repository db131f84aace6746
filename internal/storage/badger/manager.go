package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	kv     interfaces.KeyValueStorage
	queue  *QueueStorage
	logger arbor.ILogger
}

// NewManager opens the Badger database and builds the credential store and job queue on it
func NewManager(logger arbor.ILogger, config *common.BadgerConfig, queueConfig *common.QueueConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	queue, err := NewQueueStorage(db, queueConfig.QueueName, queueConfig.VisibilityDuration(), queueConfig.MaxReceive, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	manager := &Manager{
		db:     db,
		kv:     NewKVStorage(db, logger),
		queue:  queue,
		logger: logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// JobQueue returns the job queue
func (m *Manager) JobQueue() interfaces.JobQueue {
	return m.queue
}

// Close closes the queue and the database
func (m *Manager) Close() error {
	if err := m.queue.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to close job queue")
	}
	return m.db.Close()
}
