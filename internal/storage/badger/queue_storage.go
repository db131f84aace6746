package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
)

// queueEntry is the internal structure stored in Badger
type queueEntry struct {
	Message      models.QueueMessage `json:"message"`
	VisibleAt    time.Time           `json:"visible_at"`
	ReceiveCount int                 `json:"receive_count"`
}

// QueueStorage implements a persistent visibility-timeout queue on BadgerDB.
// Message data lives at queue:{name}:msg:{id}; a visibility index at
// queue:{name}:index:{visibleAt}:{id} keeps ready messages sorted by time.
type QueueStorage struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
	logger            arbor.ILogger
}

// NewQueueStorage creates a Badger-backed job queue sharing the database of BadgerDB
func NewQueueStorage(db *BadgerDB, queueName string, visibilityTimeout time.Duration, maxReceive int, logger arbor.ILogger) (*QueueStorage, error) {
	if db == nil || db.Store() == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 30 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 1
	}

	return &QueueStorage{
		db:                db.Store().Badger(),
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
		logger:            logger,
	}, nil
}

var _ interfaces.JobQueue = (*QueueStorage)(nil)

// Publish adds a message to the queue, immediately visible
func (q *QueueStorage) Publish(ctx context.Context, channel string, body string) error {
	now := time.Now()
	entry := queueEntry{
		Message: models.QueueMessage{
			ID:         uuid.New().String(),
			Channel:    channel,
			Body:       body,
			EnqueuedAt: now,
		},
		VisibleAt: now,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(q.msgKey(entry.Message.ID), data); err != nil {
			return err
		}
		return txn.Set(q.indexKey(entry.VisibleAt, entry.Message.ID), []byte{})
	})
}

// Receive claims the next visible message. The message becomes invisible for the
// visibility timeout; calling the returned function removes it for good.
func (q *QueueStorage) Receive(ctx context.Context) (*models.QueueMessage, func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var claimed queueEntry

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := q.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		var oldIndexKey []byte
		found := false

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)

			ts, id, err := q.parseIndexKey(key)
			if err != nil {
				continue // Skip invalid keys
			}

			// Keys are sorted by timestamp, nothing after this one is ready either
			if ts.After(now) {
				break
			}

			item, err := txn.Get(q.msgKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Index without data, clean up
				if err := txn.Delete(key); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}

			var entry queueEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}

			// Delivered too often: drop it rather than loop on a poison message
			if entry.ReceiveCount >= q.maxReceive {
				q.logger.Warn().
					Str("message_id", id).
					Str("channel", entry.Message.Channel).
					Int("receive_count", entry.ReceiveCount).
					Msg("Dropping message that exceeded max receive count")
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(q.msgKey(id)); err != nil {
					return err
				}
				continue
			}

			claimed = entry
			oldIndexKey = key
			found = true
			break
		}

		// Commit any drops made above even when nothing was claimed
		if !found {
			return nil
		}

		claimed.ReceiveCount++
		claimed.VisibleAt = now.Add(q.visibilityTimeout)

		data, err := json.Marshal(claimed)
		if err != nil {
			return err
		}
		if err := txn.Set(q.msgKey(claimed.Message.ID), data); err != nil {
			return err
		}
		if err := txn.Delete(oldIndexKey); err != nil {
			return err
		}
		return txn.Set(q.indexKey(claimed.VisibleAt, claimed.Message.ID), []byte{})
	})
	if err != nil {
		return nil, nil, err
	}
	if claimed.Message.ID == "" {
		return nil, nil, models.ErrNoMessage
	}

	msgID := claimed.Message.ID
	deleteFn := func() error {
		return q.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(q.msgKey(msgID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // Already deleted
			}
			if err != nil {
				return err
			}

			var current queueEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return err
			}

			if err := txn.Delete(q.indexKey(current.VisibleAt, msgID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			return txn.Delete(q.msgKey(msgID))
		})
	}

	msg := claimed.Message
	return &msg, deleteFn, nil
}

// Len returns the number of messages currently stored, visible or not
func (q *QueueStorage) Len() (int, error) {
	count := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", q.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close is a no-op; the database is owned by BadgerDB
func (q *QueueStorage) Close() error {
	return nil
}

func (q *QueueStorage) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", q.queueName, id))
}

func (q *QueueStorage) indexPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", q.queueName))
}

func (q *QueueStorage) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so string order matches numeric order
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", q.queueName, visibleAt.UnixNano(), id))
}

func (q *QueueStorage) parseIndexKey(key []byte) (time.Time, string, error) {
	prefix := q.indexPrefix()
	if len(key) <= len(prefix) {
		return time.Time{}, "", fmt.Errorf("invalid key length")
	}

	// Suffix is "{20-digit-ts}:{id}"
	suffix := string(key[len(prefix):])
	if len(suffix) < 22 {
		return time.Time{}, "", fmt.Errorf("invalid suffix length")
	}

	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts), suffix[21:], nil
}
