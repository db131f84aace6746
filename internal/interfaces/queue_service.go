package interfaces

import (
	"context"

	"github.com/ternarybob/pricing-engine/internal/models"
)

// JobQueue moves job messages from the intake side to the dispatcher
type JobQueue interface {
	// Publish sends a raw "<jobId>:<payload>" body on a channel
	Publish(ctx context.Context, channel string, body string) error

	// Receive returns the next message and an acknowledge function to call once the
	// job has been handled. Returns models.ErrNoMessage when nothing is ready.
	Receive(ctx context.Context) (*models.QueueMessage, func() error, error)

	// Close releases queue resources (subscriptions), not the underlying database
	Close() error
}
