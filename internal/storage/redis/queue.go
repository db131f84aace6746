package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
)

// Queue implements JobQueue over Redis pub/sub.
// Delivery is at-most-once: a message published while no worker is subscribed is lost,
// and acknowledging is a no-op.
type Queue struct {
	client *redis.Client
	pubsub *redis.PubSub
	msgs   <-chan *redis.Message
	logger arbor.ILogger
}

var _ interfaces.JobQueue = (*Queue)(nil)

// NewQueue subscribes to the given channels and waits for the subscription to be confirmed
func NewQueue(ctx context.Context, client *redis.Client, channels []string, logger arbor.ILogger) (*Queue, error) {
	pubsub := client.Subscribe(ctx, channels...)

	// Receive the subscription confirmation so published messages are not missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", channels, err)
	}

	logger.Info().Strs("channels", channels).Msg("Subscribed to Redis channels")

	return &Queue{
		client: client,
		pubsub: pubsub,
		msgs:   pubsub.Channel(),
		logger: logger,
	}, nil
}

// Publish sends a job body on a channel
func (q *Queue) Publish(ctx context.Context, channel string, body string) error {
	receivers, err := q.client.Publish(ctx, channel, body).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	if receivers == 0 {
		q.logger.Warn().Str("channel", channel).Msg("Published job has no subscribers")
	}
	return nil
}

// Receive waits for the next message until the context is done
func (q *Queue) Receive(ctx context.Context) (*models.QueueMessage, func() error, error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case m, ok := <-q.msgs:
		if !ok {
			return nil, nil, fmt.Errorf("redis subscription closed")
		}
		msg := &models.QueueMessage{
			ID:         uuid.New().String(),
			Channel:    m.Channel,
			Body:       m.Payload,
			EnqueuedAt: time.Now(),
		}
		return msg, func() error { return nil }, nil
	}
}

// Close ends the subscription; the caller owns the client
func (q *Queue) Close() error {
	return q.pubsub.Close()
}
