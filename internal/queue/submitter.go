package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
	"github.com/ternarybob/pricing-engine/internal/services/session"
)

// Submitter plays the intake side: it assigns a job id, stashes the caller's credentials
// under that id and publishes the job on its channel.
type Submitter struct {
	queue    interfaces.JobQueue
	sessions *session.Service
	logger   arbor.ILogger
}

// NewSubmitter creates a submitter
func NewSubmitter(queue interfaces.JobQueue, sessions *session.Service, logger arbor.ILogger) *Submitter {
	return &Submitter{
		queue:    queue,
		sessions: sessions,
		logger:   logger,
	}
}

// Submit enqueues payload on channel and returns the new job id
func (s *Submitter) Submit(ctx context.Context, channel, payload string, creds session.Credentials) (string, error) {
	job := &models.Job{
		ID:       uuid.New().String(),
		Kind:     channel,
		Selector: payload,
	}

	if err := s.sessions.Stash(ctx, job.ID, creds); err != nil {
		return "", err
	}

	if err := s.queue.Publish(ctx, channel, job.Body()); err != nil {
		s.sessions.Release(ctx, job.ID)
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("channel", channel).
		Msg("Job enqueued")

	return job.ID, nil
}
