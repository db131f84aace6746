// Package progress publishes job progress as platform events on the external store.
// Publishing is best effort: failures are logged and never reach the job.
package progress

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
	"github.com/ternarybob/pricing-engine/internal/services/batch"
)

// Event field names on the progress platform event
const (
	FieldJobID    = "JobId__c"
	FieldProgress = "Progress__c"
)

// Publisher emits progress events for one job
type Publisher struct {
	store     interfaces.RecordStore
	jobID     string
	eventName string
	enabled   bool
	logger    arbor.ILogger
}

// NewPublisher creates a publisher. When enabled is false every Publish is a no-op.
func NewPublisher(store interfaces.RecordStore, jobID, eventName string, enabled bool, logger arbor.ILogger) *Publisher {
	return &Publisher{
		store:     store,
		jobID:     jobID,
		eventName: eventName,
		enabled:   enabled,
		logger:    logger,
	}
}

// Enabled reports whether events are sent
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Publish creates one progress event. It never returns an error.
func (p *Publisher) Publish(ctx context.Context, progressPercent float64) {
	if !p.enabled {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("job_id", p.jobID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Recovered from panic while sending progress event")
		}
	}()

	event := models.NewCreateRequest(p.eventName, map[string]any{
		FieldJobID:    p.jobID,
		FieldProgress: progressPercent,
	})

	results, err := p.store.Create(ctx, []models.CreateRequest{event})
	if err != nil {
		p.logger.Error().
			Err(fmt.Errorf("%w: %w", models.ErrProgressPublish, err)).
			Str("job_id", p.jobID).
			Msg("Exception while sending progress event")
		return
	}
	if len(results) == 0 {
		p.logger.Error().
			Err(models.ErrProgressPublish).
			Str("job_id", p.jobID).
			Msg("No response received when sending progress event")
		return
	}

	result := results[0]
	if !result.Success {
		p.logger.Error().
			Err(models.ErrProgressPublish).
			Str("job_id", p.jobID).
			Str("errors", models.JoinErrorMessages(result)).
			Msg("Failed to send progress event")
		return
	}

	p.logger.Info().
		Str("job_id", p.jobID).
		Float64("progress", progressPercent).
		Msg("Progress event sent")
}

// Sink adapts the publisher to a batch progress sink. Returns nil when disabled so the
// batch executor skips reporting altogether.
func (p *Publisher) Sink(ctx context.Context) batch.ProgressSink {
	if !p.enabled {
		return nil
	}
	return func(progress float64) {
		p.Publish(ctx, progress)
	}
}
