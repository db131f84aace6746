// Package pricing turns an opportunity selector into quotes and discounted quote line items.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
	"github.com/ternarybob/pricing-engine/internal/services/batch"
	"github.com/ternarybob/pricing-engine/internal/services/progress"
)

// Progress sub-ranges of the two creation phases
var (
	QuotePhase    = batch.Range{Low: 0, High: 50}
	LineItemPhase = batch.Range{Low: 50, High: 100}
)

// StartedProgress is reported before any record is written
const StartedProgress = 1.0

// Service executes quote generation jobs
type Service struct {
	sessions      interfaces.SessionProvider
	executor      *batch.Executor
	discounts     DiscountTable
	region        string
	quoteName     string
	queryTemplate string
	progressEvent string
	logger        arbor.ILogger
}

var _ interfaces.JobExecutor = (*Service)(nil)

// NewService creates the quote generation service
func NewService(sessions interfaces.SessionProvider, executor *batch.Executor, sfConfig common.SalesforceConfig, pricingConfig common.PricingConfig, logger arbor.ILogger) *Service {
	return &Service{
		sessions:      sessions,
		executor:      executor,
		discounts:     NewDiscountTable(pricingConfig.Discounts, pricingConfig.DefaultDiscount),
		region:        pricingConfig.Region,
		quoteName:     pricingConfig.QuoteName,
		queryTemplate: sfConfig.QueryTemplate,
		progressEvent: sfConfig.ProgressEvent,
		logger:        logger,
	}
}

// Execute runs one quote generation job end to end. Only session and query failures are
// returned; per-record and per-chunk failures are logged and the job carries on.
func (s *Service) Execute(ctx context.Context, job *models.Job) error {
	started := time.Now()
	logger := s.logger.WithCorrelationId(job.ID)

	store, err := s.sessions.Reconstruct(ctx, job.ID)
	if err != nil {
		return err
	}
	defer s.sessions.Release(context.WithoutCancel(ctx), job.ID)

	enabled := progress.Available(ctx, store, s.progressEvent, logger)
	publisher := progress.NewPublisher(store, job.ID, s.progressEvent, enabled, logger)
	publisher.Publish(ctx, StartedProgress)

	soql := fmt.Sprintf(s.queryTemplate, job.Selector)
	logger.Debug().Str("job_id", job.ID).Str("query", soql).Msg("Querying opportunities")

	raw, err := store.QueryAll(ctx, soql)
	if err != nil {
		return err
	}
	parents, err := DecodeOpportunities(raw)
	if err != nil {
		return err
	}

	if len(parents) == 0 {
		logger.Warn().
			Str("job_id", job.ID).
			Str("selector", job.Selector).
			Msg("No opportunities matched the selector")
		return nil
	}

	logger.Info().
		Str("job_id", job.ID).
		Int("opportunities", len(parents)).
		Msg("Creating quotes")

	sink := publisher.Sink(ctx)

	quoteRequests := BuildQuoteRequests(parents, s.quoteName)
	quoteResults := s.executor.Create(ctx, store, quoteRequests, QuotePhase, sink)
	correlation := Correlate(parents, quoteResults, logger)

	rate := s.discounts.Rate(s.region)
	lineItemRequests := BuildLineItemRequests(parents, correlation, rate, logger)

	logger.Info().
		Str("job_id", job.ID).
		Int("quotes", len(correlation)).
		Int("line_items", len(lineItemRequests)).
		Str("region", s.region).
		Float64("discount", rate).
		Msg("Creating quote line items")

	lineItemResults := s.executor.Create(ctx, store, lineItemRequests, LineItemPhase, sink)
	s.logLineItemFailures(logger, job.ID, lineItemRequests, lineItemResults)

	logger.Info().
		Str("job_id", job.ID).
		Int("quotes_created", len(correlation)).
		Int("quotes_failed", models.CountFailures(quoteResults)).
		Int("line_items_created", len(lineItemResults)-models.CountFailures(lineItemResults)).
		Int("line_items_failed", models.CountFailures(lineItemResults)).
		Str("duration", time.Since(started).String()).
		Msg("Quote generation complete")

	return nil
}

func (s *Service) logLineItemFailures(logger arbor.ILogger, jobID string, requests []models.CreateRequest, results []models.CreateResult) {
	for i, result := range results {
		if result.Success {
			continue
		}
		var quoteID any
		if i < len(requests) {
			quoteID = requests[i].Fields[FieldQuoteID]
		}
		logger.Error().
			Err(models.ErrRecordCreate).
			Str("job_id", jobID).
			Str("quote_id", fmt.Sprintf("%v", quoteID)).
			Str("error", result.ErrorMessage()).
			Msg("Failed to create QuoteLineItem")
	}
}
