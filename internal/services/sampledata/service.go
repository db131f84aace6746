// Package sampledata seeds and cleans up test records in the external store.
//
// Two payloads are understood on the data channel:
//
//	create:N   create N opportunities
//	delete     delete every generated quote
package sampledata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
	"github.com/ternarybob/pricing-engine/internal/services/batch"
	"github.com/ternarybob/pricing-engine/internal/services/progress"
)

// ErrUnknownCommand is returned for data channel payloads that are not recognised
var ErrUnknownCommand = errors.New("unknown data command")

const (
	commandCreate = "create"
	commandDelete = "delete"

	// MaxCreateCount caps a single create command
	MaxCreateCount = 100000
)

// Service executes sample data jobs
type Service struct {
	sessions       interfaces.SessionProvider
	executor       *batch.Executor
	stage          string
	closeInDays    int
	deleteSelector string
	progressEvent  string
	now            func() time.Time
	logger         arbor.ILogger
}

var _ interfaces.JobExecutor = (*Service)(nil)

// NewService creates the sample data service
func NewService(sessions interfaces.SessionProvider, executor *batch.Executor, sfConfig common.SalesforceConfig, logger arbor.ILogger) *Service {
	stage := sfConfig.SampleStage
	if stage == "" {
		stage = "Prospecting"
	}
	return &Service{
		sessions:       sessions,
		executor:       executor,
		stage:          stage,
		closeInDays:    sfConfig.SampleCloseIn,
		deleteSelector: sfConfig.DeleteSelector,
		progressEvent:  sfConfig.ProgressEvent,
		now:            time.Now,
		logger:         logger,
	}
}

// Command is a parsed data channel payload
type Command struct {
	Name  string
	Count int
}

// ParseCommand parses "create:N" or "delete"
func ParseCommand(payload string) (Command, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(payload), ":")
	switch strings.ToLower(name) {
	case commandCreate:
		if !hasArg {
			return Command{}, fmt.Errorf("%w: create requires a count", ErrUnknownCommand)
		}
		count, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || count <= 0 || count > MaxCreateCount {
			return Command{}, fmt.Errorf("%w: invalid create count %q", ErrUnknownCommand, arg)
		}
		return Command{Name: commandCreate, Count: count}, nil
	case commandDelete:
		return Command{Name: commandDelete}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, payload)
	}
}

// Execute runs one data job
func (s *Service) Execute(ctx context.Context, job *models.Job) error {
	cmd, err := ParseCommand(job.Selector)
	if err != nil {
		s.sessions.Release(context.WithoutCancel(ctx), job.ID)
		return err
	}

	logger := s.logger.WithCorrelationId(job.ID)

	store, err := s.sessions.Reconstruct(ctx, job.ID)
	if err != nil {
		return err
	}
	defer s.sessions.Release(context.WithoutCancel(ctx), job.ID)

	enabled := progress.Available(ctx, store, s.progressEvent, logger)
	publisher := progress.NewPublisher(store, job.ID, s.progressEvent, enabled, logger)

	switch cmd.Name {
	case commandCreate:
		return s.create(ctx, logger, store, publisher, job.ID, cmd.Count)
	default:
		return s.delete(ctx, logger, store, publisher, job.ID)
	}
}

// BuildOpportunities derives count sample opportunity requests
func (s *Service) BuildOpportunities(count int) []models.CreateRequest {
	closeDate := s.now().AddDate(0, 0, s.closeInDays).Format("2006-01-02")
	batchID := uuid.New().String()[:8]

	requests := make([]models.CreateRequest, 0, count)
	for i := 1; i <= count; i++ {
		requests = append(requests, models.NewCreateRequest(models.EntityOpportunity, map[string]any{
			"Name":      fmt.Sprintf("Sample Opportunity %s-%d", batchID, i),
			"StageName": s.stage,
			"CloseDate": closeDate,
		}))
	}
	return requests
}

func (s *Service) create(ctx context.Context, logger arbor.ILogger, store interfaces.RecordStore, publisher *progress.Publisher, jobID string, count int) error {
	logger.Info().Str("job_id", jobID).Int("count", count).Msg("Creating sample opportunities")

	results := s.executor.Create(ctx, store, s.BuildOpportunities(count), batch.Full, publisher.Sink(ctx))
	failed := models.CountFailures(results)

	logger.Info().
		Str("job_id", jobID).
		Int("created", len(results)-failed).
		Int("failed", failed).
		Msg("Sample opportunities created")
	return nil
}

type idRecord struct {
	ID string `json:"Id"`
}

func (s *Service) delete(ctx context.Context, logger arbor.ILogger, store interfaces.RecordStore, publisher *progress.Publisher, jobID string) error {
	soql := fmt.Sprintf("SELECT Id FROM %s WHERE %s", models.EntityQuote, s.deleteSelector)
	raw, err := store.QueryAll(ctx, soql)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(raw))
	for _, data := range raw {
		var rec idRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("%w: %w", models.ErrQuery, err)
		}
		if rec.ID != "" {
			ids = append(ids, rec.ID)
		}
	}

	if len(ids) == 0 {
		logger.Warn().Str("job_id", jobID).Msg("No generated quotes to delete")
		return nil
	}

	logger.Info().Str("job_id", jobID).Int("count", len(ids)).Msg("Deleting generated quotes")

	results := s.executor.Delete(ctx, store, ids, batch.Full, publisher.Sink(ctx))
	failed := models.CountFailures(results)
	for i, result := range results {
		if !result.Success {
			logger.Error().
				Str("job_id", jobID).
				Str("quote_id", ids[i]).
				Str("error", result.ErrorMessage()).
				Msg("Failed to delete quote")
		}
	}

	logger.Info().
		Str("job_id", jobID).
		Int("deleted", len(results)-failed).
		Int("failed", failed).
		Msg("Generated quotes deleted")
	return nil
}
