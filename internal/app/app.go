// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 10:05:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/queue"
	"github.com/ternarybob/pricing-engine/internal/salesforce"
	"github.com/ternarybob/pricing-engine/internal/services/batch"
	"github.com/ternarybob/pricing-engine/internal/services/kv"
	"github.com/ternarybob/pricing-engine/internal/services/pricing"
	"github.com/ternarybob/pricing-engine/internal/services/sampledata"
	"github.com/ternarybob/pricing-engine/internal/services/session"
	"github.com/ternarybob/pricing-engine/internal/storage"
	"github.com/ternarybob/pricing-engine/internal/worker"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	KVService      *kv.Service
	SessionService *session.Service
	Executor       *batch.Executor
	PricingService *pricing.Service
	DataService    *sampledata.Service
	Submitter      *queue.Submitter
	WorkerPool     *worker.WorkerPool
}

// New initializes storage and services. Workers are not started until Start.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Config:    config,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initStorage(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initServices()

	logger.Info().
		Str("backend", config.Queue.Backend).
		Str("quote_channel", config.Queue.QuoteChannel).
		Str("data_channel", config.Queue.DataChannel).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initStorage() error {
	manager, err := storage.NewStorageManager(a.ctx, a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.StorageManager = manager
	return nil
}

func (a *App) initServices() {
	sf := a.Config.Salesforce

	a.KVService = kv.NewService(a.StorageManager.KeyValueStorage(), a.Logger)
	a.SessionService = session.NewService(a.KVService, a.Logger,
		salesforce.WithAPIVersion(sf.APIVersion),
		salesforce.WithTimeout(sf.TimeoutDuration()),
		salesforce.WithRateLimit(sf.RateLimit),
	)
	a.Executor = batch.NewExecutor(sf.ChunkSize, sf.PoolSize, a.Logger)

	a.PricingService = pricing.NewService(a.SessionService, a.Executor, sf, a.Config.Pricing, a.Logger)
	a.DataService = sampledata.NewService(a.SessionService, a.Executor, sf, a.Logger)

	jobQueue := a.StorageManager.JobQueue()
	a.Submitter = queue.NewSubmitter(jobQueue, a.SessionService, a.Logger)

	a.WorkerPool = worker.NewWorkerPool(jobQueue, a.Logger, a.Config.Queue.Concurrency, a.Config.Queue.PollDuration())
	a.WorkerPool.RegisterExecutor(a.Config.Queue.QuoteChannel, a.PricingService)
	a.WorkerPool.RegisterExecutor(a.Config.Queue.DataChannel, a.DataService)
}

// Start launches the workers
func (a *App) Start() {
	a.WorkerPool.Start(a.ctx)
}

// Close stops the workers, waits for running jobs and closes storage
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	if a.WorkerPool != nil {
		a.WorkerPool.Stop()
	}
	a.cancelCtx()

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
