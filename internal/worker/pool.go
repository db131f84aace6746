package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
)

// WorkerPool receives jobs from a queue and routes each one to the executor registered
// for its channel. Every worker runs one job at a time.
type WorkerPool struct {
	queue        interfaces.JobQueue
	executors    map[string]interfaces.JobExecutor
	logger       arbor.ILogger
	numWorkers   int
	pollInterval time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorkerPool creates a pool of numWorkers workers. Idle workers wait pollInterval
// between empty receives.
func NewWorkerPool(queue interfaces.JobQueue, logger arbor.ILogger, numWorkers int, pollInterval time.Duration) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &WorkerPool{
		queue:        queue,
		executors:    make(map[string]interfaces.JobExecutor),
		logger:       logger,
		numWorkers:   numWorkers,
		pollInterval: pollInterval,
	}
}

// RegisterExecutor registers an executor for a channel. Must be called before Start.
func (wp *WorkerPool) RegisterExecutor(channel string, executor interfaces.JobExecutor) {
	wp.executors[channel] = executor
	wp.logger.Info().
		Str("channel", channel).
		Msg("Executor registered")
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)

	wp.logger.Info().
		Int("num_workers", wp.numWorkers).
		Msg("Starting worker pool")

	for i := 0; i < wp.numWorkers; i++ {
		workerID := i
		wp.wg.Add(1)
		common.SafeGo(wp.logger, "pricing-worker", func() {
			defer wp.wg.Done()
			wp.worker(workerID)
		})
	}
}

// Stop cancels the workers and waits for running jobs to return
func (wp *WorkerPool) Stop() {
	wp.logger.Info().Msg("Stopping worker pool...")
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.wg.Wait()
	wp.logger.Info().Msg("Worker pool stopped")
}

// worker is the main worker loop
func (wp *WorkerPool) worker(workerID int) {
	wp.logger.Debug().
		Int("worker_id", workerID).
		Msg("Worker started")

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopping")
			return
		default:
		}

		if !wp.processNextJob(workerID) {
			select {
			case <-wp.ctx.Done():
			case <-time.After(wp.pollInterval):
			}
		}
	}
}

// processNextJob handles one message. It returns false when nothing was received.
func (wp *WorkerPool) processNextJob(workerID int) bool {
	msg, ackFn, err := wp.queue.Receive(wp.ctx)
	if err != nil {
		if !errors.Is(err, models.ErrNoMessage) && !errors.Is(err, context.Canceled) {
			wp.logger.Warn().Err(err).Int("worker_id", workerID).Msg("Failed to receive job")
		}
		return false
	}

	defer func() {
		if err := ackFn(); err != nil {
			wp.logger.Error().
				Err(err).
				Str("message_id", msg.ID).
				Msg("Failed to delete message from queue")
		}
	}()

	job, err := models.ParseJob(msg.Channel, msg.Body)
	if err != nil {
		wp.logger.Error().
			Err(err).
			Str("channel", msg.Channel).
			Msg("Discarding malformed job message")
		return true
	}

	executor, ok := wp.executors[job.Kind]
	if !ok {
		wp.logger.Error().
			Str("channel", job.Kind).
			Str("job_id", job.ID).
			Msg("No executor registered for channel")
		return true
	}

	wp.logger.Info().
		Int("worker_id", workerID).
		Str("job_id", job.ID).
		Str("channel", job.Kind).
		Msg("Processing job")

	wp.execute(executor, job)
	return true
}

// execute runs a job, turning a panic into a logged failure
func (wp *WorkerPool) execute(executor interfaces.JobExecutor, job *models.Job) {
	defer common.Recover(wp.logger, "job "+job.ID)

	started := time.Now()
	if err := executor.Execute(wp.ctx, job); err != nil {
		wp.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Str("channel", job.Kind).
			Msg("Job failed")
		return
	}

	wp.logger.Info().
		Str("job_id", job.ID).
		Str("duration", time.Since(started).String()).
		Msg("Job completed successfully")
}
