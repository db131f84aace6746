package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/models"
)

// memoryQueue is a minimal in-memory JobQueue
type memoryQueue struct {
	mu    sync.Mutex
	msgs  []*models.QueueMessage
	acked []string
}

func (q *memoryQueue) Publish(ctx context.Context, channel, body string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, &models.QueueMessage{ID: body, Channel: channel, Body: body})
	return nil
}

func (q *memoryQueue) Receive(ctx context.Context) (*models.QueueMessage, func() error, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return nil, nil, models.ErrNoMessage
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, func() error {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.acked = append(q.acked, msg.ID)
		return nil
	}, nil
}

func (q *memoryQueue) Close() error { return nil }

func (q *memoryQueue) ackedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked)
}

type recordingExecutor struct {
	mu   sync.Mutex
	jobs []*models.Job
	err  error
	fn   func()
}

func (e *recordingExecutor) Execute(ctx context.Context, job *models.Job) error {
	if e.fn != nil {
		e.fn()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, job)
	return e.err
}

func (e *recordingExecutor) received() []*models.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*models.Job(nil), e.jobs...)
}

func TestWorkerPool_RoutesByChannel(t *testing.T) {
	queue := &memoryQueue{}
	quotes := &recordingExecutor{}
	data := &recordingExecutor{err: errors.New("failed")}

	ctx := context.Background()
	_ = queue.Publish(ctx, "quoteQueue", "job-1:Id != null")
	_ = queue.Publish(ctx, "dataQueue", "job-2:create:5")
	_ = queue.Publish(ctx, "quoteQueue", "malformed")
	_ = queue.Publish(ctx, "otherQueue", "job-3:x")

	pool := NewWorkerPool(queue, arbor.NewNoOpLogger(), 2, 5*time.Millisecond)
	pool.RegisterExecutor("quoteQueue", quotes)
	pool.RegisterExecutor("dataQueue", data)
	pool.Start(ctx)

	assert.Eventually(t, func() bool { return queue.ackedCount() == 4 }, 2*time.Second, 5*time.Millisecond)
	pool.Stop()

	if assert.Len(t, quotes.received(), 1) {
		assert.Equal(t, "job-1", quotes.received()[0].ID)
		assert.Equal(t, "Id != null", quotes.received()[0].Selector)
	}
	if assert.Len(t, data.received(), 1) {
		assert.Equal(t, "create:5", data.received()[0].Selector)
	}
}

func TestWorkerPool_SurvivesPanickingJob(t *testing.T) {
	queue := &memoryQueue{}
	calls := 0
	var mu sync.Mutex
	exec := &recordingExecutor{fn: func() {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			panic("boom")
		}
	}}

	ctx := context.Background()
	_ = queue.Publish(ctx, "quoteQueue", "job-1:a")
	_ = queue.Publish(ctx, "quoteQueue", "job-2:b")

	pool := NewWorkerPool(queue, arbor.NewNoOpLogger(), 1, 5*time.Millisecond)
	pool.RegisterExecutor("quoteQueue", exec)
	pool.Start(ctx)

	assert.Eventually(t, func() bool { return queue.ackedCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	pool.Stop()

	assert.Len(t, exec.received(), 1)
}

func TestWorkerPool_StopWithoutJobs(t *testing.T) {
	pool := NewWorkerPool(&memoryQueue{}, arbor.NewNoOpLogger(), 3, time.Millisecond)
	pool.Start(context.Background())

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
