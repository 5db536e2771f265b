package executor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

const (
	// DefaultWorkers keeps concurrency small so a slow fetch cannot
	// starve the scheduler tick.
	DefaultWorkers = 3

	defaultQueueSize = 64
)

// Runner executes one attempt of a task, returning a re-enqueue delay
// when another attempt is needed.
type Runner interface {
	Run(ctx context.Context, task *model.Task) (time.Duration, bool)
}

// Pool is a bounded-concurrency worker pool that drains queued tasks
// into the runner.
type Pool struct {
	logger  *zap.Logger
	runner  Runner
	workers int
	queue   chan *model.Task
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewPool creates a worker pool.
func NewPool(runner Runner, workers, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Pool{
		logger:  logger.Named("pool"),
		runner:  runner,
		workers: workers,
		queue:   make(chan *model.Task, queueSize),
		stop:    make(chan struct{}),
	}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop drains no further tasks and waits for in-flight work to finish.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool")
	close(p.stop)
	p.wg.Wait()
}

// Submit enqueues a task without blocking. A full queue returns
// ErrQueueFull instead of stalling the scheduler tick.
func (p *Pool) Submit(task *model.Task) error {
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitAfter re-enqueues a task once the backoff delay has elapsed.
func (p *Pool) SubmitAfter(task *model.Task, delay time.Duration) {
	time.AfterFunc(delay, func() {
		select {
		case <-p.stop:
			return
		default:
		}
		if err := p.Submit(task); err != nil {
			p.logger.Error("Failed to re-enqueue task",
				zap.String("task_id", task.ID),
				zap.Error(err))
		}
	})
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case task := <-p.queue:
			p.logger.Debug("Worker picked up task",
				zap.Int("worker", id),
				zap.String("task_id", task.ID))
			if delay, retry := p.runner.Run(ctx, task); retry {
				p.SubmitAfter(task, delay)
			}
		}
	}
}
