// Package executor runs fetch-and-store task attempts on a bounded
// worker pool, applying the retry policy on failure.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
	"github.com/t77yq/scrape-scheduler/internal/storage"
)

// Fetcher dispatches one fetch to the strategy named by the task.
type Fetcher interface {
	Fetch(ctx context.Context, target string, strategy model.Strategy) (*model.ScrapeResult, error)
}

// ResultSink receives task lifecycle updates. The scheduler implements
// this to keep its status cache current.
type ResultSink interface {
	TaskStarted(taskID string)
	TaskRequeued(taskID string, attempts int, nextIn time.Duration)
	TaskCompleted(result *model.TaskResult)
}

// TaskExecutor runs one fetch-and-store attempt per dispatch and
// reports whether the task should be re-enqueued.
type TaskExecutor struct {
	logger  *zap.Logger
	fetcher Fetcher
	store   storage.ResultStore
	policy  RetryPolicy
	sink    ResultSink
}

// NewTaskExecutor creates a task executor.
func NewTaskExecutor(fetcher Fetcher, store storage.ResultStore, policy RetryPolicy, logger *zap.Logger) *TaskExecutor {
	if policy.MaxAttempts <= 0 || policy.Backoff == nil {
		policy = DefaultRetryPolicy()
	}
	return &TaskExecutor{
		logger:  logger.Named("executor"),
		fetcher: fetcher,
		store:   store,
		policy:  policy,
	}
}

// SetSink registers the lifecycle sink. Must be called before the pool
// starts.
func (e *TaskExecutor) SetSink(sink ResultSink) {
	e.sink = sink
}

// Run executes one attempt of the task. It returns a positive delay
// and true when the task must be re-enqueued for another attempt.
func (e *TaskExecutor) Run(ctx context.Context, task *model.Task) (time.Duration, bool) {
	now := time.Now()
	task.Status = model.TaskStatusRunning
	if task.StartedAt == nil {
		task.StartedAt = &now
	}
	if e.sink != nil {
		e.sink.TaskStarted(task.ID)
	}

	if len(task.Targets) == 1 {
		return e.runSingle(ctx, task)
	}
	e.runBatch(ctx, task)
	return 0, false
}

// runSingle fetches one target, retrying transient failures with
// exponential backoff. Exhausted retries still write a failed result
// record so the audit trail is complete.
func (e *TaskExecutor) runSingle(ctx context.Context, task *model.Task) (time.Duration, bool) {
	target := task.Targets[0]

	result, err := e.fetcher.Fetch(ctx, target, task.Strategy)
	if err == nil {
		e.persist(ctx, task, result)
		e.complete(task, &model.TaskResult{
			TaskID:     task.ID,
			Status:     model.TaskStatusSucceeded,
			Successful: 1,
			Results:    []*model.ScrapeResult{result},
		})
		return 0, false
	}

	task.Attempts++

	if e.policy.Retryable(err) && task.Attempts < e.policy.MaxAttempts {
		task.Status = model.TaskStatusPending
		delay := e.policy.Delay(task.Attempts)
		e.logger.Warn("Fetch failed, scheduling retry",
			zap.String("task_id", task.ID),
			zap.String("target", target),
			zap.Int("attempt", task.Attempts),
			zap.Duration("next_in", delay),
			zap.Error(err))
		if e.sink != nil {
			e.sink.TaskRequeued(task.ID, task.Attempts, delay)
		}
		return delay, true
	}

	// Terminal: record the failure instead of discarding it.
	e.persist(ctx, task, result)
	e.logger.Error("Task failed",
		zap.String("task_id", task.ID),
		zap.String("target", target),
		zap.Int("attempts", task.Attempts),
		zap.Error(err))
	e.complete(task, &model.TaskResult{
		TaskID:  task.ID,
		Status:  model.TaskStatusFailed,
		Failed:  1,
		Results: []*model.ScrapeResult{result},
		Error:   err.Error(),
	})
	return 0, false
}

// runBatch fetches every target independently: one target's failure
// does not abort the rest, and each target leaves exactly one result
// record. Batch targets get a single attempt each.
func (e *TaskExecutor) runBatch(ctx context.Context, task *model.Task) {
	aggregate := &model.TaskResult{TaskID: task.ID}

	for _, target := range task.Targets {
		result, err := e.fetcher.Fetch(ctx, target, task.Strategy)
		e.persist(ctx, task, result)
		aggregate.Results = append(aggregate.Results, result)

		if err != nil {
			aggregate.Failed++
			e.logger.Warn("Batch target failed",
				zap.String("task_id", task.ID),
				zap.String("target", target),
				zap.Error(err))
			continue
		}
		aggregate.Successful++
	}

	task.Attempts++
	aggregate.Status = model.TaskStatusSucceeded
	if aggregate.Failed > 0 {
		aggregate.Status = model.TaskStatusFailed
	}

	e.logger.Info("Batch task completed",
		zap.String("task_id", task.ID),
		zap.Int("successful", aggregate.Successful),
		zap.Int("failed", aggregate.Failed))

	e.complete(task, aggregate)
}

func (e *TaskExecutor) persist(ctx context.Context, task *model.Task, result *model.ScrapeResult) {
	if result == nil {
		return
	}
	if _, err := e.store.InsertResult(ctx, result); err != nil {
		e.logger.Error("Failed to store result",
			zap.String("task_id", task.ID),
			zap.String("target", result.Target),
			zap.Error(err))
	}
}

func (e *TaskExecutor) complete(task *model.Task, result *model.TaskResult) {
	now := time.Now()
	task.Status = result.Status
	task.CompletedAt = &now
	task.ErrorMessage = result.Error
	result.CompletedAt = now

	if e.sink != nil {
		e.sink.TaskCompleted(result)
	}
}
