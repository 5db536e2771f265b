// Package scheduler owns the set of active scraping jobs, computes due
// triggers and enqueues tasks into the worker pool. It is an explicit
// service instance holding its own job table; there is no ambient
// process-wide state.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
	"github.com/t77yq/scrape-scheduler/internal/schedule"
	"github.com/t77yq/scrape-scheduler/internal/storage"
)

// DefaultTickInterval is how often due jobs are checked.
const DefaultTickInterval = 30 * time.Second

// TaskQueue accepts tasks for execution on the worker pool.
type TaskQueue interface {
	Submit(task *model.Task) error
}

// TaskStatus is the snapshot returned to status pollers. Ready is
// false while the task is pending or running; once terminal, Result
// carries the aggregated outcome.
type TaskStatus struct {
	TaskID string            `json:"task_id"`
	Status model.TaskStatus  `json:"status"`
	Ready  bool              `json:"ready"`
	Result *model.TaskResult `json:"result,omitempty"`
}

// Scheduler translates job definitions into queued tasks.
type Scheduler struct {
	logger *zap.Logger
	store  storage.ResultStore
	queue  TaskQueue
	tick   time.Duration

	mu          sync.Mutex
	jobs        map[string]*model.Job
	recurrences map[string]schedule.Recurrence

	tasks sync.Map // task id -> *TaskStatus snapshots
	stop  chan struct{}
	done  chan struct{}
}

// New creates a scheduler.
func New(store storage.ResultStore, queue TaskQueue, tick time.Duration, logger *zap.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Scheduler{
		logger:      logger.Named("scheduler"),
		store:       store,
		queue:       queue,
		tick:        tick,
		jobs:        make(map[string]*model.Job),
		recurrences: make(map[string]schedule.Recurrence),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start loads persisted jobs and begins the trigger tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.loadJobs(ctx); err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}

	go s.loop(ctx)

	s.logger.Info("Scheduler started",
		zap.Int("jobs", len(s.jobs)),
		zap.Duration("tick", s.tick))
	return nil
}

// Stop halts the trigger tick. In-flight tasks are not cancelled.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Info("Scheduler stopped")
}

// loadJobs rebuilds the in-memory job table from the store.
func (s *Scheduler) loadJobs(ctx context.Context) error {
	jobs, err := s.store.ListActiveJobs(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, job := range jobs {
		rec, err := schedule.Parse(job.Schedule)
		if err != nil {
			// Stored specs were validated at schedule time; a bad row
			// still gets the documented hourly fallback.
			s.logger.Warn("Stored job has invalid recurrence spec, falling back to hourly",
				zap.String("job_id", job.ID),
				zap.String("spec", job.Schedule))
			rec = schedule.Hourly()
		}
		if job.NextRun == nil {
			next := rec.Next(now)
			job.NextRun = &next
		}
		s.jobs[job.ID] = job
		s.recurrences[job.ID] = rec
	}
	return nil
}

// Schedule persists a new active job and computes its first trigger
// time. A malformed recurrence spec demotes the job to the hourly
// cadence; the request is never silently dropped.
func (s *Scheduler) Schedule(ctx context.Context, target, spec string, strategy model.Strategy) (string, error) {
	rec, err := schedule.Parse(spec)
	if err != nil {
		s.logger.Warn("Invalid recurrence spec, falling back to hourly",
			zap.String("target", target),
			zap.String("spec", spec),
			zap.Error(err))
		rec = schedule.Hourly()
	}

	now := time.Now()
	next := rec.Next(now)
	job := &model.Job{
		ID:        uuid.New().String(),
		Target:    target,
		Schedule:  rec.String(),
		Strategy:  strategy,
		Status:    model.JobStatusActive,
		CreatedAt: now,
		NextRun:   &next,
	}

	if err := s.store.InsertJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.recurrences[job.ID] = rec
	s.mu.Unlock()

	s.logger.Info("Scheduled job",
		zap.String("job_id", job.ID),
		zap.String("target", target),
		zap.String("schedule", job.Schedule),
		zap.Time("next_run", next))

	return job.ID, nil
}

// Unschedule marks the job inactive and drops its trigger. Calling it
// on an already-inactive job is a no-op. An in-flight task spawned by
// the job is not cancelled.
func (s *Scheduler) Unschedule(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status == model.JobStatusInactive {
		return nil
	}

	job.Status = model.JobStatusInactive
	job.NextRun = nil
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to persist job update: %w", err)
	}

	s.logger.Info("Unscheduled job", zap.String("job_id", jobID))
	return nil
}

// ListActiveJobs returns the active jobs, most recently created first.
func (s *Scheduler) ListActiveJobs() []*model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []*model.Job
	for _, job := range s.jobs {
		if job.Active() {
			jobs = append(jobs, job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// RunImmediate enqueues a one-off task for a single target, bypassing
// the trigger cycle.
func (s *Scheduler) RunImmediate(target string, strategy model.Strategy) (string, error) {
	return s.submit(newTask("", []string{target}, strategy))
}

// RunBatch enqueues one task covering multiple targets. Its terminal
// status aggregates the per-target outcomes.
func (s *Scheduler) RunBatch(targets []string, strategy model.Strategy) (string, error) {
	if len(targets) == 0 {
		return "", ErrNoTargets
	}
	return s.submit(newTask("", targets, strategy))
}

// GetTaskStatus is a non-blocking poll of a task's state. It always
// resolves: terminal tasks carry either a success result or an
// aggregate whose status text begins with "error:".
func (s *Scheduler) GetTaskStatus(taskID string) (*TaskStatus, error) {
	status, ok := s.tasks.Load(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return status.(*TaskStatus), nil
}

// TaskStarted implements executor.ResultSink.
func (s *Scheduler) TaskStarted(taskID string) {
	s.tasks.Store(taskID, &TaskStatus{
		TaskID: taskID,
		Status: model.TaskStatusRunning,
	})
}

// TaskRequeued implements executor.ResultSink.
func (s *Scheduler) TaskRequeued(taskID string, attempts int, nextIn time.Duration) {
	s.tasks.Store(taskID, &TaskStatus{
		TaskID: taskID,
		Status: model.TaskStatusPending,
	})
	s.logger.Debug("Task waiting for retry",
		zap.String("task_id", taskID),
		zap.Int("attempts", attempts),
		zap.Duration("next_in", nextIn))
}

// TaskCompleted implements executor.ResultSink.
func (s *Scheduler) TaskCompleted(result *model.TaskResult) {
	s.tasks.Store(result.TaskID, &TaskStatus{
		TaskID: result.TaskID,
		Status: result.Status,
		Ready:  true,
		Result: result,
	})
}

// submit registers a pending status snapshot and hands the task to the
// pool.
func (s *Scheduler) submit(task *model.Task) (string, error) {
	s.tasks.Store(task.ID, &TaskStatus{
		TaskID: task.ID,
		Status: model.TaskStatusPending,
	})

	if err := s.queue.Submit(task); err != nil {
		s.tasks.Delete(task.ID)
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	return task.ID, nil
}

// loop runs the periodic trigger tick, independent of request
// handling.
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.runDue(ctx, now)
		}
	}
}

// runDue fires every active job whose next run is due. The next run
// time is recomputed before the next tick, so a job cannot fire twice
// within one tick window even under slow ticks.
func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, job := range s.jobs {
		if !job.Active() || job.NextRun == nil || job.NextRun.After(now) {
			continue
		}

		task := newTask(id, []string{job.Target}, job.Strategy)
		if _, err := s.submit(task); err != nil {
			s.logger.Error("Failed to enqueue job task",
				zap.String("job_id", id),
				zap.Error(err))
		} else {
			s.logger.Info("Job fired",
				zap.String("job_id", id),
				zap.String("target", job.Target),
				zap.String("task_id", task.ID))
		}

		// Advance the trigger regardless of enqueue outcome so a slow
		// tick never double-fires the same window.
		lastRun := now
		next := s.recurrences[id].Next(now)
		job.LastRun = &lastRun
		job.NextRun = &next

		if err := s.store.UpdateJob(ctx, job); err != nil {
			s.logger.Error("Failed to persist job run times",
				zap.String("job_id", id),
				zap.Error(err))
		}
	}
}

func newTask(jobID string, targets []string, strategy model.Strategy) *model.Task {
	now := time.Now()
	return &model.Task{
		ID:          uuid.New().String(),
		JobID:       jobID,
		Targets:     targets,
		Strategy:    strategy,
		Status:      model.TaskStatusPending,
		CreatedAt:   now,
		ScheduledAt: now,
	}
}
