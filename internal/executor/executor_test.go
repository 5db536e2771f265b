package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
	"github.com/t77yq/scrape-scheduler/internal/scraper"
	"github.com/t77yq/scrape-scheduler/internal/storage"
)

// fakeFetcher serves scripted outcomes per target, in order.
type fakeFetcher struct {
	mu       sync.Mutex
	outcomes map[string][]error
	calls    int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{outcomes: make(map[string][]error)}
}

func (f *fakeFetcher) script(target string, errs ...error) {
	f.outcomes[target] = errs
}

func (f *fakeFetcher) Fetch(_ context.Context, target string, _ model.Strategy) (*model.ScrapeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	queue := f.outcomes[target]
	var err error
	if len(queue) > 0 {
		err = queue[0]
		f.outcomes[target] = queue[1:]
	}

	result := &model.ScrapeResult{
		Target:    target,
		Source:    model.StrategyStatic,
		Status:    model.ResultStatusSuccess,
		ScrapedAt: time.Now(),
	}
	if err != nil {
		result.Status = "error: " + err.Error()
		return result, err
	}
	result.Title = "ok"
	return result, nil
}

// fakeStore records inserted results.
type fakeStore struct {
	mu      sync.Mutex
	results []*model.ScrapeResult
}

func (s *fakeStore) InsertResult(_ context.Context, r *model.ScrapeResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return int64(len(s.results)), nil
}

func (s *fakeStore) ListResults(context.Context, int, int) ([]*model.ScrapeResult, error) {
	return nil, nil
}
func (s *fakeStore) InsertJob(context.Context, *model.Job) error        { return nil }
func (s *fakeStore) UpdateJob(context.Context, *model.Job) error        { return nil }
func (s *fakeStore) ListActiveJobs(context.Context) ([]*model.Job, error) {
	return nil, nil
}
func (s *fakeStore) Statistics(context.Context) (*storage.Statistics, error) {
	return &storage.Statistics{}, nil
}
func (s *fakeStore) RecordExport(context.Context, string, int, string) error { return nil }
func (s *fakeStore) Close() error                                            { return nil }

func (s *fakeStore) stored() []*model.ScrapeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.ScrapeResult(nil), s.results...)
}

// fakeSink collects lifecycle callbacks.
type fakeSink struct {
	mu        sync.Mutex
	started   []string
	requeued  []time.Duration
	completed []*model.TaskResult
}

func (s *fakeSink) TaskStarted(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, taskID)
}

func (s *fakeSink) TaskRequeued(_ string, _ int, nextIn time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requeued = append(s.requeued, nextIn)
}

func (s *fakeSink) TaskCompleted(result *model.TaskResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, result)
}

func (s *fakeSink) lastCompleted() *model.TaskResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.completed) == 0 {
		return nil
	}
	return s.completed[len(s.completed)-1]
}

func fetchFailure(target string) error {
	return &scraper.FetchError{Target: target, Err: errors.New("connection reset")}
}

func testTask(targets ...string) *model.Task {
	now := time.Now()
	return &model.Task{
		ID:          "task-" + targets[0],
		Targets:     targets,
		Strategy:    model.StrategyStatic,
		Status:      model.TaskStatusPending,
		CreatedAt:   now,
		ScheduledAt: now,
	}
}

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: &ExponentialBackoff{
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
		},
	}
}

func TestRunSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("Success Stores One Result", func(t *testing.T) {
		fetcher := newFakeFetcher()
		store := &fakeStore{}
		sink := &fakeSink{}
		exec := NewTaskExecutor(fetcher, store, fastPolicy(3), zap.NewNop())
		exec.SetSink(sink)

		task := testTask("https://a.test")
		delay, retry := exec.Run(ctx, task)

		assert.False(t, retry)
		assert.Zero(t, delay)
		assert.Equal(t, model.TaskStatusSucceeded, task.Status)
		require.NotNil(t, task.CompletedAt)

		stored := store.stored()
		require.Len(t, stored, 1)
		assert.True(t, stored[0].Succeeded())

		result := sink.lastCompleted()
		require.NotNil(t, result)
		assert.Equal(t, 1, result.Successful)
		assert.Equal(t, 0, result.Failed)
	})

	t.Run("Transient Failure Requeues Without Storing", func(t *testing.T) {
		fetcher := newFakeFetcher()
		fetcher.script("https://a.test", fetchFailure("https://a.test"), nil)
		store := &fakeStore{}
		sink := &fakeSink{}
		exec := NewTaskExecutor(fetcher, store, fastPolicy(3), zap.NewNop())
		exec.SetSink(sink)

		task := testTask("https://a.test")
		delay, retry := exec.Run(ctx, task)
		require.True(t, retry)
		assert.Positive(t, delay)
		assert.Equal(t, 1, task.Attempts)
		assert.Equal(t, model.TaskStatusPending, task.Status)
		// No record until the task resolves.
		assert.Empty(t, store.stored())
		assert.Len(t, sink.requeued, 1)

		// Second attempt succeeds.
		_, retry = exec.Run(ctx, task)
		assert.False(t, retry)
		assert.Equal(t, model.TaskStatusSucceeded, task.Status)
		require.Len(t, store.stored(), 1)
		assert.True(t, store.stored()[0].Succeeded())
	})

	t.Run("Exhausted Retries Store One Failed Record", func(t *testing.T) {
		fetcher := newFakeFetcher()
		fetcher.script("https://a.test",
			fetchFailure("https://a.test"),
			fetchFailure("https://a.test"),
			fetchFailure("https://a.test"))
		store := &fakeStore{}
		sink := &fakeSink{}
		exec := NewTaskExecutor(fetcher, store, fastPolicy(3), zap.NewNop())
		exec.SetSink(sink)

		task := testTask("https://a.test")

		delay1, retry := exec.Run(ctx, task)
		require.True(t, retry)
		delay2, retry := exec.Run(ctx, task)
		require.True(t, retry)
		assert.Greater(t, delay2, delay1)

		// Third attempt exhausts the budget.
		_, retry = exec.Run(ctx, task)
		assert.False(t, retry)
		assert.Equal(t, model.TaskStatusFailed, task.Status)
		assert.Equal(t, 3, task.Attempts)

		stored := store.stored()
		require.Len(t, stored, 1)
		assert.Contains(t, stored[0].Status, "error:")

		result := sink.lastCompleted()
		require.NotNil(t, result)
		assert.Equal(t, model.TaskStatusFailed, result.Status)
		assert.Equal(t, 1, result.Failed)
		assert.NotEmpty(t, result.Error)
	})

	t.Run("Non Transient Failure Is Terminal", func(t *testing.T) {
		fetcher := newFakeFetcher()
		fetcher.script("https://a.test", fmt.Errorf("unsupported strategy"))
		store := &fakeStore{}
		exec := NewTaskExecutor(fetcher, store, fastPolicy(3), zap.NewNop())

		task := testTask("https://a.test")
		_, retry := exec.Run(ctx, task)

		assert.False(t, retry)
		assert.Equal(t, model.TaskStatusFailed, task.Status)
		assert.Equal(t, 1, task.Attempts)
		require.Len(t, store.stored(), 1)
	})
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Partial Failure Aggregates", func(t *testing.T) {
		fetcher := newFakeFetcher()
		fetcher.script("https://bad.test", fetchFailure("https://bad.test"))
		store := &fakeStore{}
		sink := &fakeSink{}
		exec := NewTaskExecutor(fetcher, store, fastPolicy(3), zap.NewNop())
		exec.SetSink(sink)

		task := testTask("https://good.test", "https://bad.test")
		delay, retry := exec.Run(ctx, task)

		// Batch targets get a single attempt each, never a requeue.
		assert.False(t, retry)
		assert.Zero(t, delay)
		assert.Equal(t, model.TaskStatusFailed, task.Status)

		// Every target leaves a record, including the failed one.
		require.Len(t, store.stored(), 2)

		result := sink.lastCompleted()
		require.NotNil(t, result)
		assert.Equal(t, 1, result.Successful)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Results, 2)
	})

	t.Run("All Success", func(t *testing.T) {
		fetcher := newFakeFetcher()
		store := &fakeStore{}
		sink := &fakeSink{}
		exec := NewTaskExecutor(fetcher, store, fastPolicy(3), zap.NewNop())
		exec.SetSink(sink)

		task := testTask("https://a.test", "https://b.test", "https://c.test")
		_, retry := exec.Run(ctx, task)

		assert.False(t, retry)
		assert.Equal(t, model.TaskStatusSucceeded, task.Status)
		assert.Len(t, store.stored(), 3)
		assert.Equal(t, 3, sink.lastCompleted().Successful)
	})
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		InitialDelay: time.Minute,
		MaxDelay:     30 * time.Minute,
		Multiplier:   2,
	}

	assert.Equal(t, time.Minute, backoff.NextRetry(0))
	assert.Equal(t, 2*time.Minute, backoff.NextRetry(1))
	assert.Equal(t, 4*time.Minute, backoff.NextRetry(2))
	// Capped at the maximum.
	assert.Equal(t, 30*time.Minute, backoff.NextRetry(10))
}

func TestRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.True(t, policy.Retryable(fetchFailure("https://a.test")))
	assert.True(t, policy.Retryable(fmt.Errorf("wrapped: %w", fetchFailure("https://a.test"))))
	assert.False(t, policy.Retryable(errors.New("plain failure")))
	assert.False(t, policy.Retryable(&scraper.StrategyInitError{
		Strategy: model.StrategyBrowser,
		Err:      errors.New("chrome not found"),
	}))
}

func TestPool(t *testing.T) {
	t.Run("Workers Drain Queue", func(t *testing.T) {
		fetcher := newFakeFetcher()
		store := &fakeStore{}
		exec := NewTaskExecutor(fetcher, store, fastPolicy(3), zap.NewNop())

		pool := NewPool(exec, 2, 8, zap.NewNop())
		pool.Start(context.Background())
		defer pool.Stop()

		for i := 0; i < 4; i++ {
			require.NoError(t, pool.Submit(testTask(fmt.Sprintf("https://t%d.test", i))))
		}

		require.Eventually(t, func() bool {
			return len(store.stored()) == 4
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Retry Is Re Enqueued", func(t *testing.T) {
		fetcher := newFakeFetcher()
		fetcher.script("https://flaky.test", fetchFailure("https://flaky.test"), nil)
		store := &fakeStore{}
		exec := NewTaskExecutor(fetcher, store, fastPolicy(3), zap.NewNop())

		pool := NewPool(exec, 1, 8, zap.NewNop())
		pool.Start(context.Background())
		defer pool.Stop()

		require.NoError(t, pool.Submit(testTask("https://flaky.test")))

		require.Eventually(t, func() bool {
			stored := store.stored()
			return len(stored) == 1 && stored[0].Succeeded()
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Full Queue Rejects", func(t *testing.T) {
		exec := NewTaskExecutor(newFakeFetcher(), &fakeStore{}, fastPolicy(3), zap.NewNop())
		pool := NewPool(exec, 1, 1, zap.NewNop())
		// Not started: nothing drains the queue.

		require.NoError(t, pool.Submit(testTask("https://a.test")))
		err := pool.Submit(testTask("https://b.test"))
		assert.ErrorIs(t, err, ErrQueueFull)
		assert.Equal(t, 1, pool.QueueDepth())
	})
}
