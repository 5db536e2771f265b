package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/config"
	"github.com/t77yq/scrape-scheduler/internal/executor"
	"github.com/t77yq/scrape-scheduler/internal/scheduler"
	"github.com/t77yq/scrape-scheduler/internal/scraper"
	"github.com/t77yq/scrape-scheduler/internal/storage"
)

// app wires the pipeline together for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *storage.SQLiteStore
	scraper *scraper.Scraper
	exec    *executor.TaskExecutor
	pool    *executor.Pool
	sched   *scheduler.Scheduler
}

func newApp() (*app, error) {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(logger, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	scr := scraper.New(scraper.Config{
		UserAgent:       cfg.Scraper.UserAgent,
		Timeout:         cfg.Scraper.Timeout,
		WaitTimeout:     cfg.Scraper.WaitTimeout,
		SettleDelay:     cfg.Scraper.SettleDelay,
		RequestInterval: cfg.Scraper.RequestInterval,
	}, logger)

	policy := executor.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: &executor.ExponentialBackoff{
			InitialDelay: cfg.Retry.BaseDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
		},
	}

	exec := executor.NewTaskExecutor(scr, store, policy, logger)
	pool := executor.NewPool(exec, cfg.Pool.Workers, cfg.Pool.QueueSize, logger)
	sched := scheduler.New(store, pool, cfg.Scheduler.TickInterval, logger)
	exec.SetSink(sched)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		scraper: scr,
		exec:    exec,
		pool:    pool,
		sched:   sched,
	}, nil
}

func (a *app) Close() {
	a.scraper.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
