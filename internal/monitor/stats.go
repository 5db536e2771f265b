package monitor

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/storage"
)

// QueueGauge reports how many tasks are waiting for a worker.
type QueueGauge interface {
	QueueDepth() int
}

// StatsCollector periodically samples system load and pipeline counts
// and writes them to the log.
type StatsCollector struct {
	logger   *zap.Logger
	store    storage.ResultStore
	gauge    QueueGauge
	interval time.Duration
	stop     chan struct{}
}

// NewStatsCollector creates a stats collector.
func NewStatsCollector(store storage.ResultStore, gauge QueueGauge, interval time.Duration, logger *zap.Logger) *StatsCollector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsCollector{
		logger:   logger.Named("stats-collector"),
		store:    store,
		gauge:    gauge,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start starts the collection loop.
func (c *StatsCollector) Start(ctx context.Context) {
	c.logger.Info("Starting stats collector", zap.Duration("interval", c.interval))
	go c.collectLoop(ctx)
}

// Stop stops the collector.
func (c *StatsCollector) Stop() {
	c.logger.Info("Stopping stats collector")
	close(c.stop)
}

func (c *StatsCollector) collectLoop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *StatsCollector) collect(ctx context.Context) {
	fields := []zap.Field{
		zap.Int("queue_depth", c.gauge.QueueDepth()),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		fields = append(fields, zap.Float64("cpu_percent", percents[0]))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, zap.Float64("memory_percent", vm.UsedPercent))
	}

	stats, err := c.store.Statistics(ctx)
	if err != nil {
		c.logger.Error("Failed to collect store statistics", zap.Error(err))
	} else {
		fields = append(fields,
			zap.Int("total_results", stats.TotalResults),
			zap.Int("active_jobs", stats.ActiveJobs))
	}

	c.logger.Info("Pipeline stats", fields...)
}
