// Package scraper implements the two interchangeable content
// extraction strategies: static HTTP retrieval with HTML parsing, and
// scripted headless-browser rendering. Both return the same result
// shape, so callers never branch on which strategy ran.
package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

// Fetcher produces a normalized result record for one target.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*model.ScrapeResult, error)
}

// Config holds scraper tuning knobs.
type Config struct {
	UserAgent       string
	Timeout         time.Duration // per-fetch bound, static and browser page load
	WaitTimeout     time.Duration // browser wait for document body
	SettleDelay     time.Duration // browser post-load settle for scripts
	RequestInterval time.Duration // minimum spacing between fetches
}

// DefaultConfig returns the stock scraper configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		Timeout:         30 * time.Second,
		WaitTimeout:     5 * time.Second,
		SettleDelay:     2 * time.Second,
		RequestInterval: time.Second,
	}
}

// Scraper dispatches fetches to the strategy named by the caller. When
// the browser strategy cannot be initialized it degrades to the static
// strategy and records the substitution in the result metadata.
type Scraper struct {
	logger  *zap.Logger
	static  *StaticScraper
	browser *BrowserScraper
	limiter *rate.Limiter
}

// New creates a scraper with both strategies. The browser side is
// initialized lazily on first use.
func New(cfg Config, logger *zap.Logger) *Scraper {
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Scraper{
		logger:  logger,
		static:  NewStatic(cfg, logger),
		browser: NewBrowser(cfg, logger),
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Fetch retrieves one target with the requested strategy. On failure
// the returned result carries an "error: <cause>" status alongside the
// error, so failures can still be persisted.
func (s *Scraper) Fetch(ctx context.Context, target string, strategy model.Strategy) (*model.ScrapeResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return errorResult(target, strategy, err), &FetchError{Target: target, Err: err}
	}

	switch strategy {
	case model.StrategyStatic:
		return s.static.Fetch(ctx, target)
	case model.StrategyBrowser:
		if err := s.browser.Ready(); err != nil {
			s.logger.Warn("Browser strategy unavailable, degrading to static",
				zap.String("target", target),
				zap.Error(err))
			result, ferr := s.static.Fetch(ctx, target)
			result.Metadata.Set("degraded", "browser unavailable")
			return result, ferr
		}
		return s.browser.Fetch(ctx, target)
	default:
		return errorResult(target, strategy, ErrUnsupportedStrategy), ErrUnsupportedStrategy
	}
}

// Close releases any browser resources.
func (s *Scraper) Close() {
	s.browser.Close()
}

func errorResult(target string, strategy model.Strategy, err error) *model.ScrapeResult {
	return &model.ScrapeResult{
		Target:    target,
		Metadata:  model.Metadata{},
		Source:    strategy,
		Status:    "error: " + err.Error(),
		ScrapedAt: time.Now(),
	}
}
