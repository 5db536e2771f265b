package scraper

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

// BrowserScraper drives a headless browser and extracts from the
// rendered document, so script-generated content is visible. It uses
// the same selector heuristic as the static strategy, operating on the
// live rendered tree instead of raw response bytes.
type BrowserScraper struct {
	logger      *zap.Logger
	userAgent   string
	timeout     time.Duration
	waitTimeout time.Duration
	settleDelay time.Duration

	initOnce    sync.Once
	initErr     error
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewBrowser creates the browser strategy. The browser process is not
// started until the first fetch.
func NewBrowser(cfg Config, logger *zap.Logger) *BrowserScraper {
	return &BrowserScraper{
		logger:      logger.Named("browser"),
		userAgent:   cfg.UserAgent,
		timeout:     cfg.Timeout,
		waitTimeout: cfg.WaitTimeout,
		settleDelay: cfg.SettleDelay,
	}
}

// Ready initializes the browser allocator on first call and reports
// whether the strategy is usable. A failed init is permanent for the
// life of the scraper; callers degrade to the static strategy.
func (b *BrowserScraper) Ready() error {
	b.initOnce.Do(b.init)
	return b.initErr
}

func (b *BrowserScraper) init() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.UserAgent(b.userAgent),
	)
	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)

	// Launch once up front so a missing browser binary surfaces as a
	// StrategyInitError instead of failing every fetch.
	probeCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()
	probeCtx, cancelTimeout := context.WithTimeout(probeCtx, b.waitTimeout)
	defer cancelTimeout()

	if err := chromedp.Run(probeCtx); err != nil {
		b.initErr = &StrategyInitError{Strategy: model.StrategyBrowser, Err: err}
		b.allocCancel()
		return
	}

	b.logger.Info("Headless browser initialized")
}

// Fetch implements Fetcher. The page-load timeout and the body
// ready-wait timeout are the only termination devices for a stuck
// render.
func (b *BrowserScraper) Fetch(ctx context.Context, target string) (*model.ScrapeResult, error) {
	if err := b.Ready(); err != nil {
		return errorResult(target, model.StrategyBrowser, err), err
	}
	if err := ctx.Err(); err != nil {
		return errorResult(target, model.StrategyBrowser, err), &FetchError{Target: target, Err: err}
	}

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	b.logger.Debug("Rendering target", zap.String("target", target))

	var title, html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(target),
		waitForBody(b.waitTimeout),
		chromedp.Sleep(b.settleDelay),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return errorResult(target, model.StrategyBrowser, err), &FetchError{Target: target, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return errorResult(target, model.StrategyBrowser, err), &FetchError{Target: target, Err: err}
	}

	return &model.ScrapeResult{
		Target:    target,
		Title:     title,
		Content:   extractContent(doc),
		Metadata:  extractMetadata(doc),
		Source:    model.StrategyBrowser,
		Status:    model.ResultStatusSuccess,
		ScrapedAt: time.Now(),
	}, nil
}

// waitForBody waits, bounded, for the document body to be present in
// the rendered tree.
func waitForBody(timeout time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return chromedp.WaitReady("body", chromedp.ByQuery).Do(ctx)
	}
}

// Close shuts the browser process down.
func (b *BrowserScraper) Close() {
	if b.allocCancel != nil && b.initErr == nil {
		b.allocCancel()
	}
}
