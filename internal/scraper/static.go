package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

// StaticScraper fetches a target with a plain HTTP GET and parses the
// response body.
type StaticScraper struct {
	logger    *zap.Logger
	client    *http.Client
	userAgent string
}

// NewStatic creates the static strategy.
func NewStatic(cfg Config, logger *zap.Logger) *StaticScraper {
	return &StaticScraper{
		logger: logger.Named("static"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
	}
}

// Fetch implements Fetcher. Transport and parse failures return a
// FetchError together with an error-status result record.
func (s *StaticScraper) Fetch(ctx context.Context, target string) (*model.ScrapeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errorResult(target, model.StrategyStatic, err), &FetchError{Target: target, Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)

	s.logger.Debug("Fetching target", zap.String("target", target))

	resp, err := s.client.Do(req)
	if err != nil {
		return errorResult(target, model.StrategyStatic, err), &FetchError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("request failed with status: %d", resp.StatusCode)
		return errorResult(target, model.StrategyStatic, err), &FetchError{Target: target, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to parse response: %w", err)
		return errorResult(target, model.StrategyStatic, err), &FetchError{Target: target, Err: err}
	}

	metadata := extractMetadata(doc)
	metadata.Set("status_code", resp.StatusCode)
	metadata.Set("content_type", resp.Header.Get("Content-Type"))

	return &model.ScrapeResult{
		Target:    target,
		Title:     extractTitle(doc),
		Content:   extractContent(doc),
		Metadata:  metadata,
		Source:    model.StrategyStatic,
		Status:    model.ResultStatusSuccess,
		ScrapedAt: time.Now(),
	}, nil
}
