package scraper

import (
	"errors"
	"fmt"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

// ErrUnsupportedStrategy is returned when a task names a strategy the
// scraper does not implement.
var ErrUnsupportedStrategy = errors.New("unsupported scrape strategy")

// FetchError wraps a transport, parse or render failure. Fetch errors
// are retryable.
type FetchError struct {
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Target, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StrategyInitError is returned when a strategy cannot be brought up,
// e.g. no browser binary is available. The scraper recovers by
// degrading to the static strategy.
type StrategyInitError struct {
	Strategy model.Strategy
	Err      error
}

func (e *StrategyInitError) Error() string {
	return fmt.Sprintf("strategy %s unavailable: %v", e.Strategy, e.Err)
}

func (e *StrategyInitError) Unwrap() error {
	return e.Err
}
