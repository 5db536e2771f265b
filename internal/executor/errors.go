package executor

import "errors"

var (
	// ErrQueueFull is returned when the worker pool cannot accept more
	// tasks without blocking.
	ErrQueueFull = errors.New("task queue full")
)
