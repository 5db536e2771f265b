package scheduler

import "errors"

var (
	// ErrJobNotFound is returned when a job id is unknown
	ErrJobNotFound = errors.New("job not found")

	// ErrTaskNotFound is returned when a task id is unknown
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoTargets is returned when a batch request carries no targets
	ErrNoTargets = errors.New("no targets given")
)
