package schedule

import "errors"

// ErrInvalidSchedule is returned when a recurrence declaration cannot
// be parsed. Callers are expected to fall back to the hourly cadence
// rather than drop the scheduling request.
var ErrInvalidSchedule = errors.New("invalid recurrence spec")
