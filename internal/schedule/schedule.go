// Package schedule translates recurrence declarations into concrete
// trigger times. A declaration is either a named cadence (hourly,
// daily, weekly) or a custom five-field form
// "cron:minute,hour,day,month,weekday" where each field is a literal
// or "*".
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	TokenHourly = "hourly"
	TokenDaily  = "daily"
	TokenWeekly = "weekly"

	cronPrefix = "cron:"
)

var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Recurrence is a parsed recurrence declaration.
type Recurrence struct {
	raw   string
	expr  string
	sched cron.Schedule
}

// Parse parses a recurrence declaration. Malformed declarations return
// an error wrapping ErrInvalidSchedule; the caller decides the
// fallback policy.
func Parse(spec string) (Recurrence, error) {
	raw := strings.TrimSpace(spec)

	var expr string
	switch raw {
	case TokenHourly:
		expr = "0 * * * *" // every hour at minute 0
	case TokenDaily:
		expr = "0 0 * * *" // every day at midnight
	case TokenWeekly:
		expr = "0 0 * * 0" // every Sunday at midnight
	default:
		if !strings.HasPrefix(raw, cronPrefix) {
			return Recurrence{}, fmt.Errorf("%w: unknown cadence %q", ErrInvalidSchedule, raw)
		}
		fields := strings.Split(strings.TrimPrefix(raw, cronPrefix), ",")
		if len(fields) != 5 {
			return Recurrence{}, fmt.Errorf("%w: expected 5 fields (minute,hour,day,month,weekday), got %d", ErrInvalidSchedule, len(fields))
		}
		for i, f := range fields {
			fields[i] = strings.TrimSpace(f)
		}
		expr = strings.Join(fields, " ")
	}

	sched, err := specParser.Parse(expr)
	if err != nil {
		return Recurrence{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	return Recurrence{raw: raw, expr: expr, sched: sched}, nil
}

// Hourly returns the hourly cadence. It is the documented fallback for
// malformed declarations.
func Hourly() Recurrence {
	rec, err := Parse(TokenHourly)
	if err != nil {
		panic(err) // static expression, cannot fail
	}
	return rec
}

// Next returns the next fire time strictly after from.
func (r Recurrence) Next(from time.Time) time.Time {
	return r.sched.Next(from)
}

// String returns the declaration as given by the caller.
func (r Recurrence) String() string {
	return r.raw
}
