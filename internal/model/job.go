package model

import (
	"time"
)

// JobStatus represents the lifecycle state of a scraping job
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusInactive JobStatus = "inactive"
)

// Job represents a durable recurring scraping intent. Jobs are never
// physically deleted; unscheduling flips the status to inactive.
type Job struct {
	ID       string    `json:"id"`
	Target   string    `json:"target"`
	Schedule string    `json:"schedule"`
	Strategy Strategy  `json:"strategy"`
	Status   JobStatus `json:"status"`

	CreatedAt time.Time  `json:"created_at"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// Active reports whether the job is still eligible to fire.
func (j *Job) Active() bool {
	return j.Status == JobStatusActive
}
