package model

import (
	"time"
)

// TaskStatus represents the current status of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task represents one concrete scrape execution covering one or more
// targets. A task is spawned either by a job firing or by an immediate
// or batch request.
type Task struct {
	ID       string   `json:"id"`
	JobID    string   `json:"job_id,omitempty"`
	Targets  []string `json:"targets"`
	Strategy Strategy `json:"strategy"`

	Status   TaskStatus `json:"status"`
	Attempts int        `json:"attempts"`

	// Timing fields
	CreatedAt   time.Time  `json:"created_at"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// Terminal reports whether the task has reached a final status.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusSucceeded || t.Status == TaskStatusFailed
}

// TaskResult represents the aggregated outcome of a task execution.
// Batch tasks carry one ScrapeResult per target.
type TaskResult struct {
	TaskID      string          `json:"task_id"`
	Status      TaskStatus      `json:"status"`
	Successful  int             `json:"successful"`
	Failed      int             `json:"failed"`
	Results     []*ScrapeResult `json:"results,omitempty"`
	Error       string          `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}
