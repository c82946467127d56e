package run

import (
	"time"

	"github.com/google/uuid"
)

// Reason records what triggered a run.
type Reason string

const (
	ReasonUpstream Reason = "upstream" // upstream workflow completion event
	ReasonSchedule Reason = "schedule" // cron/interval schedule
	ReasonWatch    Reason = "watch"    // file watcher
	ReasonManual   Reason = "manual"   // CLI or HTTP request
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Run is one execution of a workflow definition.
type Run struct {
	ID          string        `json:"id"`
	Workflow    string        `json:"workflow"`
	Reason      Reason        `json:"reason"`
	Group       string        `json:"concurrency_group,omitempty"`
	Branch      string        `json:"branch,omitempty"` // source branch the trigger reported
	Commit      string        `json:"commit,omitempty"` // resolved during checkout
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// New creates a queued run with a fresh ID.
func New(workflow string, reason Reason) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Workflow:  workflow,
		Reason:    reason,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}
