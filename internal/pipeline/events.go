package pipeline

// Event is a domain event published by the pipeline and consumed by handlers.
type Event interface{ Name() string }

// Event names used in the pipeline.
const (
	EventRunStarted    = "RunStarted"
	EventStepCompleted = "StepCompleted"
	EventRunCompleted  = "RunCompleted"
)

// RunStarted is published when pipeline execution begins.
type RunStarted struct {
	RunID    string
	Workflow string
}

func (RunStarted) Name() string { return EventRunStarted }

// GetRunID exposes the run ID for event store persistence.
func (e RunStarted) GetRunID() string { return e.RunID }

// StepCompleted is published after each step finishes (success or failure).
type StepCompleted struct {
	RunID   string
	Step    string
	Success bool
}

func (StepCompleted) Name() string       { return EventStepCompleted }
func (e StepCompleted) GetRunID() string { return e.RunID }

// RunCompleted is published when pipeline execution ends.
type RunCompleted struct {
	RunID   string
	Success bool
}

func (RunCompleted) Name() string       { return EventRunCompleted }
func (e RunCompleted) GetRunID() string { return e.RunID }
