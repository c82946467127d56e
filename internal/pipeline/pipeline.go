// Package pipeline orchestrates the execution of step commands in dependency
// order, with middleware for logging, metrics and recovery, and retry of
// transient failures.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/metrics"
	"git.home.luguber.info/inful/docpub/internal/retry"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// Pipeline orchestrates the execution of step commands in dependency order.
type Pipeline struct {
	registry    *Registry
	middleware  []Middleware
	stopOnError bool
	policy      retry.Policy
	recorder    metrics.Recorder
	bus         *Bus
	sleep       func(context.Context, time.Duration) // test seam for backoff
}

// Option configures pipeline behavior.
type Option func(*Pipeline)

// WithMiddleware replaces the middleware stack.
func WithMiddleware(mw ...Middleware) Option {
	return func(p *Pipeline) { p.middleware = mw }
}

// WithStopOnError configures whether the pipeline stops on first error.
func WithStopOnError(stop bool) Option {
	return func(p *Pipeline) { p.stopOnError = stop }
}

// WithRetryPolicy sets the retry policy for transient step failures.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = recorder }
}

// WithBus sets the event bus lifecycle events are published to.
func WithBus(bus *Bus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// New creates a step pipeline over the given registry.
func New(registry *Registry, options ...Option) *Pipeline {
	p := &Pipeline{
		registry:    registry,
		stopOnError: true,
		policy:      retry.DefaultPolicy(),
		recorder:    metrics.NoopRecorder{},
		sleep:       sleepContext,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.middleware == nil {
		p.middleware = DefaultMiddleware(p.recorder)
	}
	return p
}

// Plan represents the planned execution order of commands.
type Plan struct {
	Order []StepName
	Graph map[StepName][]StepName // adjacency list of dependents
}

// BuildPlan creates an execution plan based on command dependencies.
func (p *Pipeline) BuildPlan(steps []StepName) (*Plan, error) {
	if len(steps) == 0 {
		return &Plan{Order: []StepName{}, Graph: make(map[StepName][]StepName)}, nil
	}

	for _, step := range steps {
		if _, exists := p.registry.Get(step); !exists {
			return nil, fmt.Errorf("step %s not found in registry", step)
		}
	}

	graph := make(map[StepName][]StepName)
	inDegree := make(map[StepName]int)

	stepSet := make(map[StepName]bool)
	for _, step := range steps {
		stepSet[step] = true
	}

	// Add dependencies transitively.
	var addDependencies func(StepName) error
	addDependencies = func(step StepName) error {
		cmd, exists := p.registry.Get(step)
		if !exists {
			return fmt.Errorf("dependency %s not found", step)
		}
		for _, dep := range cmd.Dependencies() {
			if !stepSet[dep] {
				stepSet[dep] = true
				if err := addDependencies(dep); err != nil {
					return err
				}
			}
			graph[dep] = append(graph[dep], step)
		}
		return nil
	}
	for _, step := range steps {
		if err := addDependencies(step); err != nil {
			return nil, fmt.Errorf("resolving dependencies for %s: %w", step, err)
		}
	}

	for step := range stepSet {
		inDegree[step] = 0
	}
	for _, dependents := range graph {
		for _, dependent := range dependents {
			inDegree[dependent]++
		}
	}

	// Topological sort with deterministic tie-breaking.
	var order []StepName
	queue := make([]StepName, 0)
	for step, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, step)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		dependents := graph[current]
		sort.Slice(dependents, func(i, j int) bool { return dependents[i] < dependents[j] })
		for _, dependent := range dependents {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(stepSet) {
		return nil, fmt.Errorf("circular dependency detected among steps")
	}
	return &Plan{Order: order, Graph: graph}, nil
}

// Result contains the results of pipeline execution.
type Result struct {
	ExecutedSteps map[StepName]Execution
	Plan          *Plan
	Canceled      bool
	Skipped       bool
}

// IsSuccess returns true if all executed steps completed successfully.
func (r *Result) IsSuccess() bool {
	if r.Canceled {
		return false
	}
	for _, result := range r.ExecutedSteps {
		if !result.IsSuccess() {
			return false
		}
	}
	return true
}

// FailedSteps returns the names of steps that failed.
func (r *Result) FailedSteps() []StepName {
	var failed []StepName
	for step, result := range r.ExecutedSteps {
		if !result.IsSuccess() {
			failed = append(failed, step)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return failed
}

// Execute runs the pipeline with the given steps.
func (p *Pipeline) Execute(ctx context.Context, st *run.State, steps ...StepName) (*Result, error) {
	plan, err := p.BuildPlan(steps)
	if err != nil {
		return nil, fmt.Errorf("building execution plan: %w", err)
	}

	slog.Info("Executing pipeline",
		logfields.RunID(st.Run.ID),
		slog.Int("steps", len(plan.Order)),
		slog.Any("order", plan.Order))

	result := &Result{
		ExecutedSteps: make(map[StepName]Execution),
		Plan:          plan,
	}
	p.publish(RunStarted{RunID: st.Run.ID, Workflow: st.Workflow.Name})

	for _, stepName := range plan.Order {
		select {
		case <-ctx.Done():
			result.ExecutedSteps[stepName] = ExecutionFailure(ctx.Err())
			result.Canceled = true
			p.publish(RunCompleted{RunID: st.Run.ID, Success: false})
			return result, ctx.Err()
		default:
		}

		cmd, exists := p.registry.Get(stepName)
		if !exists {
			err := fmt.Errorf("step %s not found during execution", stepName)
			result.ExecutedSteps[stepName] = ExecutionFailure(err)
			if p.stopOnError {
				return result, err
			}
			continue
		}

		wrapped := Chain(cmd, p.middleware...)
		stepResult := p.executeWithRetry(ctx, wrapped, st)
		result.ExecutedSteps[stepName] = stepResult
		p.publish(StepCompleted{RunID: st.Run.ID, Step: string(stepName), Success: stepResult.IsSuccess()})

		if !stepResult.IsSuccess() && p.stopOnError {
			p.publish(RunCompleted{RunID: st.Run.ID, Success: false})
			return result, stepResult.Err
		}
		if stepResult.ShouldSkip() {
			slog.Info("Pipeline skip requested", logfields.Step(string(stepName)), logfields.RunID(st.Run.ID))
			result.Skipped = true
			break
		}
	}

	p.publish(RunCompleted{RunID: st.Run.ID, Success: result.IsSuccess()})
	return result, nil
}

// ExecuteAll runs all registered steps in dependency order.
func (p *Pipeline) ExecuteAll(ctx context.Context, st *run.State) (*Result, error) {
	return p.Execute(ctx, st, p.registry.List()...)
}

// executeWithRetry retries a step on transient failure per the policy.
func (p *Pipeline) executeWithRetry(ctx context.Context, cmd Command, st *run.State) Execution {
	var result Execution
	for attempt := 0; ; attempt++ {
		result = cmd.Execute(ctx, st)
		if result.IsSuccess() || !transient(result.Err) {
			return result
		}
		if attempt >= p.policy.MaxRetries {
			if p.recorder != nil {
				p.recorder.IncStepRetryExhausted(string(cmd.Name()))
			}
			slog.Warn("Transient error but retries exhausted",
				logfields.Step(string(cmd.Name())),
				logfields.RunID(st.Run.ID),
				slog.Int("attempts", attempt+1))
			return result
		}
		delay := p.policy.Delay(attempt + 1)
		if p.recorder != nil {
			p.recorder.IncStepRetry(string(cmd.Name()))
		}
		slog.Warn("Transient step error, retrying",
			logfields.Step(string(cmd.Name())),
			logfields.RunID(st.Run.ID),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			logfields.Error(result.Err))
		p.sleep(ctx, delay)
		if ctx.Err() != nil {
			return ExecutionFailure(run.NewCanceledStepError(string(cmd.Name()), ctx.Err()))
		}
	}
}

// sleepContext waits for the backoff delay but returns early on cancellation
// so shutdown is not held up by pending retries.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func transient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}

func (p *Pipeline) publish(e Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(e); err != nil {
		slog.Warn("Event handler failed", slog.String("event", e.Name()), logfields.Error(err))
	}
}
