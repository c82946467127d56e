package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/retry"
	"git.home.luguber.info/inful/docpub/internal/run"
)

type fakeCommand struct {
	name    StepName
	deps    []StepName
	execute func(ctx context.Context, st *run.State) Execution
	calls   int
}

func (c *fakeCommand) Name() StepName           { return c.name }
func (c *fakeCommand) Description() string      { return string(c.name) }
func (c *fakeCommand) Dependencies() []StepName { return c.deps }
func (c *fakeCommand) Execute(ctx context.Context, st *run.State) Execution {
	c.calls++
	if c.execute == nil {
		return ExecutionSuccess()
	}
	return c.execute(ctx, st)
}

func testState() *run.State {
	wf := &config.Workflow{Name: "docs", Source: config.Repository{Name: "repo"}}
	return run.NewState(run.New("docs", run.ReasonManual), wf, "/tmp/ws")
}

func newTestPipeline(t *testing.T, registry *Registry, opts ...Option) *Pipeline {
	t.Helper()
	p := New(registry, opts...)
	p.sleep = func(context.Context, time.Duration) {} // no real backoff in tests
	return p
}

func TestBuildPlan_TopologicalOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&fakeCommand{name: "a"})
	r.MustRegister(&fakeCommand{name: "b", deps: []StepName{"a"}})
	r.MustRegister(&fakeCommand{name: "c", deps: []StepName{"b"}})

	p := newTestPipeline(t, r)
	plan, err := p.BuildPlan([]StepName{"c"})
	require.NoError(t, err)
	require.Equal(t, []StepName{"a", "b", "c"}, plan.Order)
}

func TestBuildPlan_CycleDetected(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&fakeCommand{name: "a", deps: []StepName{"b"}})
	r.MustRegister(&fakeCommand{name: "b", deps: []StepName{"a"}})

	p := newTestPipeline(t, r)
	_, err := p.BuildPlan([]StepName{"a"})
	require.ErrorContains(t, err, "circular dependency")
}

func TestBuildPlan_UnknownStep(t *testing.T) {
	p := newTestPipeline(t, NewRegistry())
	_, err := p.BuildPlan([]StepName{"nope"})
	require.Error(t, err)
}

func TestExecute_StopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	first := &fakeCommand{name: "a", execute: func(context.Context, *run.State) Execution {
		return ExecutionFailure(run.NewFatalStepError("a", boom))
	}}
	second := &fakeCommand{name: "b", deps: []StepName{"a"}}

	r := NewRegistry()
	r.MustRegister(first)
	r.MustRegister(second)

	p := newTestPipeline(t, r)
	result, err := p.Execute(context.Background(), testState(), "b")
	require.Error(t, err)
	require.False(t, result.IsSuccess())
	require.Equal(t, []StepName{"a"}, result.FailedSteps())
	require.Zero(t, second.calls, "dependent step must not run after failure")
}

func TestExecute_SkipHaltsRemainingSteps(t *testing.T) {
	first := &fakeCommand{name: "a", execute: func(context.Context, *run.State) Execution {
		return ExecutionSuccessWithSkip()
	}}
	second := &fakeCommand{name: "b", deps: []StepName{"a"}}

	r := NewRegistry()
	r.MustRegister(first)
	r.MustRegister(second)

	p := newTestPipeline(t, r)
	result, err := p.Execute(context.Background(), testState(), "b")
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.True(t, result.IsSuccess())
	require.Zero(t, second.calls)
}

func TestExecute_RetriesTransientError(t *testing.T) {
	attempts := 0
	flaky := &fakeCommand{name: "a", execute: func(context.Context, *run.State) Execution {
		attempts++
		if attempts < 3 {
			// Checkout-class failures are transient by classification.
			return ExecutionFailure(run.NewFatalStepError("a", run.ErrCheckout))
		}
		return ExecutionSuccess()
	}}

	r := NewRegistry()
	r.MustRegister(flaky)

	policy := retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 5)
	p := newTestPipeline(t, r, WithRetryPolicy(policy))

	result, err := p.Execute(context.Background(), testState(), "a")
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	require.Equal(t, 3, attempts)
}

func TestExecute_RetriesExhausted(t *testing.T) {
	always := &fakeCommand{name: "a", execute: func(context.Context, *run.State) Execution {
		return ExecutionFailure(run.NewFatalStepError("a", run.ErrDeploy))
	}}

	r := NewRegistry()
	r.MustRegister(always)

	policy := retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	p := newTestPipeline(t, r, WithRetryPolicy(policy))

	result, err := p.Execute(context.Background(), testState(), "a")
	require.Error(t, err)
	require.False(t, result.IsSuccess())
	require.Equal(t, 3, always.calls, "initial attempt plus two retries")
}

func TestExecute_CancelDuringRetryBackoff(t *testing.T) {
	flaky := &fakeCommand{name: "a", execute: func(context.Context, *run.State) Execution {
		return ExecutionFailure(run.NewFatalStepError("a", run.ErrCheckout))
	}}
	r := NewRegistry()
	r.MustRegister(flaky)

	// Backoff far beyond the test timeout; only cancellation can end it.
	policy := retry.NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 5)
	p := New(r, WithRetryPolicy(policy))

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(c context.Context, d time.Duration) {
		cancel()
		sleepContext(c, d)
	}

	done := make(chan *Result, 1)
	go func() {
		result, _ := p.Execute(ctx, testState(), "a")
		done <- result
	}()

	var result *Result
	select {
	case result = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("backoff did not honor context cancellation")
	}

	require.Equal(t, 1, flaky.calls, "no retry after cancellation")
	var stepErr *run.StepError
	require.ErrorAs(t, result.ExecutedSteps["a"].Err, &stepErr)
	require.Equal(t, run.StepErrorCanceled, stepErr.Kind)
}

func TestExecute_NonTransientNotRetried(t *testing.T) {
	failing := &fakeCommand{name: "a", execute: func(context.Context, *run.State) Execution {
		return ExecutionFailure(run.NewFatalStepError("a", run.ErrBuild))
	}}

	r := NewRegistry()
	r.MustRegister(failing)

	p := newTestPipeline(t, r)
	_, err := p.Execute(context.Background(), testState(), "a")
	require.Error(t, err)
	require.Equal(t, 1, failing.calls)
}

func TestExecute_PublishesLifecycleEvents(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&fakeCommand{name: "a"})

	bus := NewBus()
	var got []string
	for _, name := range []string{EventRunStarted, EventStepCompleted, EventRunCompleted} {
		n := name
		bus.Subscribe(n, func(e Event) error {
			got = append(got, n)
			return nil
		})
	}

	p := newTestPipeline(t, r, WithBus(bus))
	_, err := p.Execute(context.Background(), testState(), "a")
	require.NoError(t, err)
	require.Equal(t, []string{EventRunStarted, EventStepCompleted, EventRunCompleted}, got)
}

func TestExecute_CanceledContext(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&fakeCommand{name: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, r)
	result, err := p.Execute(ctx, testState(), "a")
	require.Error(t, err)
	require.True(t, result.Canceled)
}
