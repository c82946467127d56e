package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/metrics"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// Middleware wraps command execution with a cross-cutting concern.
type Middleware func(Command) Command

// wrappedCommand delegates metadata to the wrapped command and replaces Execute.
type wrappedCommand struct {
	wrapped Command
	execute func(ctx context.Context, st *run.State) Execution
}

func (m *wrappedCommand) Name() StepName           { return m.wrapped.Name() }
func (m *wrappedCommand) Description() string      { return m.wrapped.Description() }
func (m *wrappedCommand) Dependencies() []StepName { return m.wrapped.Dependencies() }
func (m *wrappedCommand) Execute(ctx context.Context, st *run.State) Execution {
	return m.execute(ctx, st)
}

// Chain applies multiple middleware to a command in order.
func Chain(cmd Command, middlewares ...Middleware) Command {
	// Apply in reverse so they execute in declaration order.
	for i := len(middlewares) - 1; i >= 0; i-- {
		cmd = middlewares[i](cmd)
	}
	return cmd
}

// ContextMiddleware fails fast when the run context is already cancelled.
func ContextMiddleware() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{wrapped: cmd, execute: func(ctx context.Context, st *run.State) Execution {
			select {
			case <-ctx.Done():
				return ExecutionFailure(run.NewCanceledStepError(string(cmd.Name()), ctx.Err()))
			default:
				return cmd.Execute(ctx, st)
			}
		}}
	}
}

// RecoveryMiddleware converts step panics into fatal step errors.
func RecoveryMiddleware() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{wrapped: cmd, execute: func(ctx context.Context, st *run.State) (result Execution) {
			defer func() {
				if r := recover(); r != nil {
					result = ExecutionFailure(run.NewFatalStepError(string(cmd.Name()), fmt.Errorf("panic: %v", r)))
				}
			}()
			return cmd.Execute(ctx, st)
		}}
	}
}

// LoggingMiddleware logs step start and outcome.
func LoggingMiddleware() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{wrapped: cmd, execute: func(ctx context.Context, st *run.State) Execution {
			slog.Debug("Step starting", logfields.Step(string(cmd.Name())), logfields.RunID(st.Run.ID))
			result := cmd.Execute(ctx, st)
			if result.IsSuccess() {
				slog.Debug("Step completed", logfields.Step(string(cmd.Name())), logfields.RunID(st.Run.ID))
			} else {
				slog.Error("Step failed",
					logfields.Step(string(cmd.Name())),
					logfields.RunID(st.Run.ID),
					logfields.Error(result.Err))
			}
			return result
		}}
	}
}

// TimingMiddleware records step durations into the run report and metrics.
func TimingMiddleware(recorder metrics.Recorder) Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{wrapped: cmd, execute: func(ctx context.Context, st *run.State) Execution {
			start := time.Now()
			result := cmd.Execute(ctx, st)
			d := time.Since(start)
			st.Report.RecordStepDuration(string(cmd.Name()), d)
			if recorder != nil {
				recorder.ObserveStepDuration(string(cmd.Name()), d)
				recorder.IncStepResult(string(cmd.Name()), resultLabel(result))
			}
			return result
		}}
	}
}

func resultLabel(r Execution) metrics.ResultLabel {
	if r.IsSuccess() {
		return metrics.ResultSuccess
	}
	return metrics.ResultFailed
}

// DefaultMiddleware returns the standard middleware stack.
func DefaultMiddleware(recorder metrics.Recorder) []Middleware {
	return []Middleware{
		ContextMiddleware(),
		RecoveryMiddleware(),
		LoggingMiddleware(),
		TimingMiddleware(recorder),
	}
}
