package pipeline

import (
	"context"

	"git.home.luguber.info/inful/docpub/internal/run"
)

// StepName identifies a pipeline step.
type StepName string

// Built-in step names in their canonical execution order.
const (
	StepCheckout     StepName = "checkout"
	StepToolchain    StepName = "toolchain"
	StepCacheRestore StepName = "cache-restore"
	StepInstall      StepName = "install"
	StepCacheSave    StepName = "cache-save"
	StepBuild        StepName = "build"
	StepVerify       StepName = "verify"
	StepDeploy       StepName = "deploy"
)

// Command is one executable pipeline step.
type Command interface {
	Name() StepName
	Description() string
	Dependencies() []StepName
	Execute(ctx context.Context, st *run.State) Execution
}

// Execution represents the structured result of a step execution.
type Execution struct {
	Err  error
	Skip bool // skip remaining steps
}

// ExecutionSuccess returns a successful step execution result.
func ExecutionSuccess() Execution { return Execution{} }

// ExecutionSuccessWithSkip returns success while skipping remaining steps.
func ExecutionSuccessWithSkip() Execution { return Execution{Skip: true} }

// ExecutionFailure returns a failed step execution result.
func ExecutionFailure(err error) Execution { return Execution{Err: err} }

// IsSuccess returns true if the step completed successfully (no error).
func (r Execution) IsSuccess() bool { return r.Err == nil }

// ShouldSkip returns true if subsequent steps should be skipped.
func (r Execution) ShouldSkip() bool { return r.Skip }
