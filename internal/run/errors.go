package run

import (
	"errors"
	"fmt"
)

// StepErrorKind enumerates structured step error categories.
type StepErrorKind string

const (
	StepErrorFatal    StepErrorKind = "fatal"    // Run must abort.
	StepErrorWarning  StepErrorKind = "warning"  // Non-fatal; record and continue.
	StepErrorCanceled StepErrorKind = "canceled" // Context cancellation.
)

// Sentinel errors shared between steps and retry classification.
var (
	ErrCheckout = errors.New("checkout failed")
	ErrInstall  = errors.New("dependency install failed")
	ErrBuild    = errors.New("docs build failed")
	ErrDeploy   = errors.New("deploy failed")
)

// StepError is a structured error carrying category and underlying cause.
type StepError struct {
	Kind StepErrorKind
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s step %s: %v", e.Kind, e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Transient reports whether the underlying error condition is likely
// transient, meaning a retry may succeed. Cancellation is never transient.
func (e *StepError) Transient() bool {
	if e == nil || e.Kind == StepErrorCanceled {
		return false
	}
	if errors.Is(e.Err, ErrCheckout) || errors.Is(e.Err, ErrDeploy) {
		// Network-facing steps; typed transient git errors also land here.
		return true
	}
	var transient interface{ Transient() bool }
	if errors.As(e.Err, &transient) && transient != e {
		return transient.Transient()
	}
	return false
}

// Helper constructors.

func NewFatalStepError(step string, err error) *StepError {
	return &StepError{Kind: StepErrorFatal, Step: step, Err: err}
}

func NewWarnStepError(step string, err error) *StepError {
	return &StepError{Kind: StepErrorWarning, Step: step, Err: err}
}

func NewCanceledStepError(step string, err error) *StepError {
	return &StepError{Kind: StepErrorCanceled, Step: step, Err: err}
}
