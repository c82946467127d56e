// Package steps contains the built-in pipeline step commands: checkout,
// toolchain verification, dependency cache restore/save, install, docs build,
// link verification and pages deployment.
package steps

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docpub/internal/git"
	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// CheckoutStep clones or updates the source repository into the workspace.
type CheckoutStep struct {
	// Incremental reuses an existing checkout instead of cloning fresh.
	Incremental bool
}

func (s *CheckoutStep) Name() pipeline.StepName { return pipeline.StepCheckout }

func (s *CheckoutStep) Description() string {
	return "Clone or update the source repository"
}

func (s *CheckoutStep) Dependencies() []pipeline.StepName { return nil }

func (s *CheckoutStep) Execute(ctx context.Context, st *run.State) pipeline.Execution {
	client := git.NewClient(st.WorkspaceDir)
	if err := client.EnsureWorkspace(); err != nil {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()), err))
	}

	var (
		result *git.CheckoutResult
		err    error
	)
	if s.Incremental {
		result, err = client.Update(ctx, st.Workflow.Source)
	} else {
		result, err = client.Clone(ctx, st.Workflow.Source)
	}
	if err != nil {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()),
			fmt.Errorf("%w: %w", run.ErrCheckout, err)))
	}

	st.RepoDir = result.Path
	st.Run.Commit = result.Commit
	if st.Run.Branch == "" {
		st.Run.Branch = result.Branch
	}
	return pipeline.ExecutionSuccess()
}
