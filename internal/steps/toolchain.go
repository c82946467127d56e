package steps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// ToolchainStep verifies the pinned runtime is available. The runner asserts
// the version; it does not provision toolchains.
type ToolchainStep struct{}

func (s *ToolchainStep) Name() pipeline.StepName { return pipeline.StepToolchain }

func (s *ToolchainStep) Description() string {
	return "Verify the pinned runtime version is available"
}

func (s *ToolchainStep) Dependencies() []pipeline.StepName {
	return []pipeline.StepName{pipeline.StepCheckout}
}

func (s *ToolchainStep) Execute(ctx context.Context, st *run.State) pipeline.Execution {
	rt := st.Workflow.Runtime
	if rt.Name == "" {
		return pipeline.ExecutionSuccess() // no runtime pinned
	}

	probe := rt.VersionCommand
	if len(probe) == 0 {
		probe = []string{rt.Name, "--version"}
	}

	out, err := captureCommand(ctx, st.RepoDir, probe)
	if err != nil {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()),
			fmt.Errorf("runtime %s not available: %w", rt.Name, err)))
	}

	version := strings.TrimSpace(out)
	if rt.Version != "" && !strings.Contains(version, rt.Version) {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()),
			fmt.Errorf("runtime %s version mismatch: pinned %q, found %q", rt.Name, rt.Version, version)))
	}

	slog.Info("Runtime verified", slog.String("runtime", rt.Name), slog.String("version", version))
	return pipeline.ExecutionSuccess()
}
