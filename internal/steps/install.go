package steps

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// InstallStep installs build dependencies into the install target. It is a
// no-op when the dependency cache already restored the target.
type InstallStep struct{}

func (s *InstallStep) Name() pipeline.StepName { return pipeline.StepInstall }

func (s *InstallStep) Description() string {
	return "Install build dependencies"
}

func (s *InstallStep) Dependencies() []pipeline.StepName {
	return []pipeline.StepName{pipeline.StepCacheRestore}
}

func (s *InstallStep) Execute(ctx context.Context, st *run.State) pipeline.Execution {
	cfg := st.Workflow.Install
	if len(cfg.Command) == 0 {
		return pipeline.ExecutionSuccess()
	}
	if st.CacheHit {
		slog.Info("Dependencies restored from cache, skipping install",
			slog.String("key", st.CacheKey))
		return pipeline.ExecutionSuccess()
	}

	if err := runCommand(ctx, st.RepoDir, cfg.Env, cfg.Command); err != nil {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()),
			fmt.Errorf("%w: %w", run.ErrInstall, err)))
	}
	return pipeline.ExecutionSuccess()
}
