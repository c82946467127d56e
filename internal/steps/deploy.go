package steps

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/docpub/internal/git"
	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/metrics"
	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/run"
	"git.home.luguber.info/inful/docpub/internal/site"
)

// DeployStep publishes the site output to the pages branch. Runs for branches
// outside the deploy guard build and verify but skip publication.
type DeployStep struct {
	Recorder metrics.Recorder
}

func (s *DeployStep) Name() pipeline.StepName { return pipeline.StepDeploy }

func (s *DeployStep) Description() string {
	return "Publish the site to the pages branch"
}

func (s *DeployStep) Dependencies() []pipeline.StepName {
	return []pipeline.StepName{pipeline.StepVerify}
}

func (s *DeployStep) Execute(ctx context.Context, st *run.State) pipeline.Execution {
	cfg := st.Workflow.Deploy
	if cfg.Branch == "" {
		return pipeline.ExecutionSuccess()
	}

	recorder := s.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	if !st.DeployAllowed() {
		st.Report.DeploySkipped = true
		recorder.IncDeploy(false)
		slog.Info("Deploy skipped, branch not in guard list",
			logfields.Branch(st.Run.Branch),
			logfields.Workflow(st.Workflow.Name))
		return pipeline.ExecutionSuccessWithSkip()
	}

	auth := cfg.Auth
	if auth == nil {
		auth = st.Workflow.Source.Auth
	}

	result, err := git.Publish(ctx, git.PublishRequest{
		RemoteURL:     st.Workflow.Source.URL,
		Branch:        cfg.Branch,
		PublishDir:    st.SiteDir,
		WorkDir:       filepath.Join(st.WorkspaceDir, ".deploy"),
		KeepFiles:     cfg.KeepFiles,
		ForceOrphan:   cfg.ForceOrphan,
		CommitMessage: cfg.CommitMessage,
		SourceCommit:  st.Run.Commit,
		Auth:          auth,
		Exclude:       []string{site.ManifestName},
	})
	if err != nil {
		recorder.IncDeploy(false)
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()),
			fmt.Errorf("%w: %w", run.ErrDeploy, err)))
	}

	st.Report.Deployed = result.Published
	st.Report.DeployCommit = result.Commit
	recorder.IncDeploy(result.Published)

	if result.Published {
		slog.Info("Site published",
			logfields.Branch(result.Branch),
			logfields.Commit(result.Commit))
	} else {
		slog.Info("No site changes to publish", logfields.Branch(result.Branch))
	}
	return pipeline.ExecutionSuccess()
}
