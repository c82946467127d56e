package steps

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/docpub/internal/linkcheck"
	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// VerifyStep checks internal links in the generated site. Broken links are
// warnings unless the workflow asks for a hard failure.
type VerifyStep struct{}

func (s *VerifyStep) Name() pipeline.StepName { return pipeline.StepVerify }

func (s *VerifyStep) Description() string {
	return "Verify internal links in the generated site"
}

func (s *VerifyStep) Dependencies() []pipeline.StepName {
	return []pipeline.StepName{pipeline.StepBuild}
}

func (s *VerifyStep) Execute(ctx context.Context, st *run.State) pipeline.Execution {
	cfg := st.Workflow.Verify
	if !cfg.Enabled {
		return pipeline.ExecutionSuccess()
	}

	result, err := linkcheck.CheckSite(ctx, st.SiteDir)
	if err != nil {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()), err))
	}

	st.Report.LinksChecked = result.Checked

	if len(result.Broken) == 0 {
		slog.Info("Link check passed", slog.Int("checked", result.Checked))
		return pipeline.ExecutionSuccess()
	}

	for _, b := range result.Broken {
		st.Report.BrokenLinks = append(st.Report.BrokenLinks, b.String())
		st.Report.AddWarning("broken link: " + b.String())
		slog.Warn("Broken link", slog.String("source", b.SourceFile), slog.String("url", b.URL))
	}

	if cfg.FailOnBroken {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()),
			fmt.Errorf("%d broken links out of %d checked", len(result.Broken), result.Checked)))
	}
	return pipeline.ExecutionSuccess()
}
