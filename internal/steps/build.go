package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/run"
	"git.home.luguber.info/inful/docpub/internal/site"
)

// BuildStep produces the site output directory, either with the built-in
// markdown generator or by running the configured build command.
type BuildStep struct{}

func (s *BuildStep) Name() pipeline.StepName { return pipeline.StepBuild }

func (s *BuildStep) Description() string {
	return "Build the documentation site"
}

func (s *BuildStep) Dependencies() []pipeline.StepName {
	return []pipeline.StepName{pipeline.StepInstall}
}

func (s *BuildStep) Execute(ctx context.Context, st *run.State) pipeline.Execution {
	cfg := st.Workflow.Build
	outputDir := filepath.Join(st.RepoDir, cfg.OutputDir)

	var err error
	switch cfg.Mode {
	case config.BuildModeInternal:
		err = s.buildInternal(ctx, st, cfg, outputDir)
	default:
		err = runCommand(ctx, st.RepoDir, nil, cfg.Command)
	}
	if err != nil {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()),
			fmt.Errorf("%w: %w", run.ErrBuild, err)))
	}

	if _, err := os.Stat(outputDir); err != nil {
		return pipeline.ExecutionFailure(run.NewFatalStepError(string(s.Name()),
			fmt.Errorf("%w: output directory %s missing after build: %w", run.ErrBuild, cfg.OutputDir, err)))
	}

	st.SiteDir = outputDir
	return pipeline.ExecutionSuccess()
}

func (s *BuildStep) buildInternal(ctx context.Context, st *run.State, cfg config.BuildConfig, outputDir string) error {
	sourceDir := filepath.Join(st.RepoDir, cfg.SourceDir)
	gen := site.NewGenerator(cfg, outputDir)

	pages, err := gen.Discover(sourceDir)
	if err != nil {
		return err
	}

	stats, err := gen.Generate(ctx, pages)
	if err != nil {
		return err
	}

	st.Report.PagesRendered = stats.Rendered
	st.Report.PagesSkipped = stats.Skipped
	slog.Info("Site generated",
		slog.Int("pages", stats.Pages),
		slog.Int("rendered", stats.Rendered),
		slog.Int("skipped", stats.Skipped))
	return nil
}
