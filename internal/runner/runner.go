// Package runner executes a single workflow run through the step pipeline,
// handling workspace lifecycle, cache store access and outcome accounting.
// It is shared by the one-shot CLI path and the daemon's run queue.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docpub/internal/cache"
	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/metrics"
	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/retry"
	"git.home.luguber.info/inful/docpub/internal/run"
	"git.home.luguber.info/inful/docpub/internal/steps"
	"git.home.luguber.info/inful/docpub/internal/workspace"
)

// Options configures a Runner.
type Options struct {
	// Recorder receives run and step metrics; nil means no metrics.
	Recorder metrics.Recorder
	// Bus receives pipeline lifecycle events; nil disables event publishing.
	Bus *pipeline.Bus
	// Incremental uses a persistent workspace with incremental checkouts
	// instead of a fresh clone per run.
	Incremental bool
	// WorkspaceDir overrides the workspace base directory. Defaults to the
	// workflow's daemon data dir, then the system temp dir.
	WorkspaceDir string
}

// Runner executes runs of one workflow definition.
type Runner struct {
	workflow   *config.Workflow
	pipe       *pipeline.Pipeline
	cacheStore *cache.Store
	recorder   metrics.Recorder
	workspaces func() *workspace.Manager
}

// New builds a runner for the given workflow, opening the cache store when
// caching is enabled.
func New(wf *config.Workflow, opts Options) (*Runner, error) {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	var store *cache.Store
	if wf.Cache.Enabled {
		var err error
		store, err = cache.Open(wf.Cache)
		if err != nil {
			return nil, fmt.Errorf("opening cache store: %w", err)
		}
	}

	registry := steps.NewRegistry(steps.Options{
		CacheStore:  store,
		Recorder:    recorder,
		Incremental: opts.Incremental,
	})

	pipelineOpts := []pipeline.Option{
		pipeline.WithRetryPolicy(retry.FromConfig(wf.Retry)),
		pipeline.WithRecorder(recorder),
	}
	if opts.Bus != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithBus(opts.Bus))
	}

	baseDir := opts.WorkspaceDir
	if baseDir == "" {
		baseDir = wf.Daemon.DataDir
	}
	incremental := opts.Incremental
	workspaces := func() *workspace.Manager {
		if incremental {
			return workspace.NewPersistentManager(baseDir, "working")
		}
		return workspace.NewManager(baseDir)
	}

	return &Runner{
		workflow:   wf,
		pipe:       pipeline.New(registry, pipelineOpts...),
		cacheStore: store,
		recorder:   recorder,
		workspaces: workspaces,
	}, nil
}

// Close releases the cache store.
func (r *Runner) Close() error {
	if r.cacheStore != nil {
		return r.cacheStore.Close()
	}
	return nil
}

// Execute runs every pipeline step for the given run and returns the final
// state. The run's status, duration and error are filled in before returning.
func (r *Runner) Execute(ctx context.Context, rn *run.Run) (*run.State, error) {
	started := time.Now()
	rn.StartedAt = &started
	rn.Status = run.StatusRunning

	ws := r.workspaces()
	if err := ws.Create(); err != nil {
		r.finish(rn, run.StatusFailed, err)
		return nil, err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Workspace cleanup failed", logfields.Error(err))
		}
	}()

	st := run.NewState(rn, r.workflow, ws.GetPath())

	result, err := r.pipe.ExecuteAll(ctx, st)
	switch {
	case result != nil && result.Canceled:
		r.finish(rn, run.StatusCancelled, err)
	case err != nil:
		r.finish(rn, run.StatusFailed, err)
	default:
		r.finish(rn, run.StatusSucceeded, nil)
	}
	return st, err
}

func (r *Runner) finish(rn *run.Run, status run.Status, err error) {
	now := time.Now()
	rn.CompletedAt = &now
	if rn.StartedAt != nil {
		rn.Duration = now.Sub(*rn.StartedAt)
	}
	rn.Status = status
	if err != nil {
		rn.Error = err.Error()
	}

	r.recorder.IncRunOutcome(string(status))
	r.recorder.ObserveRunDuration(rn.Duration)

	slog.Info("Run finished",
		logfields.RunID(rn.ID),
		logfields.Workflow(rn.Workflow),
		logfields.Status(string(status)),
		logfields.DurationMS(float64(rn.Duration.Milliseconds())))
}
