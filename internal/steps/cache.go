package steps

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/docpub/internal/cache"
	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// CacheRestoreStep looks up the dependency cache before installation.
// A miss is not an error; the install step runs and the save step refills.
type CacheRestoreStep struct {
	Store *cache.Store
}

func (s *CacheRestoreStep) Name() pipeline.StepName { return pipeline.StepCacheRestore }

func (s *CacheRestoreStep) Description() string {
	return "Restore the dependency cache for the current key"
}

func (s *CacheRestoreStep) Dependencies() []pipeline.StepName {
	return []pipeline.StepName{pipeline.StepToolchain}
}

func (s *CacheRestoreStep) Execute(ctx context.Context, st *run.State) pipeline.Execution {
	cfg := st.Workflow.Cache
	if !cfg.Enabled || s.Store == nil {
		return pipeline.ExecutionSuccess()
	}

	key, err := cache.Key(st.Workflow.Runtime, st.RepoDir, cfg.KeyFiles)
	if err != nil {
		// A missing key file means the checkout changed shape; treat as a
		// miss rather than failing the run.
		slog.Warn("Cache key unavailable, skipping restore", "error", err)
		return pipeline.ExecutionSuccess()
	}
	st.CacheKey = key

	target := filepath.Join(st.RepoDir, st.Workflow.Install.Target)
	hit, err := s.Store.Restore(ctx, key, target)
	if err != nil {
		// Restore is best effort; a corrupt entry just means a full install.
		st.Report.AddWarning("cache restore failed: " + err.Error())
		slog.Warn("Failed to restore dependency cache", "error", err)
		return pipeline.ExecutionSuccess()
	}
	st.CacheHit = hit
	st.Report.CacheHit = hit
	return pipeline.ExecutionSuccess()
}

// CacheSaveStep stores the installed dependencies after a cache miss.
type CacheSaveStep struct {
	Store *cache.Store
}

func (s *CacheSaveStep) Name() pipeline.StepName { return pipeline.StepCacheSave }

func (s *CacheSaveStep) Description() string {
	return "Save installed dependencies under the current cache key"
}

func (s *CacheSaveStep) Dependencies() []pipeline.StepName {
	return []pipeline.StepName{pipeline.StepInstall}
}

func (s *CacheSaveStep) Execute(ctx context.Context, st *run.State) pipeline.Execution {
	cfg := st.Workflow.Cache
	if !cfg.Enabled || s.Store == nil || st.CacheHit || st.CacheKey == "" {
		return pipeline.ExecutionSuccess()
	}

	source := filepath.Join(st.RepoDir, st.Workflow.Install.Target)
	if err := s.Store.Save(ctx, st.CacheKey, source); err != nil {
		// Cache population is best effort; the build already has its deps.
		st.Report.AddWarning("cache save failed: " + err.Error())
		slog.Warn("Failed to save dependency cache", "error", err)
	}
	return pipeline.ExecutionSuccess()
}
