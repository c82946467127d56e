package steps

import (
	"git.home.luguber.info/inful/docpub/internal/cache"
	"git.home.luguber.info/inful/docpub/internal/metrics"
	"git.home.luguber.info/inful/docpub/internal/pipeline"
)

// Options configures the step set assembled by NewRegistry.
type Options struct {
	// CacheStore backs the restore and save steps; nil disables caching.
	CacheStore *cache.Store
	// Recorder receives deploy outcome metrics.
	Recorder metrics.Recorder
	// Incremental reuses an existing checkout instead of cloning fresh.
	Incremental bool
}

// NewRegistry returns a registry with every built-in step registered.
func NewRegistry(opts Options) *pipeline.Registry {
	r := pipeline.NewRegistry()
	r.MustRegister(&CheckoutStep{Incremental: opts.Incremental})
	r.MustRegister(&ToolchainStep{})
	r.MustRegister(&CacheRestoreStep{Store: opts.CacheStore})
	r.MustRegister(&InstallStep{})
	r.MustRegister(&CacheSaveStep{Store: opts.CacheStore})
	r.MustRegister(&BuildStep{})
	r.MustRegister(&VerifyStep{})
	r.MustRegister(&DeployStep{Recorder: opts.Recorder})
	return r
}
