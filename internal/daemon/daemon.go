// Package daemon runs workflows continuously: it listens for upstream
// completion events, schedules periodic runs, watches local paths, and
// feeds a worker-pool run queue guarded by concurrency groups.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/eventstore"
	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/metrics"
	"git.home.luguber.info/inful/docpub/internal/pipeline"
	"git.home.luguber.info/inful/docpub/internal/run"
	"git.home.luguber.info/inful/docpub/internal/runner"
)

// Daemon hosts all long-running components for one workflow definition.
type Daemon struct {
	workflow    *config.Workflow
	runner      *runner.Runner
	queue       *RunQueue
	coordinator *Coordinator
	scheduler   *Scheduler
	upstream    *UpstreamConsumer
	watcher     *PathWatcher
	httpServer  *HTTPServer
	events      eventstore.Store
	recorder    metrics.Recorder
	registry    *prometheus.Registry
	startTime   time.Time
}

// New assembles a daemon for the given workflow definition.
func New(wf *config.Workflow) (*Daemon, error) {
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	d := &Daemon{
		workflow: wf,
		recorder: recorder,
		registry: registry,
	}

	var bus *pipeline.Bus
	if wf.Daemon.DataDir != "" {
		if err := os.MkdirAll(wf.Daemon.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		store, err := eventstore.NewSQLiteStore(filepath.Join(wf.Daemon.DataDir, "events.db"))
		if err != nil {
			return nil, fmt.Errorf("opening event store: %w", err)
		}
		d.events = store
		bus = pipeline.NewBusWithEventStore(store)
	}

	r, err := runner.New(wf, runner.Options{
		Recorder:    recorder,
		Bus:         bus,
		Incremental: true,
	})
	if err != nil {
		return nil, err
	}
	d.runner = r

	d.queue = NewRunQueue(wf.Daemon.QueueSize, wf.Daemon.Workers, wf.Daemon.HistorySize, r, recorder)
	d.coordinator = NewCoordinator(d.queue, wf.Concurrency)

	if wf.Trigger.Schedule != "" || wf.Trigger.Interval > 0 {
		sched, err := NewScheduler(d.submit)
		if err != nil {
			return nil, err
		}
		if err := sched.Configure(wf.Trigger); err != nil {
			return nil, err
		}
		d.scheduler = sched
	}

	if wf.Trigger.WorkflowRun != nil {
		consumer, err := NewUpstreamConsumer(wf.Monitoring, wf.Trigger.WorkflowRun, d.submitUpstream)
		if err != nil {
			return nil, err
		}
		d.upstream = consumer
	}

	if len(wf.Trigger.Watch) > 0 {
		watcher, err := NewPathWatcher(wf.Trigger.Watch, d.submit)
		if err != nil {
			return nil, err
		}
		d.watcher = watcher
	}

	if wf.Monitoring.Listen != "" {
		d.httpServer = NewHTTPServer(wf.Monitoring.Listen, d, registry)
	}

	return d, nil
}

// Run starts all components, blocks until the context is cancelled, then
// shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return d.Stop(stopCtx)
}

// Start launches the queue, triggers and status API.
func (d *Daemon) Start(ctx context.Context) error {
	d.startTime = time.Now()
	slog.Info("Starting daemon", logfields.Workflow(d.workflow.Name))

	d.queue.Start(ctx)

	if d.scheduler != nil {
		d.scheduler.Start()
	}
	if d.upstream != nil {
		if err := d.upstream.Start(ctx); err != nil {
			return fmt.Errorf("starting upstream consumer: %w", err)
		}
	}
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			return fmt.Errorf("starting path watcher: %w", err)
		}
	}
	if d.httpServer != nil {
		if err := d.httpServer.Start(); err != nil {
			return fmt.Errorf("starting status API: %w", err)
		}
	}
	return nil
}

// Stop shuts down all components in reverse order of startup.
func (d *Daemon) Stop(ctx context.Context) error {
	slog.Info("Stopping daemon", logfields.Workflow(d.workflow.Name))

	if d.httpServer != nil {
		if err := d.httpServer.Stop(ctx); err != nil {
			slog.Warn("Status API shutdown failed", logfields.Error(err))
		}
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.upstream != nil {
		d.upstream.Stop()
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			slog.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}

	d.queue.Stop()

	if err := d.runner.Close(); err != nil {
		slog.Warn("Runner close failed", logfields.Error(err))
	}
	if d.events != nil {
		if err := d.events.Close(); err != nil {
			slog.Warn("Event store close failed", logfields.Error(err))
		}
	}

	slog.Info("Daemon stopped")
	return nil
}

// Trigger creates a run for the given reason and submits it through the
// concurrency coordinator.
func (d *Daemon) Trigger(reason run.Reason, branch string) (*run.Run, error) {
	rn := run.New(d.workflow.Name, reason)
	rn.Branch = branch
	d.recorder.IncTrigger(string(reason))

	if err := d.coordinator.Submit(rn); err != nil {
		return nil, err
	}
	return rn, nil
}

// Workflow returns the daemon's workflow definition.
func (d *Daemon) Workflow() *config.Workflow { return d.workflow }

// Queue returns the run queue for status queries.
func (d *Daemon) Queue() *RunQueue { return d.queue }

// StartTime returns when the daemon started.
func (d *Daemon) StartTime() time.Time { return d.startTime }

func (d *Daemon) submit(reason run.Reason) {
	if _, err := d.Trigger(reason, ""); err != nil {
		slog.Error("Failed to submit run", logfields.Reason(string(reason)), logfields.Error(err))
	}
}

func (d *Daemon) submitUpstream(ev UpstreamEvent) {
	if _, err := d.Trigger(run.ReasonUpstream, ev.Branch); err != nil {
		slog.Error("Failed to submit upstream-triggered run",
			logfields.Branch(ev.Branch),
			logfields.Error(err))
	}
}
