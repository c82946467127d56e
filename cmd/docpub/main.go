package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/daemon"
	"git.home.luguber.info/inful/docpub/internal/eventstore"
	"git.home.luguber.info/inful/docpub/internal/run"
	"git.home.luguber.info/inful/docpub/internal/runner"
	"git.home.luguber.info/inful/docpub/internal/version"
)

var CLI struct {
	Workflow string `short:"w" help:"Workflow definition file path" default:"docpub.yaml"`
	Verbose  bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		Incremental bool   `short:"i" help:"Use incremental updates instead of fresh clone"`
		Branch      string `short:"b" help:"Source branch the run reports (deploy guard input)"`
	} `cmd:"" help:"Execute the workflow once and exit"`

	Validate struct{} `cmd:"" help:"Validate the workflow definition without running it"`

	Init struct {
		Force bool `help:"Overwrite existing workflow definition file"`
	} `cmd:"" help:"Initialize a new workflow definition file"`

	Daemon struct {
		DataDir string `short:"d" help:"Data directory for daemon state (overrides definition)"`
	} `cmd:"" help:"Run continuously, executing the workflow on its triggers"`

	History struct {
		Since time.Duration `help:"Show events newer than this age" default:"24h"`
	} `cmd:"" help:"Show persisted run events from the daemon data directory"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "run":
		wf := mustLoad(CLI.Workflow)
		if err := runOnce(wf, CLI.Run.Incremental, CLI.Run.Branch); err != nil {
			slog.Error("Run failed", "error", err)
			os.Exit(1)
		}
	case "validate":
		wf := mustLoad(CLI.Workflow)
		slog.Info("Workflow definition is valid", "workflow", wf.Name)
	case "init":
		if err := config.Init(CLI.Workflow, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Workflow definition created", "path", CLI.Workflow)
	case "daemon":
		wf := mustLoad(CLI.Workflow)
		if CLI.Daemon.DataDir != "" {
			wf.Daemon.DataDir = CLI.Daemon.DataDir
		}
		if err := runDaemon(wf); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "history":
		wf := mustLoad(CLI.Workflow)
		if err := showHistory(wf, CLI.History.Since); err != nil {
			slog.Error("History failed", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("docpub %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
}

func mustLoad(path string) *config.Workflow {
	wf, err := config.Load(path)
	if err != nil {
		slog.Error("Failed to load workflow definition", "path", path, "error", err)
		os.Exit(1)
	}
	return wf
}

func runOnce(wf *config.Workflow, incremental bool, branch string) error {
	r, err := runner.New(wf, runner.Options{Incremental: incremental})
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			slog.Warn("Runner close failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rn := run.New(wf.Name, run.ReasonManual)
	rn.Branch = branch

	st, err := r.Execute(ctx, rn)
	if err != nil {
		return err
	}

	report := st.Report
	slog.Info("Run report",
		"pages_rendered", report.PagesRendered,
		"pages_skipped", report.PagesSkipped,
		"links_checked", report.LinksChecked,
		"broken_links", len(report.BrokenLinks),
		"cache_hit", report.CacheHit,
		"deployed", report.Deployed,
		"deploy_skipped", report.DeploySkipped)
	return nil
}

func runDaemon(wf *config.Workflow) error {
	d, err := daemon.New(wf)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

func showHistory(wf *config.Workflow, since time.Duration) error {
	if wf.Daemon.DataDir == "" {
		return fmt.Errorf("daemon.data_dir is not configured, no persisted history")
	}

	store, err := eventstore.NewSQLiteStore(filepath.Join(wf.Daemon.DataDir, "events.db"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Event store close failed", "error", err)
		}
	}()

	end := time.Now()
	events, err := store.GetRange(context.Background(), end.Add(-since), end)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("no run events in the requested window")
		return nil
	}
	for _, ev := range events {
		fmt.Printf("%s  %-14s  run=%s\n",
			ev.Timestamp().Format(time.RFC3339),
			ev.Type(),
			ev.RunID())
	}
	return nil
}
