package config

import "time"

// Default knobs applied when the definition leaves them unset.
const (
	DefaultCacheDir        = ".docpub-cache"
	DefaultCacheMaxEntries = 16
	DefaultOutputDir       = "public"
	DefaultQueueSize       = 16
	DefaultWorkers         = 1
	DefaultHistorySize     = 50
	DefaultCommitMessage   = "docs: publish {commit}"
	DefaultSubject         = "workflows.completed"
	DefaultStream          = "WORKFLOWS"
)

func (w *Workflow) applyDefaults() {
	if w.Name == "" {
		w.Name = "docs"
	}
	if w.Source.Name == "" {
		w.Source.Name = w.Name
	}
	if w.Trigger.WorkflowRun != nil && len(w.Trigger.WorkflowRun.Conclusions) == 0 {
		w.Trigger.WorkflowRun.Conclusions = []string{"success"}
	}
	if w.Cache.Dir == "" {
		w.Cache.Dir = DefaultCacheDir
	}
	if w.Cache.MaxEntries <= 0 {
		w.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if w.Cache.Enabled && len(w.Cache.KeyFiles) == 0 && w.Runtime.Requirements != "" {
		w.Cache.KeyFiles = []string{w.Runtime.Requirements}
	}
	if w.Build.Mode == "" {
		if len(w.Build.Command) > 0 {
			w.Build.Mode = BuildModeCommand
		} else {
			w.Build.Mode = BuildModeInternal
		}
	}
	if w.Build.OutputDir == "" {
		w.Build.OutputDir = DefaultOutputDir
	}
	if w.Deploy.CommitMessage == "" {
		w.Deploy.CommitMessage = DefaultCommitMessage
	}
	if w.Retry == nil {
		w.Retry = &RetryConfig{}
	}
	if w.Retry.Backoff == "" {
		w.Retry.Backoff = RetryBackoffLinear
	}
	if w.Retry.Initial <= 0 {
		w.Retry.Initial = time.Second
	}
	if w.Retry.Max <= 0 {
		w.Retry.Max = 30 * time.Second
	}
	if w.Monitoring.Subject == "" {
		w.Monitoring.Subject = DefaultSubject
	}
	if w.Monitoring.Stream == "" {
		w.Monitoring.Stream = DefaultStream
	}
	if w.Daemon.QueueSize <= 0 {
		w.Daemon.QueueSize = DefaultQueueSize
	}
	if w.Daemon.Workers <= 0 {
		w.Daemon.Workers = DefaultWorkers
	}
	if w.Daemon.HistorySize <= 0 {
		w.Daemon.HistorySize = DefaultHistorySize
	}
}
