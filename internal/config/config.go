package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Workflow is the declarative definition of a documentation publishing
// pipeline: what triggers it, which repository it checks out, how the docs
// are built and where the result is deployed.
type Workflow struct {
	Name        string             `yaml:"name"`
	Trigger     TriggerConfig      `yaml:"trigger"`
	Concurrency *ConcurrencyConfig `yaml:"concurrency,omitempty"`
	Source      Repository         `yaml:"source"`
	Runtime     RuntimeConfig      `yaml:"runtime"`
	Cache       CacheConfig        `yaml:"cache"`
	Install     InstallConfig      `yaml:"install"`
	Build       BuildConfig        `yaml:"build"`
	Verify      VerifyConfig       `yaml:"verify"`
	Deploy      DeployConfig       `yaml:"deploy"`
	Retry       *RetryConfig       `yaml:"retry,omitempty"`
	Monitoring  MonitoringConfig   `yaml:"monitoring"`
	Daemon      DaemonConfig       `yaml:"daemon"`
}

// TriggerConfig declares the conditions under which a run is enqueued.
type TriggerConfig struct {
	// WorkflowRun fires when an upstream workflow reports completion.
	WorkflowRun *WorkflowRunTrigger `yaml:"workflow_run,omitempty"`
	// Schedule is a cron expression ("0 4 * * *") for periodic runs.
	Schedule string `yaml:"schedule,omitempty"`
	// Interval triggers periodic runs at a fixed duration ("30m").
	Interval time.Duration `yaml:"interval,omitempty"`
	// Watch rebuilds when local paths change (daemon mode only).
	Watch []string `yaml:"watch,omitempty"`
}

// WorkflowRunTrigger matches completion events of a named upstream workflow.
type WorkflowRunTrigger struct {
	Workflow    string   `yaml:"workflow"`
	Conclusions []string `yaml:"conclusions,omitempty"` // default: ["success"]
	Branches    []string `yaml:"branches,omitempty"`    // empty: any branch
}

// ConcurrencyConfig prevents overlapping runs of the same group.
type ConcurrencyConfig struct {
	Group string `yaml:"group"`
	// CancelInFlight cancels a running run when a new one arrives for the
	// same group. When false the new run is coalesced into a single pending
	// slot instead (latest trigger wins).
	CancelInFlight bool `yaml:"cancel_in_flight"`
}

// Repository describes a source repository to check out.
type Repository struct {
	Name   string      `yaml:"name"`
	URL    string      `yaml:"url"`
	Branch string      `yaml:"branch"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig describes repository authentication. Tokens are referenced via
// environment variable names and resolved at run time; they are never stored
// in the workflow definition.
type AuthConfig struct {
	Type     string `yaml:"type"` // none|token|basic|ssh
	TokenEnv string `yaml:"token_env,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
}

// RuntimeConfig pins the toolchain the install/build commands expect.
// The runner verifies the pinned version is available; it does not provision it.
type RuntimeConfig struct {
	Name         string `yaml:"name"`    // e.g. "python"
	Version      string `yaml:"version"` // e.g. "3.11"
	Requirements string `yaml:"requirements,omitempty"`
	// VersionCommand probes the installed version; defaults to
	// "<name> --version".
	VersionCommand []string `yaml:"version_command,omitempty"`
}

// CacheConfig controls the dependency cache keyed by the runtime pin and the
// contents of the key files.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Dir      string   `yaml:"dir,omitempty"`
	KeyFiles []string `yaml:"key_files,omitempty"`
	// MaxEntries bounds the cache index; oldest entries are evicted first.
	MaxEntries int `yaml:"max_entries,omitempty"`
}

// InstallConfig describes the dependency installation step.
type InstallConfig struct {
	Command []string `yaml:"command,omitempty"`
	// Target is the directory the install populates; it is what the cache
	// saves and restores.
	Target string   `yaml:"target,omitempty"`
	Env    []string `yaml:"env,omitempty"`
}

// BuildMode selects between the built-in site generator and an external command.
type BuildMode string

const (
	BuildModeInternal BuildMode = "internal"
	BuildModeCommand  BuildMode = "command"
)

// BuildConfig describes how the documentation site is produced.
type BuildConfig struct {
	Mode      BuildMode `yaml:"mode"`
	Command   []string  `yaml:"command,omitempty"`
	SourceDir string    `yaml:"source_dir"`
	OutputDir string    `yaml:"output_dir"`
	Title     string    `yaml:"title,omitempty"`
	BaseURL   string    `yaml:"base_url,omitempty"`
}

// VerifyConfig controls post-build link verification.
type VerifyConfig struct {
	Enabled bool `yaml:"enabled"`
	// FailOnBroken turns broken internal links into a step failure instead
	// of a warning.
	FailOnBroken bool `yaml:"fail_on_broken"`
}

// DeployConfig describes publication of the built site to a hosting branch.
type DeployConfig struct {
	Branch        string      `yaml:"branch"`
	PublishDir    string      `yaml:"publish_dir"`
	KeepFiles     bool        `yaml:"keep_files"`
	ForceOrphan   bool        `yaml:"force_orphan"`
	CommitMessage string      `yaml:"commit_message,omitempty"`
	// OnlyBranches guards deployment: the step is skipped unless the run's
	// source branch is listed here.
	OnlyBranches []string    `yaml:"only_branches,omitempty"`
	Auth         *AuthConfig `yaml:"auth,omitempty"`
}

// RetryConfig tunes retry behavior for transient step failures.
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff,omitempty"`
	Initial    time.Duration    `yaml:"initial,omitempty"`
	Max        time.Duration    `yaml:"max,omitempty"`
	MaxRetries int              `yaml:"max_retries"`
}

// MonitoringConfig wires external observability and trigger transport.
type MonitoringConfig struct {
	Listen  string `yaml:"listen,omitempty"`   // daemon HTTP listen address
	NATSURL string `yaml:"nats_url,omitempty"` // upstream completion events
	Subject string `yaml:"subject,omitempty"`  // JetStream subject filter
	Stream  string `yaml:"stream,omitempty"`
}

// DaemonConfig tunes run queue behavior in daemon mode.
type DaemonConfig struct {
	QueueSize   int    `yaml:"queue_size,omitempty"`
	Workers     int    `yaml:"workers,omitempty"`
	DataDir     string `yaml:"data_dir,omitempty"`
	HistorySize int    `yaml:"history_size,omitempty"`
}

// Load reads, normalizes and validates a workflow definition.
func Load(path string) (*Workflow, error) {
	// Best effort: .env files provide token values referenced by the
	// definition. Missing files are fine.
	LoadEnvFiles()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read workflow definition %s: %w", path, err)
	}

	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow definition %s: %w", path, err)
	}

	wf.applyDefaults()
	wf.normalize()

	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Init writes a commented sample workflow definition to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("workflow definition already exists at %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(sampleWorkflow), 0o644); err != nil {
		return fmt.Errorf("write workflow definition: %w", err)
	}
	return nil
}

const sampleWorkflow = `# docpub workflow definition
name: docs

trigger:
  workflow_run:
    workflow: Publish CDN
    conclusions: [success]
    branches: [main]

concurrency:
  group: docs-deploy
  cancel_in_flight: false

source:
  name: drafter
  url: https://example.com/org/drafter.git
  branch: main

runtime:
  name: python
  version: "3.11"
  requirements: docs/requirements.txt

cache:
  enabled: true
  key_files:
    - docs/requirements.txt

install:
  command: ["pip", "install", "-r", "docs/requirements.txt", "--target", ".deps"]
  target: .deps

build:
  mode: internal
  source_dir: docs
  output_dir: public
  title: Documentation

verify:
  enabled: true

deploy:
  branch: gh-pages
  publish_dir: public
  keep_files: false
  force_orphan: true
  only_branches: [main]
  auth:
    type: token
    token_env: DOCS_TOKEN
`
