package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docpub.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	return path
}

const minimalDefinition = `
name: docs
trigger:
  workflow_run:
    workflow: Publish CDN
source:
  url: https://example.com/org/docs.git
  branch: main
build:
  source_dir: docs
`

func TestLoad_MinimalDefinition(t *testing.T) {
	wf, err := Load(writeDefinition(t, minimalDefinition))
	require.NoError(t, err)

	require.Equal(t, "docs", wf.Name)
	require.Equal(t, "Publish CDN", wf.Trigger.WorkflowRun.Workflow)
	require.Equal(t, []string{"success"}, wf.Trigger.WorkflowRun.Conclusions)
	require.Equal(t, BuildModeInternal, wf.Build.Mode)
	require.Equal(t, DefaultOutputDir, wf.Build.OutputDir)
	require.Equal(t, DefaultCommitMessage, wf.Deploy.CommitMessage)
	require.Equal(t, DefaultSubject, wf.Monitoring.Subject)
	require.Equal(t, DefaultQueueSize, wf.Daemon.QueueSize)
}

func TestLoad_BuildModeInferredFromCommand(t *testing.T) {
	def := `
trigger:
  interval: 30m
source:
  url: https://example.com/org/docs.git
  branch: main
build:
  command: ["make", "docs"]
`
	wf, err := Load(writeDefinition(t, def))
	require.NoError(t, err)
	require.Equal(t, BuildModeCommand, wf.Build.Mode)
}

func TestLoad_CacheKeyFilesDefaultToRequirements(t *testing.T) {
	def := `
trigger:
  interval: 30m
source:
  url: https://example.com/org/docs.git
  branch: main
runtime:
  name: python
  version: "3.11"
  requirements: requirements.txt
cache:
  enabled: true
install:
  command: ["pip", "install", "-r", "requirements.txt"]
  target: .venv
build:
  source_dir: docs
`
	wf, err := Load(writeDefinition(t, def))
	require.NoError(t, err)
	require.Equal(t, []string{"requirements.txt"}, wf.Cache.KeyFiles)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidDefinitionReportsAllIssues(t *testing.T) {
	def := `
trigger:
  schedule: "0 4 * * *"
  interval: 10m
source:
  url: ""
  branch: ""
build:
  mode: internal
`
	_, err := Load(writeDefinition(t, def))
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"source.url is required",
		"source.branch is required",
		"schedule and interval are mutually exclusive",
		"build.source_dir is required",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected validation message %q in %q", want, msg)
		}
	}
}

func TestLoad_MultipleWorkersRequireConcurrencyGroup(t *testing.T) {
	def := `
trigger:
  interval: 30m
source:
  url: https://example.com/org/docs.git
  branch: main
build:
  source_dir: docs
daemon:
  workers: 2
`
	_, err := Load(writeDefinition(t, def))
	require.Error(t, err)
	require.Contains(t, err.Error(), "daemon.workers")

	def += `concurrency:
  group: docs
`
	_, err = Load(writeDefinition(t, def))
	require.NoError(t, err)
}

func TestInit_CreatesLoadableDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docpub.yaml")
	require.NoError(t, Init(path, false))

	// Re-initializing without force must refuse.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	_, err := Load(path)
	require.NoError(t, err)
}
