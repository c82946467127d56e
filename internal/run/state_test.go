package run

import (
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/docpub/internal/config"
)

func guardedWorkflow() *config.Workflow {
	return &config.Workflow{
		Name: "docs",
		Source: config.Repository{
			Name:   "drafter",
			URL:    "https://example.com/org/drafter.git",
			Branch: "main",
		},
		Deploy: config.DeployConfig{
			Branch:       "gh-pages",
			PublishDir:   "public",
			OnlyBranches: []string{"main"},
		},
	}
}

func TestNewState_RepoDirUnderWorkspace(t *testing.T) {
	wf := guardedWorkflow()
	st := NewState(New("docs", ReasonManual), wf, "/tmp/ws")
	if st.RepoDir != filepath.Join("/tmp/ws", "drafter") {
		t.Errorf("RepoDir = %s", st.RepoDir)
	}
}

func TestDeployAllowed_BranchGuard(t *testing.T) {
	wf := guardedWorkflow()

	rn := New("docs", ReasonUpstream)
	rn.Branch = "main"
	if !NewState(rn, wf, "/tmp/ws").DeployAllowed() {
		t.Error("main branch should pass the guard")
	}

	rn = New("docs", ReasonUpstream)
	rn.Branch = "feature/x"
	if NewState(rn, wf, "/tmp/ws").DeployAllowed() {
		t.Error("feature branch must not pass the guard")
	}
}

func TestDeployAllowed_EmptyBranchFallsBackToSource(t *testing.T) {
	wf := guardedWorkflow()
	rn := New("docs", ReasonManual) // no branch context
	if !NewState(rn, wf, "/tmp/ws").DeployAllowed() {
		t.Error("manual run without branch should use source.branch")
	}
}
