package run

import (
	"path/filepath"

	"git.home.luguber.info/inful/docpub/internal/config"
)

// State is the mutable context shared by pipeline steps during one run.
// Steps read upstream results from it and record their own.
type State struct {
	Run      *Run
	Workflow *config.Workflow

	// WorkspaceDir is the per-run scratch directory; RepoDir and SiteDir
	// live underneath it.
	WorkspaceDir string
	// RepoDir is where the source repository was checked out.
	RepoDir string
	// SiteDir is where the built site ended up (absolute).
	SiteDir string

	// CacheKey is the dependency cache key computed by the restore step and
	// reused by the save step.
	CacheKey string
	// CacheHit records whether the restore step found an entry.
	CacheHit bool

	Report Report
}

// NewState creates run state rooted at the given workspace directory.
func NewState(r *Run, wf *config.Workflow, workspaceDir string) *State {
	return &State{
		Run:          r,
		Workflow:     wf,
		WorkspaceDir: workspaceDir,
		RepoDir:      filepath.Join(workspaceDir, wf.Source.Name),
	}
}

// DeployAllowed evaluates the deploy branch guard against the run's branch.
// An empty run branch (manual run without branch context) is treated as the
// configured source branch.
func (s *State) DeployAllowed() bool {
	branch := s.Run.Branch
	if branch == "" {
		branch = s.Workflow.Source.Branch
	}
	for _, b := range s.Workflow.Deploy.OnlyBranches {
		if b == branch {
			return true
		}
	}
	return false
}
