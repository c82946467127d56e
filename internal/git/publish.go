package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/util"
)

// PublishRequest describes a pages-branch deployment.
type PublishRequest struct {
	RemoteURL  string
	Branch     string // hosting branch, e.g. gh-pages
	PublishDir string // absolute path of the built site
	WorkDir    string // scratch directory for the deploy checkout

	// KeepFiles overlays the publish directory onto the branch's existing
	// contents instead of replacing them.
	KeepFiles bool
	// ForceOrphan resets the hosting branch to a single commit.
	ForceOrphan bool

	CommitMessage string
	SourceCommit  string // substituted for {commit} in the message
	Auth          *config.AuthConfig

	// Exclude lists file names never staged onto the hosting branch.
	Exclude []string
}

// PublishResult reports what the deployment did.
type PublishResult struct {
	Published bool   // false when the tree was already up to date
	Commit    string // hash of the deploy commit when published
	Branch    string
}

// committer identity used for deploy commits.
var committer = object.Signature{Name: "docpub", Email: "docpub@localhost"}

// Publish writes the publish directory's tree onto the hosting branch and
// pushes it. With ForceOrphan the branch history is reset to a single commit;
// otherwise history is extended (and with KeepFiles existing files survive).
func Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	auth, err := Authentication(req.Auth)
	if err != nil {
		return nil, fmt.Errorf("deploy authentication: %w", err)
	}

	var repository *git.Repository
	orphan := req.ForceOrphan

	if !orphan {
		repository, err = clonePagesBranch(ctx, req, auth)
		if errors.Is(err, errBranchMissing) {
			orphan = true // no branch yet: first deploy creates it
		} else if err != nil {
			return nil, err
		}
	}
	if orphan {
		repository, err = initPagesBranch(req)
		if err != nil {
			return nil, err
		}
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return nil, fmt.Errorf("deploy worktree: %w", err)
	}

	if !req.KeepFiles && !orphan {
		if err := util.ClearDir(req.WorkDir, ".git"); err != nil {
			return nil, fmt.Errorf("clear hosting branch contents: %w", err)
		}
	}
	if err := util.CopyDir(req.PublishDir, req.WorkDir, req.Exclude...); err != nil {
		return nil, fmt.Errorf("stage publish directory: %w", err)
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("stage deploy changes: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("deploy status: %w", err)
	}
	if status.IsClean() && !orphan {
		slog.Info("Hosting branch already up to date", logfields.Branch(req.Branch))
		return &PublishResult{Published: false, Branch: req.Branch}, nil
	}

	sig := committer
	sig.When = time.Now()
	message := strings.ReplaceAll(req.CommitMessage, "{commit}", shortCommit(req.SourceCommit))
	commit, err := worktree.Commit(message, &git.CommitOptions{Author: &sig, Committer: &sig})
	if err != nil {
		return nil, fmt.Errorf("deploy commit: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", req.Branch, req.Branch))
	if orphan {
		refSpec = gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/heads/%s", req.Branch, req.Branch))
	}
	err = repository.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       auth,
		Force:      orphan,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("push hosting branch %s: %w", req.Branch, ClassifyRemoteError(req.RemoteURL, err))
	}

	slog.Info("Site published",
		logfields.Branch(req.Branch),
		logfields.Commit(commit.String()[:8]),
		slog.Bool("orphan", orphan),
		slog.Bool("keep_files", req.KeepFiles))

	return &PublishResult{Published: true, Commit: commit.String(), Branch: req.Branch}, nil
}

var errBranchMissing = errors.New("hosting branch does not exist on remote")

// clonePagesBranch clones only the hosting branch into the work directory.
func clonePagesBranch(ctx context.Context, req PublishRequest, auth transport.AuthMethod) (*git.Repository, error) {
	repository, err := git.PlainCloneContext(ctx, req.WorkDir, false, &git.CloneOptions{
		URL:           req.RemoteURL,
		ReferenceName: plumbing.NewBranchReferenceName(req.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err == nil {
		return repository, nil
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.Is(err, transport.ErrEmptyRemoteRepository) ||
		strings.Contains(err.Error(), "couldn't find remote ref") {
		return nil, errBranchMissing
	}
	return nil, fmt.Errorf("clone hosting branch %s: %w", req.Branch, ClassifyRemoteError(req.RemoteURL, err))
}

// initPagesBranch creates a fresh repository whose first commit will become
// the (new or reset) hosting branch.
func initPagesBranch(req PublishRequest) (*git.Repository, error) {
	if err := os.MkdirAll(req.WorkDir, 0o750); err != nil {
		return nil, fmt.Errorf("create deploy work directory: %w", err)
	}
	repository, err := git.PlainInit(req.WorkDir, false)
	if err != nil {
		return nil, fmt.Errorf("init deploy repository: %w", err)
	}
	branchRef := plumbing.NewBranchReferenceName(req.Branch)
	if err := repository.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
		return nil, fmt.Errorf("point HEAD at hosting branch: %w", err)
	}
	_, err = repository.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{req.RemoteURL}})
	if err != nil {
		return nil, fmt.Errorf("configure deploy remote: %w", err)
	}
	return repository, nil
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}
