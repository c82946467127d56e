package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/logfields"
)

// Client handles Git operations against the workspace directory.
type Client struct {
	workspaceDir string
}

// NewClient creates a new Git client with the specified workspace directory.
func NewClient(workspaceDir string) *Client {
	return &Client{workspaceDir: workspaceDir}
}

// CheckoutResult describes a completed clone or update.
type CheckoutResult struct {
	Path   string
	Commit string
	Branch string
}

// Clone clones the repository to the workspace, replacing any previous checkout.
func (c *Client) Clone(ctx context.Context, repo config.Repository) (*CheckoutResult, error) {
	repoPath := filepath.Join(c.workspaceDir, repo.Name)

	slog.Debug("Cloning repository", logfields.URL(repo.URL), logfields.Name(repo.Name), logfields.Branch(repo.Branch), logfields.Path(repoPath))

	if err := os.RemoveAll(repoPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing directory: %w", err)
	}

	cloneOptions := &git.CloneOptions{URL: repo.URL}
	if repo.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
		cloneOptions.SingleBranch = true
	}

	auth, err := Authentication(repo.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to setup authentication: %w", err)
	}
	cloneOptions.Auth = auth

	repository, err := git.PlainCloneContext(ctx, repoPath, false, cloneOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository %s: %w", repo.URL, ClassifyRemoteError(repo.URL, err))
	}

	return c.checkoutResult(repository, repo, repoPath)
}

// Update pulls the latest changes into an existing checkout, or clones when
// none exists yet.
func (c *Client) Update(ctx context.Context, repo config.Repository) (*CheckoutResult, error) {
	repoPath := filepath.Join(c.workspaceDir, repo.Name)

	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
		slog.Debug("Checkout doesn't exist, cloning", logfields.Name(repo.Name))
		return c.Clone(ctx, repo)
	}

	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullOptions := &git.PullOptions{RemoteName: "origin"}
	auth, err := Authentication(repo.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to setup authentication: %w", err)
	}
	pullOptions.Auth = auth

	err = worktree.PullContext(ctx, pullOptions)
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("failed to pull repository %s: %w", repo.URL, ClassifyRemoteError(repo.URL, err))
	}
	if err == git.NoErrAlreadyUpToDate {
		slog.Info("Repository already up to date", logfields.Name(repo.Name))
	}

	return c.checkoutResult(repository, repo, repoPath)
}

func (c *Client) checkoutResult(repository *git.Repository, repo config.Repository, repoPath string) (*CheckoutResult, error) {
	ref, err := repository.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit := ref.Hash().String()
	slog.Info("Repository ready",
		logfields.Name(repo.Name),
		logfields.URL(repo.URL),
		logfields.Commit(commit[:8]),
		logfields.Path(repoPath))
	return &CheckoutResult{Path: repoPath, Commit: commit, Branch: repo.Branch}, nil
}

// Authentication creates a transport auth method from an auth block.
func Authentication(auth *config.AuthConfig) (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}
	switch auth.Type {
	case "none", "":
		return nil, nil // public repositories

	case "ssh":
		keyPath := auth.KeyPath
		if keyPath == "" {
			keyPath = filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		}
		publicKeys, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
		}
		return publicKeys, nil

	case "token":
		token, err := auth.ResolveToken()
		if err != nil {
			return nil, err
		}
		return &http.BasicAuth{
			Username: "token", // forges accept "token" as username
			Password: token,
		}, nil

	case "basic":
		if auth.Username == "" || auth.Password == "" {
			return nil, fmt.Errorf("basic authentication requires username and password")
		}
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil

	default:
		return nil, fmt.Errorf("unsupported authentication type: %s", auth.Type)
	}
}

// EnsureWorkspace creates the workspace directory if it doesn't exist.
func (c *Client) EnsureWorkspace() error {
	if err := os.MkdirAll(c.workspaceDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return nil
}
