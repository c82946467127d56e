package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

func bareRemote(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "remote.git")
	_, err := gogit.PlainInit(dir, true)
	require.NoError(t, err)
	return dir
}

func siteDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

func publishRequest(remote, publishDir, workDir string) PublishRequest {
	return PublishRequest{
		RemoteURL:     remote,
		Branch:        "gh-pages",
		PublishDir:    publishDir,
		WorkDir:       workDir,
		CommitMessage: "docs: publish {commit}",
		SourceCommit:  "0123456789abcdef",
	}
}

func branchCommits(t *testing.T, remote, branch string) []string {
	t.Helper()
	repo, err := gogit.PlainOpen(remote)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(t, err)

	var hashes []string
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	for {
		hashes = append(hashes, commit.Hash.String())
		if commit.NumParents() == 0 {
			break
		}
		commit, err = commit.Parent(0)
		require.NoError(t, err)
	}
	return hashes
}

func TestPublish_CreatesBranchOnEmptyRemote(t *testing.T) {
	remote := bareRemote(t)
	site := siteDir(t, map[string]string{"index.html": "<html>v1</html>"})

	result, err := Publish(context.Background(),
		publishRequest(remote, site, filepath.Join(t.TempDir(), "deploy")))
	require.NoError(t, err)
	require.True(t, result.Published)
	require.Equal(t, "gh-pages", result.Branch)
	require.NotEmpty(t, result.Commit)

	commits := branchCommits(t, remote, "gh-pages")
	require.Len(t, commits, 1)
}

func TestPublish_NoChangesIsIdempotent(t *testing.T) {
	remote := bareRemote(t)
	site := siteDir(t, map[string]string{"index.html": "<html>v1</html>"})

	_, err := Publish(context.Background(),
		publishRequest(remote, site, filepath.Join(t.TempDir(), "deploy1")))
	require.NoError(t, err)

	result, err := Publish(context.Background(),
		publishRequest(remote, site, filepath.Join(t.TempDir(), "deploy2")))
	require.NoError(t, err)
	require.False(t, result.Published, "unchanged tree must not create a commit")

	require.Len(t, branchCommits(t, remote, "gh-pages"), 1)
}

func TestPublish_ExtendsHistoryOnChange(t *testing.T) {
	remote := bareRemote(t)

	v1 := siteDir(t, map[string]string{"index.html": "<html>v1</html>"})
	_, err := Publish(context.Background(),
		publishRequest(remote, v1, filepath.Join(t.TempDir(), "deploy1")))
	require.NoError(t, err)

	v2 := siteDir(t, map[string]string{"index.html": "<html>v2</html>"})
	result, err := Publish(context.Background(),
		publishRequest(remote, v2, filepath.Join(t.TempDir(), "deploy2")))
	require.NoError(t, err)
	require.True(t, result.Published)

	require.Len(t, branchCommits(t, remote, "gh-pages"), 2)
}

func TestPublish_ForceOrphanResetsHistory(t *testing.T) {
	remote := bareRemote(t)

	v1 := siteDir(t, map[string]string{"index.html": "<html>v1</html>"})
	_, err := Publish(context.Background(),
		publishRequest(remote, v1, filepath.Join(t.TempDir(), "deploy1")))
	require.NoError(t, err)

	v2 := siteDir(t, map[string]string{"index.html": "<html>v2</html>"})
	req := publishRequest(remote, v2, filepath.Join(t.TempDir(), "deploy2"))
	req.ForceOrphan = true

	result, err := Publish(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Published)

	require.Len(t, branchCommits(t, remote, "gh-pages"), 1,
		"orphan deploy must leave a single commit")
}

func TestPublish_KeepFilesPreservesExisting(t *testing.T) {
	remote := bareRemote(t)

	v1 := siteDir(t, map[string]string{"CNAME": "docs.example.com", "index.html": "v1"})
	_, err := Publish(context.Background(),
		publishRequest(remote, v1, filepath.Join(t.TempDir(), "deploy1")))
	require.NoError(t, err)

	v2 := siteDir(t, map[string]string{"index.html": "v2"})
	req := publishRequest(remote, v2, filepath.Join(t.TempDir(), "deploy2"))
	req.KeepFiles = true
	_, err = Publish(context.Background(), req)
	require.NoError(t, err)

	// Clone the result and confirm the retained file survived.
	check := filepath.Join(t.TempDir(), "check")
	_, err = gogit.PlainClone(check, false, &gogit.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName("gh-pages"),
		SingleBranch:  true,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(check, "CNAME"))
	require.NoError(t, err)
	require.Equal(t, "docs.example.com", string(data))

	data, err = os.ReadFile(filepath.Join(check, "index.html"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))
}

func TestPublish_ReplacesRemovedFilesWithoutKeepFiles(t *testing.T) {
	remote := bareRemote(t)

	v1 := siteDir(t, map[string]string{"old.html": "old", "index.html": "v1"})
	_, err := Publish(context.Background(),
		publishRequest(remote, v1, filepath.Join(t.TempDir(), "deploy1")))
	require.NoError(t, err)

	v2 := siteDir(t, map[string]string{"index.html": "v2"})
	_, err = Publish(context.Background(),
		publishRequest(remote, v2, filepath.Join(t.TempDir(), "deploy2")))
	require.NoError(t, err)

	check := filepath.Join(t.TempDir(), "check")
	_, err = gogit.PlainClone(check, false, &gogit.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName("gh-pages"),
		SingleBranch:  true,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(check, "old.html"))
	require.True(t, os.IsNotExist(err), "file removed from publish dir must disappear")
}

func TestPublish_CommitMessageSubstitution(t *testing.T) {
	remote := bareRemote(t)
	site := siteDir(t, map[string]string{"index.html": "v1"})

	req := publishRequest(remote, site, filepath.Join(t.TempDir(), "deploy"))
	_, err := Publish(context.Background(), req)
	require.NoError(t, err)

	repo, err := gogit.PlainOpen(remote)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName("gh-pages"), true)
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	require.Equal(t, "docs: publish 01234567", commit.Message)
}
