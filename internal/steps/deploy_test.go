package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/metrics"
	"git.home.luguber.info/inful/docpub/internal/site"
)

// countingRecorder tracks deploy outcomes; everything else is a no-op.
type countingRecorder struct {
	metrics.NoopRecorder
	published int
	skipped   int
}

func (r *countingRecorder) IncDeploy(published bool) {
	if published {
		r.published++
	} else {
		r.skipped++
	}
}

func TestDeployStep_NoBranchConfigured(t *testing.T) {
	st := stateWithRepo(t, testWorkflow(), nil)
	result := (&DeployStep{}).Execute(context.Background(), st)
	require.True(t, result.IsSuccess())
	require.False(t, st.Report.Deployed)
}

func TestDeployStep_BranchGuardSkips(t *testing.T) {
	wf := testWorkflow()
	wf.Deploy = config.DeployConfig{
		Branch:       "gh-pages",
		OnlyBranches: []string{"main"},
	}
	rec := &countingRecorder{}
	st := stateWithRepo(t, wf, nil)
	st.Run.Branch = "feature/draft"

	result := (&DeployStep{Recorder: rec}).Execute(context.Background(), st)
	require.True(t, result.IsSuccess())
	require.True(t, result.ShouldSkip(), "guard skip halts the pipeline without failing it")
	require.True(t, st.Report.DeploySkipped)
	require.False(t, st.Report.Deployed)
	require.Equal(t, 1, rec.skipped)
	require.Zero(t, rec.published)
}

func TestDeployStep_PublishesToLocalRemote(t *testing.T) {
	remote := filepath.Join(t.TempDir(), "remote.git")
	_, err := gogit.PlainInit(remote, true)
	require.NoError(t, err)

	wf := testWorkflow()
	wf.Source.URL = remote
	wf.Deploy = config.DeployConfig{
		Branch:        "gh-pages",
		OnlyBranches:  []string{"main"},
		CommitMessage: "docs: publish {commit}",
	}
	rec := &countingRecorder{}
	st := stateWithRepo(t, wf, nil)
	st.Run.Branch = "main"
	st.Run.Commit = "0123456789abcdef"
	writeSite(t, st, map[string]string{"index.html": "<h1>docs</h1>"})

	result := (&DeployStep{Recorder: rec}).Execute(context.Background(), st)
	require.True(t, result.IsSuccess())
	require.True(t, st.Report.Deployed)
	require.NotEmpty(t, st.Report.DeployCommit)
	require.Equal(t, 1, rec.published)
}

func TestDeployStep_RenderManifestNotPublished(t *testing.T) {
	remote := filepath.Join(t.TempDir(), "remote.git")
	_, err := gogit.PlainInit(remote, true)
	require.NoError(t, err)

	wf := testWorkflow()
	wf.Source.URL = remote
	wf.Deploy = config.DeployConfig{
		Branch:        "gh-pages",
		OnlyBranches:  []string{"main"},
		CommitMessage: "docs: publish {commit}",
	}
	st := stateWithRepo(t, wf, nil)
	st.Run.Branch = "main"
	writeSite(t, st, map[string]string{
		"index.html":      "<h1>docs</h1>",
		site.ManifestName: `{"index.md":"abc"}`,
	})

	result := (&DeployStep{}).Execute(context.Background(), st)
	require.True(t, result.IsSuccess())
	require.True(t, st.Report.Deployed)

	check := filepath.Join(t.TempDir(), "check")
	_, err = gogit.PlainClone(check, false, &gogit.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName("gh-pages"),
		SingleBranch:  true,
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(check, "index.html"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(check, site.ManifestName))
	require.True(t, os.IsNotExist(err), "render state must stay out of the pages branch")
}
