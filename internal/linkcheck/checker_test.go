package linkcheck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeHTML(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="guide/">Guide</a>
		<img src="logo.png">
		<a href="https://example.com">External</a>
		<link href="style.css" rel="stylesheet">
	</body></html>`

	links, err := ExtractLinks(strings.NewReader(html))
	require.NoError(t, err)

	urls := make([]string, 0, len(links))
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	require.Contains(t, urls, "guide/")
	require.Contains(t, urls, "logo.png")
	require.Contains(t, urls, "https://example.com")
	require.Contains(t, urls, "style.css")
}

func TestIsInternal(t *testing.T) {
	internal := []string{"guide/", "../up/", "/abs/path/", "page.html"}
	external := []string{"", "#anchor", "https://example.com", "//cdn.example.com/x", "mailto:a@b.c", "tel:+123"}

	for _, u := range internal {
		if !IsInternal(u) {
			t.Errorf("IsInternal(%q) = false, want true", u)
		}
	}
	for _, u := range external {
		if IsInternal(u) {
			t.Errorf("IsInternal(%q) = true, want false", u)
		}
	}
}

func TestCheckSite_AllLinksResolve(t *testing.T) {
	site := t.TempDir()
	writeHTML(t, site, "index.html", `<a href="guide/">Guide</a>`)
	writeHTML(t, site, filepath.Join("guide", "index.html"), `<a href="../">Home</a>`)

	result, err := CheckSite(context.Background(), site)
	require.NoError(t, err)
	require.Equal(t, 2, result.Checked)
	require.Empty(t, result.Broken)
}

func TestCheckSite_ReportsBrokenLinks(t *testing.T) {
	site := t.TempDir()
	writeHTML(t, site, "index.html", `<a href="missing/">Gone</a><a href="/also-missing.html">Gone too</a>`)

	result, err := CheckSite(context.Background(), site)
	require.NoError(t, err)
	require.Len(t, result.Broken, 2)
	require.Equal(t, "index.html", result.Broken[0].SourceFile)
}

func TestCheckSite_DirectoryNeedsIndex(t *testing.T) {
	site := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(site, "empty"), 0o750))
	writeHTML(t, site, "index.html", `<a href="empty/">Empty dir</a>`)

	result, err := CheckSite(context.Background(), site)
	require.NoError(t, err)
	require.Len(t, result.Broken, 1)
}

func TestCheckSite_IgnoresExternalLinks(t *testing.T) {
	site := t.TempDir()
	writeHTML(t, site, "index.html", `<a href="https://example.com">Out</a><a href="#frag">Frag</a>`)

	result, err := CheckSite(context.Background(), site)
	require.NoError(t, err)
	require.Zero(t, result.Checked)
	require.Empty(t, result.Broken)
}
