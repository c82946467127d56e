package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePage(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadPage_FrontmatterTitle(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "guide.md", "---\ntitle: User Guide\n---\n\nBody text.\n")

	p, err := LoadPage(dir, "guide.md")
	require.NoError(t, err)
	require.Equal(t, "User Guide", p.Title)
	require.Equal(t, "User Guide", p.Frontmatter["title"])
	require.Equal(t, "Body text.\n", string(p.Body))
	require.NotEmpty(t, p.Fingerprint)
}

func TestLoadPage_HeadingTitleFallback(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "setup.md", "# Getting Started\n\nInstall things.\n")

	p, err := LoadPage(dir, "setup.md")
	require.NoError(t, err)
	require.Equal(t, "Getting Started", p.Title)
}

func TestLoadPage_FilenameTitleFallback(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "release-notes.md", "just text, no heading\n")

	p, err := LoadPage(dir, "release-notes.md")
	require.NoError(t, err)
	require.Equal(t, "Release Notes", p.Title)
}

func TestLoadPage_FingerprintChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "a.md", "one\n")
	p1, err := LoadPage(dir, "a.md")
	require.NoError(t, err)

	writePage(t, dir, "a.md", "two\n")
	p2, err := LoadPage(dir, "a.md")
	require.NoError(t, err)
	require.NotEqual(t, p1.Fingerprint, p2.Fingerprint)
}

func TestOutputPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"index.md", "index.html"},
		{"README.md", "index.html"},
		{"guide.md", filepath.Join("guide", "index.html")},
		{filepath.Join("api", "index.md"), filepath.Join("api", "index.html")},
		{filepath.Join("api", "auth.md"), filepath.Join("api", "auth", "index.html")},
	}
	for _, c := range cases {
		if got := outputPath(c.in); got != c.want {
			t.Errorf("outputPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSection(t *testing.T) {
	if s := section("index.md"); s != "" {
		t.Errorf("root page section = %q, want empty", s)
	}
	if s := section(filepath.Join("api", "auth.md")); s != "api" {
		t.Errorf("section = %q, want api", s)
	}
}

func TestSplitFrontmatter_NoBlock(t *testing.T) {
	fm, body := splitFrontmatter([]byte("# Title\n"))
	require.Nil(t, fm)
	require.Equal(t, "# Title\n", string(body))
}
