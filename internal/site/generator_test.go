package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpub/internal/config"
)

func buildConfig() config.BuildConfig {
	return config.BuildConfig{
		Mode:      config.BuildModeInternal,
		SourceDir: "docs",
		OutputDir: "public",
		Title:     "Test Docs",
	}
}

func TestDiscover_FindsMarkdownSorted(t *testing.T) {
	src := t.TempDir()
	writePage(t, src, "index.md", "# Home\n")
	writePage(t, src, filepath.Join("api", "auth.md"), "# Auth\n")
	writePage(t, src, filepath.Join(".hidden", "skip.md"), "hidden\n")
	writePage(t, src, "notes.txt", "not markdown\n")

	gen := NewGenerator(buildConfig(), t.TempDir())
	pages, err := gen.Discover(src)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Equal(t, filepath.Join("api", "auth.md"), pages[0].RelPath)
	require.Equal(t, "index.md", pages[1].RelPath)
}

func TestGenerate_RendersHTMLWithNav(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writePage(t, src, "index.md", "# Home\n\nWelcome **here**.\n")
	writePage(t, src, filepath.Join("api", "auth.md"), "# Auth\n")

	gen := NewGenerator(buildConfig(), out)
	pages, err := gen.Discover(src)
	require.NoError(t, err)

	stats, err := gen.Generate(context.Background(), pages)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Pages)
	require.Equal(t, 2, stats.Rendered)
	require.Zero(t, stats.Skipped)

	home, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	html := string(home)
	require.Contains(t, html, "<strong>here</strong>")
	require.Contains(t, html, "Test Docs")
	require.Contains(t, html, "Api") // nav section entry

	_, err = os.Stat(filepath.Join(out, "api", "auth", "index.html"))
	require.NoError(t, err)
}

func TestGenerate_SkipsUnchangedPages(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writePage(t, src, "index.md", "# Home\n")
	writePage(t, src, "guide.md", "# Guide\n")

	gen := NewGenerator(buildConfig(), out)
	pages, err := gen.Discover(src)
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), pages)
	require.NoError(t, err)

	// Change one page, leave the other alone.
	writePage(t, src, "guide.md", "# Guide\n\nMore.\n")
	pages, err = gen.Discover(src)
	require.NoError(t, err)

	stats, err := gen.Generate(context.Background(), pages)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Rendered)
	require.Equal(t, 1, stats.Skipped)
}

func TestGenerate_RerendersWhenOutputMissing(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writePage(t, src, "index.md", "# Home\n")

	gen := NewGenerator(buildConfig(), out)
	pages, err := gen.Discover(src)
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), pages)
	require.NoError(t, err)

	// Manifest says unchanged, but the output file is gone.
	require.NoError(t, os.Remove(filepath.Join(out, "index.html")))

	stats, err := gen.Generate(context.Background(), pages)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Rendered)
}

func TestGenerate_WritesManifest(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writePage(t, src, "index.md", "# Home\n")

	gen := NewGenerator(buildConfig(), out)
	pages, err := gen.Discover(src)
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), pages)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, ManifestName))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "index.md"))
}
