// Package site implements the built-in static documentation generator:
// markdown sources in, rendered HTML site out. Rendering is incremental via
// content fingerprints kept in a manifest next to the output.
package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/logfields"
)

// ManifestName is the render-state file kept next to the output. It is
// internal bookkeeping and must never be deployed.
const ManifestName = ".docpub-manifest.json"

// Generator renders a markdown tree into a static HTML site.
type Generator struct {
	cfg       config.BuildConfig
	outputDir string
	md        goldmark.Markdown
}

// Stats summarizes a generation pass.
type Stats struct {
	Pages    int
	Rendered int
	Skipped  int // unchanged fingerprint
}

// NewGenerator creates a generator writing to outputDir.
func NewGenerator(cfg config.BuildConfig, outputDir string) *Generator {
	return &Generator{
		cfg:       cfg,
		outputDir: outputDir,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

// Discover walks the source directory and loads all markdown pages.
func (g *Generator) Discover(sourceDir string) ([]*Page, error) {
	var pages []*Page
	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != sourceDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		page, err := LoadPage(sourceDir, rel)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover pages in %s: %w", sourceDir, err)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].RelPath < pages[j].RelPath })
	return pages, nil
}

// Generate renders all pages. Pages whose fingerprint matches the previous
// manifest are skipped; their output is assumed present.
func (g *Generator) Generate(ctx context.Context, pages []*Page) (*Stats, error) {
	if err := os.MkdirAll(g.outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	previous := g.loadManifest()
	manifest := make(map[string]string, len(pages))
	nav := buildNav(pages)
	stats := &Stats{Pages: len(pages)}

	for _, page := range pages {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		manifest[page.RelPath] = page.Fingerprint
		outPath := filepath.Join(g.outputDir, page.OutPath)
		if previous[page.RelPath] == page.Fingerprint {
			if _, err := os.Stat(outPath); err == nil {
				stats.Skipped++
				slog.Debug("Page unchanged, skipping render", logfields.Path(page.RelPath))
				continue
			}
		}

		if err := g.renderPage(page, nav, outPath); err != nil {
			return stats, err
		}
		stats.Rendered++
	}

	if err := g.writeManifest(manifest); err != nil {
		return stats, err
	}

	slog.Info("Site generated",
		slog.Int("pages", stats.Pages),
		slog.Int("rendered", stats.Rendered),
		slog.Int("skipped", stats.Skipped),
		logfields.Path(g.outputDir))
	return stats, nil
}

func (g *Generator) renderPage(page *Page, nav []navEntry, outPath string) error {
	var buf bytes.Buffer
	if err := g.md.Convert(page.Body, &buf); err != nil {
		return fmt.Errorf("render %s: %w", page.RelPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create output directory for %s: %w", page.RelPath, err)
	}
	f, err := os.Create(filepath.Clean(outPath))
	if err != nil {
		return fmt.Errorf("create output file for %s: %w", page.RelPath, err)
	}
	defer func() { _ = f.Close() }()

	data := pageData{
		SiteTitle: g.siteTitle(),
		Title:     page.Title,
		BaseURL:   g.cfg.BaseURL,
		Content:   template.HTML(buf.String()),
		Nav:       nav,
	}
	if err := pageTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("write page %s: %w", page.RelPath, err)
	}
	return nil
}

func (g *Generator) siteTitle() string {
	if g.cfg.Title != "" {
		return g.cfg.Title
	}
	return "Documentation"
}

// buildNav produces the top navigation: the root index plus one entry per
// section, in source order.
func buildNav(pages []*Page) []navEntry {
	nav := []navEntry{{Title: "Home", Href: "./"}}
	seen := map[string]bool{}
	for _, p := range pages {
		if p.Section == "" || seen[p.Section] {
			continue
		}
		seen[p.Section] = true
		nav = append(nav, navEntry{Title: SectionTitle(p.Section), Href: p.Section + "/"})
	}
	return nav
}

func (g *Generator) loadManifest() map[string]string {
	data, err := os.ReadFile(filepath.Join(g.outputDir, ManifestName))
	if err != nil {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("Ignoring unreadable site manifest", logfields.Error(err))
		return nil
	}
	return m
}

func (g *Generator) writeManifest(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal site manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(g.outputDir, ManifestName), data, 0o644); err != nil {
		return fmt.Errorf("write site manifest: %w", err)
	}
	return nil
}
