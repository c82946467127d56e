// Package linkcheck verifies internal links of a built site on disk.
package linkcheck

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docpub/internal/logfields"
)

// BrokenLink is an internal reference whose target does not exist in the site tree.
type BrokenLink struct {
	SourceFile string // HTML file containing the link, relative to the site root
	URL        string
}

func (b BrokenLink) String() string { return fmt.Sprintf("%s -> %s", b.SourceFile, b.URL) }

// Result summarizes a site check.
type Result struct {
	Checked int
	Broken  []BrokenLink
}

// CheckSite walks every HTML file under siteDir and verifies that internal
// link targets resolve to files within the site. External URLs are not
// fetched.
func CheckSite(ctx context.Context, siteDir string) (*Result, error) {
	result := &Result{}

	err := filepath.WalkDir(siteDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(siteDir, p)
		if err != nil {
			return err
		}
		return checkFile(siteDir, rel, result)
	})
	if err != nil {
		return nil, fmt.Errorf("check site %s: %w", siteDir, err)
	}

	slog.Info("Link check completed",
		slog.Int("checked", result.Checked),
		slog.Int("broken", len(result.Broken)))
	return result, nil
}

func checkFile(siteDir, relFile string, result *Result) error {
	f, err := os.Open(filepath.Clean(filepath.Join(siteDir, relFile)))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	links, err := ExtractLinks(f)
	if err != nil {
		return fmt.Errorf("extract links from %s: %w", relFile, err)
	}

	for _, link := range links {
		if !IsInternal(link.URL) {
			continue
		}
		result.Checked++
		if !targetExists(siteDir, relFile, link.URL) {
			result.Broken = append(result.Broken, BrokenLink{SourceFile: relFile, URL: link.URL})
			slog.Debug("Broken internal link", logfields.Path(relFile), logfields.URL(link.URL))
		}
	}
	return nil
}

// targetExists resolves a link relative to its containing file (or the site
// root for root-relative links) and checks the target file exists. Directory
// targets count when they contain an index.html.
func targetExists(siteDir, relFile, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	target := u.Path
	if target == "" {
		return true // pure query/fragment
	}

	var resolved string
	if path.IsAbs(target) {
		resolved = filepath.Join(siteDir, filepath.FromSlash(strings.TrimPrefix(target, "/")))
	} else {
		resolved = filepath.Join(siteDir, filepath.Dir(relFile), filepath.FromSlash(target))
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err := os.Stat(filepath.Join(resolved, "index.html"))
		return err == nil
	}
	return true
}
