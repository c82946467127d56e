package site

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inful/mdfp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Page is one markdown source document.
type Page struct {
	SourcePath  string         // absolute path of the markdown file
	RelPath     string         // path relative to the source dir
	OutPath     string         // output path relative to the site root
	Title       string
	Section     string         // first path element, "" at root
	Frontmatter map[string]any
	Body        []byte         // markdown body with frontmatter stripped
	Fingerprint string         // content fingerprint over frontmatter+body
}

var titleCaser = cases.Title(language.English)

// LoadPage reads a markdown file, splits the YAML frontmatter and computes
// the content fingerprint used for incremental rendering.
func LoadPage(sourceDir, relPath string) (*Page, error) {
	sourcePath := filepath.Join(sourceDir, relPath)
	raw, err := os.ReadFile(filepath.Clean(sourcePath))
	if err != nil {
		return nil, fmt.Errorf("read page %s: %w", relPath, err)
	}

	fmRaw, body := splitFrontmatter(raw)
	var fields map[string]any
	if len(fmRaw) > 0 {
		if err := yaml.Unmarshal(fmRaw, &fields); err != nil {
			return nil, fmt.Errorf("parse frontmatter of %s: %w", relPath, err)
		}
	}

	p := &Page{
		SourcePath:  sourcePath,
		RelPath:     relPath,
		OutPath:     outputPath(relPath),
		Section:     section(relPath),
		Frontmatter: fields,
		Body:        body,
		Fingerprint: mdfp.CalculateFingerprintFromParts(string(fmRaw), string(body)),
	}
	p.Title = pageTitle(p)
	return p, nil
}

// splitFrontmatter separates a leading YAML frontmatter block from the body.
func splitFrontmatter(raw []byte) (frontmatter, body []byte) {
	const delim = "---"
	if !bytes.HasPrefix(raw, []byte(delim+"\n")) && !bytes.HasPrefix(raw, []byte(delim+"\r\n")) {
		return nil, raw
	}
	rest := raw[len(delim):]
	// Skip the newline after the opening delimiter.
	rest = bytes.TrimPrefix(bytes.TrimPrefix(rest, []byte("\r\n")), []byte("\n"))
	end := bytes.Index(rest, []byte("\n"+delim))
	if end < 0 {
		return nil, raw
	}
	frontmatter = rest[:end+1]
	body = rest[end+1+len(delim):]
	body = bytes.TrimLeft(body, "\r\n")
	return frontmatter, body
}

// pageTitle resolves the display title: frontmatter title, then the first
// level-1 heading, then the title-cased filename.
func pageTitle(p *Page) string {
	if t, ok := p.Frontmatter["title"].(string); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(string(p.Body), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	base := strings.TrimSuffix(filepath.Base(p.RelPath), filepath.Ext(p.RelPath))
	return titleCaser.String(strings.ReplaceAll(strings.ReplaceAll(base, "-", " "), "_", " "))
}

// outputPath maps a markdown source path to its HTML output path.
// index.md stays index.html; everything else becomes <name>/index.html for
// clean URLs.
func outputPath(relPath string) string {
	noExt := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	if filepath.Base(noExt) == "index" || filepath.Base(noExt) == "README" {
		return filepath.Join(filepath.Dir(relPath), "index.html")
	}
	return filepath.Join(noExt, "index.html")
}

func section(relPath string) string {
	dir := filepath.Dir(relPath)
	if dir == "." {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(dir), "/")
	return parts[0]
}

// SectionTitle returns the display form of a section path element.
func SectionTitle(s string) string {
	return titleCaser.String(strings.ReplaceAll(strings.ReplaceAll(s, "-", " "), "_", " "))
}
