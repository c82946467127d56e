package linkcheck

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Link is a reference extracted from HTML content.
type Link struct {
	URL       string // raw attribute value
	Tag       string // a, img, script, link
	Attribute string // href or src
}

// linkAttributes maps element tags to the attribute carrying their reference.
var linkAttributes = map[string]string{
	"a":      "href",
	"img":    "src",
	"script": "src",
	"link":   "href",
}

// ExtractLinks parses HTML and returns every link-like reference in document order.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttributes[n.Data]; ok {
				for _, a := range n.Attr {
					if a.Key == attr && strings.TrimSpace(a.Val) != "" {
						links = append(links, Link{URL: a.Val, Tag: n.Data, Attribute: attr})
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// IsInternal reports whether a link target is internal to the site (a
// relative or root-relative path rather than an external URL or anchor).
func IsInternal(rawURL string) bool {
	u := strings.TrimSpace(rawURL)
	switch {
	case u == "", strings.HasPrefix(u, "#"):
		return false
	case strings.HasPrefix(u, "//"):
		return false
	case strings.Contains(u, "://"), strings.HasPrefix(u, "mailto:"), strings.HasPrefix(u, "tel:"):
		return false
	}
	return true
}
