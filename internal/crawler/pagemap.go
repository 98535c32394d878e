package crawler

import (
	"net/url"
	"strings"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// Snapshot sources.
const (
	SourceAria = "aria"
	SourceDOM  = "dom"
)

// PageMap is one captured state of a page.
type PageMap struct {
	URL      string                    `json:"url"`
	Title    string                    `json:"title"`
	Source   string                    `json:"source"`
	Snapshot string                    `json:"snapshot,omitempty"` // aria source only
	Elements []*snapshot.ElementRecord `json:"elements"`
}

// PageID derives the coverage page key from a URL: scheme, host and path,
// without query, fragment or trailing slash.
func PageID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	path := strings.TrimSuffix(u.Path, "/")
	return u.Scheme + "://" + u.Host + path
}
