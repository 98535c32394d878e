package triage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/report"
)

// SectionID identifies the injected section so reruns replace it.
const SectionID = "ai-debug-suggestions"

var sectionTemplate = template.Must(template.New("section").Parse(`<section id="{{.ID}}">
<style>
#ai-debug-suggestions { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 1100px; margin: 2rem auto; padding: 0 1rem; color: #1f2937; }
#ai-debug-suggestions article { border: 1px solid #d1d5db; border-radius: 6px; padding: .5rem 1rem; margin: 1rem 0; }
#ai-debug-suggestions .badge { display: inline-block; border-radius: 4px; padding: 0 .4rem; background: #e5e7eb; font-size: .8rem; }
#ai-debug-suggestions .failed .badge { background: #fecaca; }
#ai-debug-suggestions img { border: 1px solid #d1d5db; margin: .25rem; }
#ai-debug-suggestions pre { background: #f3f4f6; padding: .5rem; overflow-x: auto; }
</style>
<h2>AI Debug Suggestions</h2>
<p>{{.Summary}}</p>
{{range .Items}}<article class="{{.Status}}">
<h3>{{.Test}}</h3>
<p><span class="badge">{{.Category}}</span>{{if .Confidence}} {{.Confidence}}{{end}}{{if .Headline}} {{.Headline}}{{end}}</p>
{{if .Error}}<p>Analysis failed: {{.Error}}</p>{{end}}{{.Body}}
{{range .Thumbnails}}<img src="{{.}}" alt="screenshot">{{end}}
</article>
{{end}}</section>`))

type sectionItem struct {
	Test       string
	Status     Status
	Category   string
	Confidence string
	Headline   string
	Error      string
	Body       template.HTML
	Thumbnails []template.URL
}

// RenderSection renders the suggestions section for outcomes.
// Screenshots wider than thumbWidth are scaled down; 0 omits them.
func RenderSection(outcomes []*Outcome, thumbWidth int) (string, error) {
	items := make([]sectionItem, 0, len(outcomes))
	for _, o := range outcomes {
		item := sectionItem{
			Test:     o.Artifact.TestName,
			Status:   o.Status,
			Category: string(o.Category()),
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		if a := o.Analysis; a != nil {
			if a.HasVerdict {
				item.Confidence = fmt.Sprintf("%.0f%%", a.Verdict.Confidence*100)
				item.Headline = a.Verdict.Summary
			}
			body, err := report.RenderMarkdown([]byte(a.Markdown))
			if err != nil {
				return "", err
			}
			item.Body = body
		}
		if thumbWidth > 0 {
			for _, shot := range o.Artifact.Screenshots {
				uri, err := Thumbnail(shot, thumbWidth)
				if err != nil {
					return "", err
				}
				item.Thumbnails = append(item.Thumbnails, uri)
			}
		}
		items = append(items, item)
	}

	var buf bytes.Buffer
	err := sectionTemplate.Execute(&buf, struct {
		ID      string
		Summary string
		Items   []sectionItem
	}{SectionID, Summarize(outcomes).String(), items})
	if err != nil {
		return "", fmt.Errorf("failed to render suggestions: %w", err)
	}
	return buf.String(), nil
}

// Thumbnail returns a PNG data URI of the image at path, at most width pixels wide.
func Thumbnail(path string, width int) (template.URL, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open screenshot: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if img.Bounds().Dx() > width {
		img = resize.Resize(uint(width), 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Inject copies the HTML document from r to w with section appended to the
// body, replacing any section injected earlier.
func Inject(r io.Reader, w io.Writer, section string) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse report: %w", err)
	}

	if old := findByID(doc, SectionID); old != nil {
		old.Parent.RemoveChild(old)
	}
	body := findAtom(doc, atom.Body)
	if body == nil {
		return fmt.Errorf("report has no body element")
	}

	nodes, err := html.ParseFragment(strings.NewReader(section), body)
	if err != nil {
		return fmt.Errorf("failed to parse suggestions section: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// InjectFile rewrites the report at path in place.
func InjectFile(path, section string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	var buf bytes.Buffer
	if err := Inject(bytes.NewReader(data), &buf, section); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && getAttr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}
