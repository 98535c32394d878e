// Package report renders coverage reports as Markdown, HTML, JSON and a
// terminal summary.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
)

var titleCaser = cases.Title(language.English)

// maxSelectorRows caps the selector table.
const maxSelectorRows = 20

var (
	cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "", "<", "&lt;", ">", "&gt;")
	// Code spans show entities literally, so only table breakers are escaped.
	codeEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "", "`", "'")
)

func cell(s string) string {
	return cellEscaper.Replace(s)
}

// code wraps s in a code span that is safe inside a table cell.
func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + codeEscaper.Replace(s) + "`"
}

// Markdown writes r as a GitHub-flavoured Markdown document.
func Markdown(w io.Writer, r *coverage.CoverageReport) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p("# UI Coverage Report\n\n")
	p("_Session %s, generated %s", code(r.SessionID), r.GeneratedAt.Format("2006-01-02 15:04:05"))
	if r.Commit != "" {
		p(" from %s", code(r.Commit))
		if r.Branch != "" {
			p(" on %s", code(r.Branch))
		}
	}
	p("_\n\n")

	s := r.Summary
	p("## Summary\n\n")
	p("| Metric | Value |\n|---|---|\n")
	p("| Coverage | **%d%%** (%d of %d elements) |\n", s.CoveragePercentage, s.CoveredElements, s.TotalElements)
	p("| Interactive elements | %d of %d covered |\n", s.CoveredInteractive, s.InteractiveElements)
	p("| Critical elements | %d of %d covered |\n", s.CoveredCritical, s.CriticalElements)
	p("| Pages | %d |\n", s.TotalPages)
	p("| Tests | %d |\n", s.TotalTests)
	p("| Interactions | %d (%d unique selectors) |\n\n", s.TotalInteractions, s.UniqueSelectors)

	if len(r.ByType) > 0 {
		p("## Coverage by Element Type\n\n")
		p("| Type | Total | Covered | Uncovered | Coverage |\n|---|---:|---:|---:|---:|\n")
		for _, t := range r.ByType {
			p("| %s | %d | %d | %d | %d%% |\n", titleCaser.String(t.Type.String()), t.Total, t.Covered, t.Uncovered, t.Percentage)
		}
		p("\n")
	}

	if len(r.Pages) > 0 {
		p("## Pages\n\n")
		p("| Page | Elements | Covered | Coverage | Visits | Tests |\n|---|---:|---:|---:|---:|---|\n")
		for _, pg := range r.Pages {
			p("| %s | %d | %d | %d%% | %d | %s |\n", cell(pg.PageID), pg.Total, pg.Covered, pg.Percentage,
				pg.TotalVisits, cell(strings.Join(pg.VisitedBy, ", ")))
		}
		p("\n")
	}

	if len(r.Tests) > 0 {
		p("## Tests\n\n")
		p("| Test | Pages | Interactions | Distinct selectors | Elements covered |\n|---|---:|---:|---:|---:|\n")
		for _, t := range r.Tests {
			p("| %s | %d | %d | %d | %d |\n", cell(t.Name), len(t.PagesVisited), t.Interactions, t.DistinctSelectors, t.ElementsCovered)
		}
		p("\n")
	}

	if len(r.Selectors) > 0 {
		p("## Top Selectors\n\n")
		p("| Selector | Uses | Methods | Elements matched |\n|---|---:|---|---:|\n")
		for i, sel := range r.Selectors {
			if i == maxSelectorRows {
				break
			}
			p("| %s | %d | %s | %d |\n", code(sel.Selector), sel.Uses, cell(strings.Join(sel.Methods, ", ")), sel.ElementsMatched)
		}
		p("\n")
	}

	p("## Uncovered Elements\n\n")
	if len(r.Uncovered) == 0 {
		p("Every discovered element is covered.\n\n")
	} else {
		p("| Priority | Page | Type | Element | Suggested selectors |\n|---:|---|---|---|---|\n")
		for _, u := range r.Uncovered {
			suggestions := make([]string, 0, len(u.SuggestedSelectors))
			for _, sel := range u.SuggestedSelectors {
				suggestions = append(suggestions, code(sel))
			}
			label := cell(u.Element.Label())
			if u.Element.Critical {
				label = "**" + label + "**"
			}
			p("| %d | %s | %s | %s | %s |\n", u.Priority, cell(u.PageID), u.Element.Type, label, strings.Join(suggestions, " "))
		}
		p("\n")
	}

	if len(r.Recommendations) > 0 {
		p("## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			p("- **%s** (%s): %s\n", strings.ToUpper(rec.Priority), rec.Category, rec.Message)
			for _, d := range rec.Details {
				p("  - %s\n", cell(d))
			}
		}
		p("\n")
	}

	return bw.Flush()
}
