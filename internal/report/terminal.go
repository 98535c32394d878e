package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5b21b6"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	panelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#d1d5db"))

	levelStyles = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#16a34a")),
		"medium": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f59e0b")),
		"low":    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#dc2626")),
	}
)

// maxTerminalUncovered caps the uncovered elements listed in the summary.
const maxTerminalUncovered = 5

// Summary renders a compact boxed summary for the terminal.
func Summary(r *coverage.CoverageReport) string {
	s := r.Summary
	pct := s.CoveragePercentage

	var b strings.Builder
	b.WriteString(titleStyle.Render("UI coverage"))
	b.WriteString("  ")
	b.WriteString(levelStyles[coverageLevel(pct)].Render(fmt.Sprintf("%d%%", pct)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d/%d elements  %d/%d interactive  %d/%d critical\n",
		s.CoveredElements, s.TotalElements,
		s.CoveredInteractive, s.InteractiveElements,
		s.CoveredCritical, s.CriticalElements)
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d pages, %d tests, %d interactions", s.TotalPages, s.TotalTests, s.TotalInteractions)))

	for i, u := range r.Uncovered {
		if i == maxTerminalUncovered {
			fmt.Fprintf(&b, "\n%s", mutedStyle.Render(fmt.Sprintf("... %d more uncovered", len(r.Uncovered)-i)))
			break
		}
		fmt.Fprintf(&b, "\n  [%d] %s %s on %s", u.Priority, u.Element.Type, u.Element.Label(), u.PageID)
	}

	return panelStyle.Render(b.String())
}
