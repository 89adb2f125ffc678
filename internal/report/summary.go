// Package report renders finished runs for people: a console summary and a
// Markdown/HTML digest written next to the run logs.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// nouns holds the per-policy wording used by the summary.
type nouns struct {
	items  string // "Issues"
	action string // "Closed"
}

func nounsFor(kind model.PolicyKind) nouns {
	switch kind {
	case model.PolicyClosePRs:
		return nouns{items: "Pull Requests", action: "Closed"}
	case model.PolicyLockIssues:
		return nouns{items: "Issues", action: "Locked"}
	default:
		return nouns{items: "Issues", action: "Closed"}
	}
}

// WriteSummary prints the processed and acted counts, followed by the
// per-label breakdown when the run kept one. It prints regardless of whether
// the run was a dry run.
func WriteSummary(w io.Writer, r *model.RunResult) error {
	renderer := lipgloss.NewRenderer(w)
	heading := renderer.NewStyle().Bold(true)
	muted := renderer.NewStyle().Faint(true)
	count := renderer.NewStyle().Foreground(lipgloss.Color("10"))
	if r.Termination == model.RunFailed {
		count = count.Foreground(lipgloss.Color("9"))
	}

	n := nounsFor(r.Policy)
	mode := ""
	if r.DryRun {
		mode = ", dry run"
	}

	lines := []string{
		"",
		heading.Render(fmt.Sprintf("Run %s (%s%s) ended %s", r.ID, r.Policy, mode, r.Termination)),
		fmt.Sprintf("Processed %s: %s", n.items, count.Render(fmt.Sprint(r.Processed))),
		fmt.Sprintf("%s %s: %s", n.items, n.action, count.Render(fmt.Sprint(r.Acted))),
	}
	for _, label := range r.LabelsByName() {
		lines = append(lines, muted.Render(fmt.Sprintf("   %s: %d", label, r.ByLabel[label])))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}
