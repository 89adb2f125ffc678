package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// Markdown renders a run as a GitHub-flavoured Markdown digest.
func Markdown(r *model.RunResult) string {
	n := nounsFor(r.Policy)
	var b strings.Builder

	fmt.Fprintf(&b, "# triagebot run %s\n\n", r.ID)
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Policy | %s |\n", r.Policy)
	fmt.Fprintf(&b, "| Dry run | %t |\n", r.DryRun)
	fmt.Fprintf(&b, "| Started | %s |\n", formatTime(r.StartedAt))
	fmt.Fprintf(&b, "| Finished | %s |\n", formatTime(r.FinishedAt))
	fmt.Fprintf(&b, "| Ended | %s |\n", r.Termination)
	fmt.Fprintf(&b, "| Processed %s | %d |\n", n.items, r.Processed)
	fmt.Fprintf(&b, "| %s %s | %d |\n", n.items, n.action, r.Acted)
	if r.Error != "" {
		fmt.Fprintf(&b, "| Error | %s |\n", escapeCell(r.Error))
	}

	if labels := r.LabelsByName(); len(labels) > 0 {
		b.WriteString("\n## By label\n\n| Label | Count |\n|---|---|\n")
		for _, label := range labels {
			fmt.Fprintf(&b, "| %s | %d |\n", escapeCell(label), r.ByLabel[label])
		}
	}

	if len(r.ActedItems) > 0 {
		fmt.Fprintf(&b, "\n## %s %s\n\n", n.items, n.action)
		for _, item := range r.ActedItems {
			fmt.Fprintf(&b, "- [#%d](%s) %s\n", item.Number, item.URL, item.Title)
		}
	}

	if len(r.Comments) > 0 {
		b.WriteString("\n## Comments added\n\n")
		for _, c := range r.Comments {
			fmt.Fprintf(&b, "- [#%d](%s)\n", c.ItemNumber, c.URL)
		}
	}

	return b.String()
}

// HTML renders the Markdown digest to sanitized HTML.
func HTML(r *model.RunResult) string {
	src := Markdown(r)

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
