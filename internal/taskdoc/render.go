package taskdoc

import (
	"fmt"
	"io"
	"strings"

	"github.com/klix-code/klix/internal/domain"
)

// tierHeadings are the canonical section titles used when rendering.
var tierHeadings = map[domain.Priority]string{
	domain.PriorityHigh:   "High Priority Tasks",
	domain.PriorityMedium: "Medium Priority Tasks",
	domain.PriorityLow:    "Low Priority Tasks",
}

// WriteMarkdown regenerates the document in canonical form. Parsing the
// output yields an equivalent document.
func WriteMarkdown(doc *domain.TaskDocument, w io.Writer) error {
	var b strings.Builder

	title := doc.Title
	if title == "" {
		title = "Planned Tasks"
	}
	fmt.Fprintf(&b, "# %s\n", title)

	for _, prio := range domain.AllPriorities {
		tasks := doc.ByPriority(prio)
		if len(tasks) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", tierHeadings[prio])
		for _, t := range tasks {
			writeTask(&b, t)
		}
	}

	if len(doc.Updates) > 0 {
		b.WriteString("\n## Update Log\n")
		for _, u := range doc.Updates {
			fmt.Fprintf(&b, "\n### %s\n", u.Date.Format(dateLayout))
			for _, line := range u.Lines {
				fmt.Fprintf(&b, "%s\n", line)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTask(b *strings.Builder, t *domain.Task) {
	fmt.Fprintf(b, "\n### %s: %s\n", t.ID, t.Title)
	if t.HasEstimate() {
		fmt.Fprintf(b, "**Estimate:** %s\n", t.EstimateLabel())
	}
	if len(t.DependsOn) > 0 {
		fmt.Fprintf(b, "**Depends on:** %s\n", strings.Join(t.DependsOn, ", "))
	}
	fmt.Fprintf(b, "**Status:** %s %s", t.Status.Glyph(), statusLabel(t.Status))
	if t.CompletionPct >= 0 {
		fmt.Fprintf(b, " (%d%%)", t.CompletionPct)
	}
	b.WriteByte('\n')
	for _, s := range t.Subtasks {
		fmt.Fprintf(b, "- [%s] %s\n", checkboxMarker(s.Status), s.Title)
	}
	for _, note := range t.Notes {
		fmt.Fprintf(b, "%s\n", note)
	}
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusDone:
		return "Done"
	case domain.StatusPartial:
		return "In progress"
	default:
		return "Not started"
	}
}

func checkboxMarker(s domain.Status) string {
	switch s {
	case domain.StatusDone:
		return "x"
	case domain.StatusPartial:
		return "~"
	default:
		return " "
	}
}
