package formatter

import (
	"fmt"
	"strings"

	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/service"
)

// RenderReport renders the full status report: per-tier progress bars,
// blocked tasks, and the ready queue.
func RenderReport(rep *service.Report) string {
	var b strings.Builder

	b.WriteString(Header("progress"))
	b.WriteString("\n")
	for _, tier := range rep.Progress.Tiers {
		label := PriorityStyle(tier.Priority).Render(fmt.Sprintf("%-6s", tier.Priority))
		fmt.Fprintf(&b, "%s %s  %d/%d done", label,
			RenderProgress(tier.CompletionPct/100, 20), tier.DoneCount, tier.TaskCount)
		if tier.EstimatedMax > 0 {
			fmt.Fprintf(&b, "  %s", Dim(estimateRange(tier.EstimatedMin, tier.EstimatedMax)))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %s  %d/%d done\n", Bold("total "),
		RenderProgress(rep.Progress.CompletionPct/100, 20),
		rep.Progress.DoneCount, rep.Progress.TaskCount)

	if len(rep.Blocked) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("blocked"))
		b.WriteString("\n")
		ids := make([]string, 0, len(rep.Blocked))
		for id := range rep.Blocked {
			ids = append(ids, id)
		}
		domain.SortIDs(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "%s waits on %s\n",
				StyleRed.Render(id), strings.Join(rep.Blocked[id], ", "))
		}
	}

	if len(rep.NextUp) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("next up"))
		b.WriteString("\n")
		for _, id := range rep.NextUp {
			fmt.Fprintf(&b, "%s\n", StyleGreen.Render(id))
		}
	}
	return b.String()
}

// RenderTaskTable renders tasks as an aligned table.
func RenderTaskTable(tasks []*domain.Task) string {
	if len(tasks) == 0 {
		return Dim("no tasks imported") + "\n"
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		deps := strings.Join(t.DependsOn, ", ")
		if deps == "" {
			deps = Dim("-")
		}
		est := t.EstimateLabel()
		if est == "" {
			est = Dim("-")
		}
		rows = append(rows, []string{
			PriorityStyle(t.Priority).Render(t.ID),
			t.Title,
			StatusLabel(t.Status),
			fmt.Sprintf("%3d%%", t.Completion()),
			est,
			deps,
		})
	}
	return RenderTable([]string{"ID", "Title", "Status", "Done", "Estimate", "Depends"}, rows)
}

// RenderTask renders one task in detail.
func RenderTask(t *domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", PriorityStyle(t.Priority).Render(t.ID+":"), Bold(t.Title))
	fmt.Fprintf(&b, "%s %s  %d%%\n", StatusLabel(t.Status), Dim("completion"), t.Completion())
	if est := t.EstimateLabel(); est != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("estimate"), est)
	}
	if len(t.DependsOn) > 0 {
		fmt.Fprintf(&b, "%s %s\n", Dim("depends on"), strings.Join(t.DependsOn, ", "))
	}
	for _, st := range t.Subtasks {
		marker := StatusStyle(st.Status).Render("[" + subtaskMark(st.Status) + "]")
		fmt.Fprintf(&b, "  %s %s\n", marker, st.Title)
	}
	for _, note := range t.Notes {
		fmt.Fprintf(&b, "  %s\n", Dim(note))
	}
	return b.String()
}

// RenderImportResult summarizes an import.
func RenderImportResult(res *service.ImportResult) string {
	return fmt.Sprintf("Imported %s: %d tasks, %d subtasks, %d dependencies, %d update entries\n",
		Bold(res.Title), res.TaskCount, res.SubtaskCount, res.DependencyCount, res.UpdateCount)
}

func subtaskMark(s domain.Status) string {
	switch s {
	case domain.StatusDone:
		return "x"
	case domain.StatusPartial:
		return "~"
	default:
		return " "
	}
}

func estimateRange(min, max float64) string {
	if min == max {
		return fmt.Sprintf("%.0fh", max)
	}
	return fmt.Sprintf("%.0f-%.0fh", min, max)
}
