package formatter

import (
	"fmt"
	"strings"

	"github.com/klix-code/klix/internal/domain"
)

// RenderMemories renders memory entries as a table, newest data first as
// provided by the caller.
func RenderMemories(entries []*domain.MemoryEntry) string {
	if len(entries) == 0 {
		return Dim("no memories stored") + "\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		tags := strings.Join(e.Tags, ", ")
		if tags == "" {
			tags = Dim("-")
		}
		rows = append(rows, []string{
			Dim(shortID(e.ID)),
			e.Content,
			tags,
			string(e.Source),
			e.CreatedAt.Format("2006-01-02"),
		})
	}
	return RenderTable([]string{"ID", "Content", "Tags", "Source", "Created"}, rows)
}

// RenderTraceSessions renders trace sessions as a table.
func RenderTraceSessions(sessions []*domain.TraceSession) string {
	if len(sessions) == 0 {
		return Dim("no trace sessions recorded") + "\n"
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		ended := Dim("running")
		if s.EndedAt != nil {
			ended = s.EndedAt.Format("15:04:05")
		}
		rows = append(rows, []string{
			s.ID,
			s.Provider,
			s.Model,
			s.StartedAt.Format("2006-01-02 15:04:05"),
			ended,
		})
	}
	return RenderTable([]string{"Session", "Provider", "Model", "Started", "Ended"}, rows)
}

// RenderTraceEvents renders the events of one session.
func RenderTraceEvents(events []*domain.TraceEvent) string {
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "%s %s\n", Dim(e.CreatedAt.Format("15:04:05")), Bold(string(e.Type)))
		for _, key := range []string{"content", "tool_name", "result", "error"} {
			if v, ok := e.Payload[key].(string); ok && v != "" {
				fmt.Fprintf(&b, "  %s %s\n", Dim(key+":"), truncate(v, 200))
			}
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
