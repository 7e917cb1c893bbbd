package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Task is one planned unit of engineering work in the tracking document.
type Task struct {
	ID       string // e.g. "H1", "M3", "L7"
	Title    string
	Priority Priority

	// Estimate is the planned effort range in hours. Zero values mean
	// the task carries no estimate.
	EstimateMinHours float64
	EstimateMaxHours float64

	// DependsOn lists task IDs that must complete first.
	DependsOn []string

	// CompletionPct is the explicit percentage from the document, or -1
	// when the document states none.
	CompletionPct int

	Status   Status
	Subtasks []Subtask
	Notes    []string
}

// Subtask is a checklist item nested under a task.
type Subtask struct {
	Title  string
	Status Status
}

var taskIDPattern = regexp.MustCompile(`^([HML])([1-9][0-9]*)$`)

// ParseTaskID splits a task ID into its tier and ordinal.
// Returns an error for anything that is not of the form H1, M12, L3.
func ParseTaskID(id string) (Priority, int, error) {
	m := taskIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, fmt.Errorf("malformed task ID %q", id)
	}
	prio, _ := PriorityForPrefix(m[1][0])
	n, _ := strconv.Atoi(m[2])
	return prio, n, nil
}

// HasEstimate reports whether the task carries an effort estimate.
func (t *Task) HasEstimate() bool {
	return t.EstimateMaxHours > 0
}

// EffortMid returns the midpoint of the estimate range in hours, or 0 when
// the task has no estimate.
func (t *Task) EffortMid() float64 {
	if !t.HasEstimate() {
		return 0
	}
	return (t.EstimateMinHours + t.EstimateMaxHours) / 2
}

// Completion returns the task's completion percentage. Precedence: the
// explicit document percentage, then the subtask checklist (a partial
// subtask counts half), then the bare status marker.
func (t *Task) Completion() int {
	if t.CompletionPct >= 0 {
		return t.CompletionPct
	}
	if len(t.Subtasks) > 0 {
		var done float64
		for _, s := range t.Subtasks {
			switch s.Status {
			case StatusDone:
				done++
			case StatusPartial:
				done += 0.5
			}
		}
		return int(done * 100 / float64(len(t.Subtasks)))
	}
	switch t.Status {
	case StatusDone:
		return 100
	case StatusPartial:
		return 50
	default:
		return 0
	}
}

// IsDone reports whether the task is fully complete.
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// DependsOnTask reports whether id appears in the dependency set.
func (t *Task) DependsOnTask(id string) bool {
	for _, d := range t.DependsOn {
		if d == id {
			return true
		}
	}
	return false
}

// EstimateLabel renders the estimate range as it appears in the document,
// e.g. "4-6h" or "3h" for a degenerate range. Empty without an estimate.
func (t *Task) EstimateLabel() string {
	if !t.HasEstimate() {
		return ""
	}
	if t.EstimateMinHours == t.EstimateMaxHours {
		return trimFloat(t.EstimateMaxHours) + "h"
	}
	return trimFloat(t.EstimateMinHours) + "-" + trimFloat(t.EstimateMaxHours) + "h"
}

func trimFloat(f float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(f, 'f', 1, 64), ".0")
}
