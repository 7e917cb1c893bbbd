package domain

import (
	"sort"
	"time"
)

// UpdateEntry is a dated note in the document's update log recording
// task-status changes over time.
type UpdateEntry struct {
	Date  time.Time
	Lines []string
	// TaskIDs lists tasks referenced in the entry, in order of first mention.
	TaskIDs []string
}

// TaskDocument is a fully parsed tasks.md tracking document.
type TaskDocument struct {
	Title      string
	SourcePath string
	Tasks      []*Task // document order
	Updates    []UpdateEntry
}

// TierProgress aggregates completion for one priority tier.
type TierProgress struct {
	Priority      Priority
	TaskCount     int
	DoneCount     int
	CompletionPct float64 // effort-weighted
	EstimatedMin  float64 // hours
	EstimatedMax  float64 // hours
}

// Progress is the document-wide completion summary.
type Progress struct {
	Tiers         []TierProgress
	TaskCount     int
	DoneCount     int
	CompletionPct float64
}

// unweightedEffort stands in for tasks without an estimate so they still
// count toward weighted completion.
const unweightedEffort = 1.0

// Get returns the task with the given ID, or nil.
func (d *TaskDocument) Get(id string) *Task {
	for _, t := range d.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// ByPriority returns the document's tasks in the given tier, document order.
func (d *TaskDocument) ByPriority(p Priority) []*Task {
	var out []*Task
	for _, t := range d.Tasks {
		if t.Priority == p {
			out = append(out, t)
		}
	}
	return out
}

// Progress computes per-tier and overall effort-weighted completion.
func (d *TaskDocument) Progress() Progress {
	var prog Progress
	var totalWeight, totalWeighted float64

	for _, prio := range AllPriorities {
		tasks := d.ByPriority(prio)
		if len(tasks) == 0 {
			continue
		}
		tier := TierProgress{Priority: prio, TaskCount: len(tasks)}
		var weight, weighted float64
		for _, t := range tasks {
			if t.IsDone() {
				tier.DoneCount++
			}
			tier.EstimatedMin += t.EstimateMinHours
			tier.EstimatedMax += t.EstimateMaxHours

			w := t.EffortMid()
			if w == 0 {
				w = unweightedEffort
			}
			weight += w
			weighted += w * float64(t.Completion()) / 100
		}
		if weight > 0 {
			tier.CompletionPct = weighted * 100 / weight
		}
		prog.Tiers = append(prog.Tiers, tier)
		prog.TaskCount += tier.TaskCount
		prog.DoneCount += tier.DoneCount
		totalWeight += weight
		totalWeighted += weighted
	}
	if totalWeight > 0 {
		prog.CompletionPct = totalWeighted * 100 / totalWeight
	}
	return prog
}

// Blocked returns tasks that are not done and have at least one unfinished
// dependency, together with the blocking IDs.
func (d *TaskDocument) Blocked() map[string][]string {
	blocked := make(map[string][]string)
	for _, t := range d.Tasks {
		if t.IsDone() {
			continue
		}
		var blockers []string
		for _, dep := range t.DependsOn {
			if pre := d.Get(dep); pre != nil && !pre.IsDone() {
				blockers = append(blockers, dep)
			}
		}
		if len(blockers) > 0 {
			blocked[t.ID] = blockers
		}
	}
	return blocked
}

// SortIDs orders task IDs by tier (H before M before L) then ordinal.
// Unparseable IDs sort last, lexically.
func SortIDs(ids []string) {
	rank := func(p Priority) int {
		switch p {
		case PriorityHigh:
			return 0
		case PriorityMedium:
			return 1
		case PriorityLow:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		pi, ni, erri := ParseTaskID(ids[i])
		pj, nj, errj := ParseTaskID(ids[j])
		if erri != nil || errj != nil {
			if (erri == nil) != (errj == nil) {
				return erri == nil
			}
			return ids[i] < ids[j]
		}
		if rank(pi) != rank(pj) {
			return rank(pi) < rank(pj)
		}
		return ni < nj
	})
}
