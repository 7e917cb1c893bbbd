package taskdoc

import (
	"fmt"

	"github.com/klix-code/klix/internal/domain"
)

// Validate checks a parsed document for consistency problems.
// Returns all findings: per-task checks in document order, then
// graph-level checks.
func Validate(doc *domain.TaskDocument) []error {
	var errs []error

	seen := make(map[string]bool)
	for _, t := range doc.Tasks {
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("task %s: duplicate ID", t.ID))
			continue
		}
		seen[t.ID] = true

		prio, _, err := domain.ParseTaskID(t.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", t.ID, err))
			continue
		}
		if prio != t.Priority {
			errs = append(errs, fmt.Errorf("task %s: ID prefix implies %s priority but task is in the %s section", t.ID, prio, t.Priority))
		}
		if t.CompletionPct > 100 {
			errs = append(errs, fmt.Errorf("task %s: completion %d%% out of range", t.ID, t.CompletionPct))
		}
		if t.EstimateMinHours > t.EstimateMaxHours {
			errs = append(errs, fmt.Errorf("task %s: estimate range %s inverted", t.ID, t.EstimateLabel()))
		}
		if t.Status == domain.StatusDone {
			for _, s := range t.Subtasks {
				if s.Status != domain.StatusDone {
					errs = append(errs, fmt.Errorf("task %s: marked done but subtask %q is not", t.ID, s.Title))
				}
			}
		}
	}

	for _, t := range doc.Tasks {
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				errs = append(errs, fmt.Errorf("task %s: depends on itself", t.ID))
				continue
			}
			if doc.Get(dep) == nil {
				errs = append(errs, fmt.Errorf("task %s: unknown dependency %s", t.ID, dep))
			}
		}
	}

	if cycle := findCycle(doc); len(cycle) > 0 {
		errs = append(errs, fmt.Errorf("dependency cycle: %v", cycle))
	}

	return errs
}

// DependencyOrder returns task IDs in an order where every dependency
// precedes its dependents. Ties break by tier then ordinal, so the order
// is deterministic. Fails if the graph has a cycle.
func DependencyOrder(doc *domain.TaskDocument) ([]string, error) {
	if cycle := findCycle(doc); len(cycle) > 0 {
		return nil, fmt.Errorf("dependency cycle: %v", cycle)
	}

	indegree := make(map[string]int, len(doc.Tasks))
	dependents := make(map[string][]string)
	for _, t := range doc.Tasks {
		indegree[t.ID] += 0
		for _, dep := range t.DependsOn {
			if doc.Get(dep) == nil {
				continue // dangling refs reported by Validate
			}
			indegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	domain.SortIDs(ready)

	order := make([]string, 0, len(doc.Tasks))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for _, succ := range dependents[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				unlocked = append(unlocked, succ)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			domain.SortIDs(ready)
		}
	}
	return order, nil
}

// findCycle runs a three-color DFS over the dependency graph and returns
// the members of the first cycle found, in traversal order.
func findCycle(doc *domain.TaskDocument) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(doc.Tasks))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		t := doc.Get(id)
		for _, dep := range t.DependsOn {
			if doc.Get(dep) == nil {
				continue
			}
			switch color[dep] {
			case gray:
				// Slice the stack from the first occurrence of dep.
				for i, s := range stack {
					if s == dep {
						cycle = append([]string{}, stack[i:]...)
						break
					}
				}
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	ids := make([]string, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		ids = append(ids, t.ID)
	}
	domain.SortIDs(ids)
	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}
