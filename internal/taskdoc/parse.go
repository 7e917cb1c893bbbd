// Package taskdoc parses, validates, and renders the tasks.md tracking
// document format: priority-tier sections, task headings with estimate,
// dependency and status metadata, subtask checklists, and a dated update log.
package taskdoc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/klix-code/klix/internal/domain"
)

const dateLayout = "2006-01-02"

var (
	taskHeadingPattern = regexp.MustCompile(`^###\s+([A-Za-z0-9]+):\s*(.+?)\s*$`)
	estimatePattern    = regexp.MustCompile(`(?i)^\*\*Estimate:?\*\*:?\s*(.+)$`)
	dependsPattern     = regexp.MustCompile(`(?i)^\*\*Depends\s+on:?\*\*:?\s*(.+)$`)
	statusPattern      = regexp.MustCompile(`(?i)^\*\*Status:?\*\*:?\s*(.+)$`)
	subtaskPattern     = regexp.MustCompile(`^[-*]\s+\[([ xX~])\]\s*(.+?)\s*$`)
	rangePattern       = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:[-–—]\s*(\d+(?:\.\d+)?))?\s*h(?:ours?)?$`)
	percentPattern     = regexp.MustCompile(`\((\d{1,3})%\)`)
	taskRefPattern     = regexp.MustCompile(`\b[HML][1-9][0-9]*\b`)
	updateDatePattern  = regexp.MustCompile(`^###\s+(\d{4}-\d{2}-\d{2})\s*$`)
)

// section tracks which part of the document the line cursor is in.
type section int

const (
	sectionNone section = iota
	sectionTier
	sectionUpdates
)

// ParseFile parses the tracking document at path.
func ParseFile(path string) (*domain.TaskDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tasks file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if doc != nil {
		doc.SourcePath = path
	}
	return doc, err
}

// Parse reads a tracking document. Parsing is line-oriented and tolerant:
// unknown lines attach to the current task (or update entry) as notes.
// Structural problems are collected and returned joined; the document is
// still returned with everything that could be read.
func Parse(r io.Reader) (*domain.TaskDocument, error) {
	doc := &domain.TaskDocument{}
	var errs []error

	sec := sectionNone
	var tier domain.Priority
	var cur *domain.Task
	var curUpdate *domain.UpdateEntry

	flushUpdate := func() {
		if curUpdate != nil {
			doc.Updates = append(doc.Updates, *curUpdate)
			curUpdate = nil
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "# ") && doc.Title == "":
			doc.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))

		case strings.HasPrefix(trimmed, "## "):
			heading := strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			cur = nil
			flushUpdate()
			if p, ok := tierForHeading(heading); ok {
				sec, tier = sectionTier, p
			} else if isUpdateHeading(heading) {
				sec = sectionUpdates
			} else {
				sec = sectionNone
			}

		case sec == sectionUpdates:
			if m := updateDatePattern.FindStringSubmatch(trimmed); m != nil {
				flushUpdate()
				date, err := time.Parse(dateLayout, m[1])
				if err != nil {
					errs = append(errs, fmt.Errorf("line %d: invalid update date %q", lineNo, m[1]))
					continue
				}
				curUpdate = &domain.UpdateEntry{Date: date}
				continue
			}
			if curUpdate != nil && trimmed != "" {
				curUpdate.Lines = append(curUpdate.Lines, trimmed)
				for _, ref := range taskRefPattern.FindAllString(trimmed, -1) {
					if !contains(curUpdate.TaskIDs, ref) {
						curUpdate.TaskIDs = append(curUpdate.TaskIDs, ref)
					}
				}
			}

		case taskHeadingPattern.MatchString(trimmed):
			m := taskHeadingPattern.FindStringSubmatch(trimmed)
			if sec != sectionTier {
				errs = append(errs, fmt.Errorf("line %d: task %q outside a priority section", lineNo, m[1]))
				cur = nil
				continue
			}
			if _, _, err := domain.ParseTaskID(m[1]); err != nil {
				errs = append(errs, fmt.Errorf("line %d: %w", lineNo, err))
				cur = nil
				continue
			}
			cur = &domain.Task{
				ID:            m[1],
				Title:         m[2],
				Priority:      tier,
				Status:        domain.StatusPending,
				CompletionPct: -1,
			}
			doc.Tasks = append(doc.Tasks, cur)

		case cur != nil:
			parseTaskLine(cur, trimmed)
		}
	}
	flushUpdate()

	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("reading document: %w", err))
	}
	return doc, errors.Join(errs...)
}

// parseTaskLine applies one body line to the current task.
func parseTaskLine(t *domain.Task, line string) {
	if line == "" {
		return
	}
	if m := subtaskPattern.FindStringSubmatch(line); m != nil {
		t.Subtasks = append(t.Subtasks, domain.Subtask{
			Title:  m[2],
			Status: subtaskStatus(m[1]),
		})
		return
	}
	if m := estimatePattern.FindStringSubmatch(line); m != nil {
		if min, max, ok := parseEstimate(m[1]); ok {
			t.EstimateMinHours, t.EstimateMaxHours = min, max
		} else {
			t.Notes = append(t.Notes, line)
		}
		return
	}
	if m := dependsPattern.FindStringSubmatch(line); m != nil {
		for _, ref := range strings.Split(m[1], ",") {
			ref = strings.TrimSpace(ref)
			if ref != "" && !contains(t.DependsOn, ref) {
				t.DependsOn = append(t.DependsOn, ref)
			}
		}
		return
	}
	if m := statusPattern.FindStringSubmatch(line); m != nil {
		applyStatus(t, m[1])
		return
	}
	t.Notes = append(t.Notes, line)
}

func applyStatus(t *domain.Task, raw string) {
	for _, glyph := range []string{"✅", "✓", "❌"} {
		if strings.Contains(raw, glyph) {
			s, _ := domain.StatusForGlyph(glyph)
			t.Status = s
			break
		}
	}
	if m := percentPattern.FindStringSubmatch(raw); m != nil {
		if pct, err := strconv.Atoi(m[1]); err == nil {
			t.CompletionPct = pct
		}
	}
}

// parseEstimate reads forms like "4-6h", "3h", "1.5-2 hours".
func parseEstimate(raw string) (min, max float64, ok bool) {
	m := rangePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(raw)))
	if m == nil {
		return 0, 0, false
	}
	min, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	if m[2] == "" {
		return min, min, true
	}
	max, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return min, max, true
}

func subtaskStatus(marker string) domain.Status {
	switch marker {
	case "x", "X":
		return domain.StatusDone
	case "~":
		return domain.StatusPartial
	default:
		return domain.StatusPending
	}
}

func tierForHeading(heading string) (domain.Priority, bool) {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "high"):
		return domain.PriorityHigh, true
	case strings.Contains(h, "medium"):
		return domain.PriorityMedium, true
	case strings.Contains(h, "low"):
		return domain.PriorityLow, true
	default:
		return "", false
	}
}

func isUpdateHeading(heading string) bool {
	h := strings.ToLower(heading)
	return strings.Contains(h, "update") || strings.Contains(h, "changelog")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
