package domain

// Priority is a task's tier in the tracking document.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// AllPriorities lists the tiers in document order.
var AllPriorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Prefix returns the task ID prefix for the tier ("H", "M", "L").
func (p Priority) Prefix() string {
	switch p {
	case PriorityHigh:
		return "H"
	case PriorityMedium:
		return "M"
	case PriorityLow:
		return "L"
	default:
		return ""
	}
}

// PriorityForPrefix maps a task ID prefix letter to its tier.
func PriorityForPrefix(prefix byte) (Priority, bool) {
	switch prefix {
	case 'H':
		return PriorityHigh, true
	case 'M':
		return PriorityMedium, true
	case 'L':
		return PriorityLow, true
	default:
		return "", false
	}
}

// Status is a completion marker on a task or subtask.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusDone    Status = "done"
)

// ValidStatuses is the canonical set of accepted status strings.
var ValidStatuses = map[string]bool{
	string(StatusPending): true,
	string(StatusPartial): true,
	string(StatusDone):    true,
}

// Glyph returns the marker used in the tracking document.
func (s Status) Glyph() string {
	switch s {
	case StatusDone:
		return "✅"
	case StatusPartial:
		return "✓"
	default:
		return "❌"
	}
}

// StatusForGlyph maps a document marker to a Status.
func StatusForGlyph(glyph string) (Status, bool) {
	switch glyph {
	case "✅":
		return StatusDone, true
	case "✓":
		return StatusPartial, true
	case "❌":
		return StatusPending, true
	default:
		return "", false
	}
}
