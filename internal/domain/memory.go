package domain

import "time"

// MemorySource identifies who wrote a memory entry.
type MemorySource string

const (
	MemorySourceUser  MemorySource = "user"
	MemorySourceAgent MemorySource = "agent"
)

// MemoryEntry is a persisted fact or preference the assistant recalls
// across sessions.
type MemoryEntry struct {
	ID        string
	Content   string
	Tags      []string
	Source    MemorySource
	CreatedAt time.Time
}

// HasTag reports whether the entry carries the given tag.
func (m *MemoryEntry) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
