package taskdoc

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klix-code/klix/internal/domain"
)

const sampleDocument = `# Klix Code — Planned Tasks

## High Priority Tasks

### H1: Custom exception hierarchy
**Estimate:** 2-3h
**Status:** ✅ Done (100%)
- [x] Base error type
- [x] Tool errors
- [x] LLM errors

### H2: Retry with exponential backoff
**Estimate:** 3-4h
**Depends on:** H1
**Status:** ✓ In progress (60%)
- [x] Backoff calculation
- [~] Jitter
- [ ] Network policy
Needs review of timeout handling.

## Medium Priority Tasks

### M1: Caching for project structure generation
**Estimate:** 4h
**Depends on:** H2
**Status:** ❌ Not started

## Low Priority Tasks

### L1: Plugin system
**Status:** ❌ Not started

## Update Log

### 2025-01-15
- Marked H1 done, started H2
- H2 jitter half-finished

### 2025-01-06
- Initial plan drafted
`

func TestParse_FullDocument(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "Klix Code — Planned Tasks", doc.Title)
	require.Len(t, doc.Tasks, 4)

	h1 := doc.Get("H1")
	require.NotNil(t, h1)
	assert.Equal(t, "Custom exception hierarchy", h1.Title)
	assert.Equal(t, domain.PriorityHigh, h1.Priority)
	assert.Equal(t, 2.0, h1.EstimateMinHours)
	assert.Equal(t, 3.0, h1.EstimateMaxHours)
	assert.Equal(t, domain.StatusDone, h1.Status)
	assert.Equal(t, 100, h1.CompletionPct)
	assert.Len(t, h1.Subtasks, 3)

	h2 := doc.Get("H2")
	require.NotNil(t, h2)
	assert.Equal(t, []string{"H1"}, h2.DependsOn)
	assert.Equal(t, domain.StatusPartial, h2.Status)
	assert.Equal(t, 60, h2.CompletionPct)
	require.Len(t, h2.Subtasks, 3)
	assert.Equal(t, domain.StatusDone, h2.Subtasks[0].Status)
	assert.Equal(t, domain.StatusPartial, h2.Subtasks[1].Status)
	assert.Equal(t, domain.StatusPending, h2.Subtasks[2].Status)
	assert.Equal(t, []string{"Needs review of timeout handling."}, h2.Notes)

	m1 := doc.Get("M1")
	require.NotNil(t, m1)
	assert.Equal(t, domain.PriorityMedium, m1.Priority)
	assert.Equal(t, 4.0, m1.EstimateMinHours)
	assert.Equal(t, 4.0, m1.EstimateMaxHours)
	assert.Equal(t, -1, m1.CompletionPct, "no explicit percentage")

	l1 := doc.Get("L1")
	require.NotNil(t, l1)
	assert.False(t, l1.HasEstimate())
}

func TestParse_UpdateLog(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	require.Len(t, doc.Updates, 2)
	first := doc.Updates[0]
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Len(t, first.Lines, 2)
	assert.Equal(t, []string{"H1", "H2"}, first.TaskIDs)
	assert.Empty(t, doc.Updates[1].TaskIDs)
}

func TestParse_TaskOutsideSection(t *testing.T) {
	doc, err := Parse(strings.NewReader("# T\n\n### H1: Orphan\n**Status:** ❌\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside a priority section")
	assert.Empty(t, doc.Tasks)
}

func TestParse_MalformedIDCollected(t *testing.T) {
	in := "# T\n\n## High Priority Tasks\n\n### H0: Bad\n\n### H1: Good\n**Status:** ✅ Done\n"
	doc, err := Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed task ID")
	require.Len(t, doc.Tasks, 1, "good task still parsed")
	assert.Equal(t, "H1", doc.Tasks[0].ID)
}

func TestParse_UnknownEstimateBecomesNote(t *testing.T) {
	in := "## High Priority Tasks\n\n### H1: X\n**Estimate:** soon\n"
	doc, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	h1 := doc.Get("H1")
	assert.False(t, h1.HasEstimate())
	assert.Equal(t, []string{"**Estimate:** soon"}, h1.Notes)
}

func TestParse_DuplicateDependencyDeduped(t *testing.T) {
	in := "## High Priority Tasks\n\n### H2: X\n**Depends on:** H1, H1, H3\n"
	doc, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"H1", "H3"}, doc.Get("H2").DependsOn)
}

func TestParse_InvalidUpdateDate(t *testing.T) {
	in := "## Update Log\n\n### 2025-13-99\n- nonsense\n"
	_, err := Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid update date")
}

func TestParse_EnDashEstimate(t *testing.T) {
	in := "## High Priority Tasks\n\n### H1: X\n**Estimate:** 4–6h\n"
	doc, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 4.0, doc.Get("H1").EstimateMinHours)
	assert.Equal(t, 6.0, doc.Get("H1").EstimateMaxHours)
}

func TestParse_EmptyInput(t *testing.T) {
	doc, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Tasks)
	assert.Empty(t, doc.Updates)
}

func TestParseEstimate(t *testing.T) {
	cases := []struct {
		in       string
		min, max float64
		ok       bool
	}{
		{"4-6h", 4, 6, true},
		{"3h", 3, 3, true},
		{"1.5-2h", 1.5, 2, true},
		{"2 hours", 2, 2, true},
		{"4 - 6 h", 4, 6, true},
		{"soon", 0, 0, false},
		{"h", 0, 0, false},
		{"-5h", 0, 0, false},
	}
	for _, tc := range cases {
		min, max, ok := parseEstimate(tc.in)
		assert.Equal(t, tc.ok, ok, "in=%q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.min, min, "in=%q", tc.in)
			assert.Equal(t, tc.max, max, "in=%q", tc.in)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, WriteMarkdown(doc, &out))

	doc2, err := Parse(strings.NewReader(out.String()))
	require.NoError(t, err)

	require.Len(t, doc2.Tasks, len(doc.Tasks))
	for i, want := range doc.Tasks {
		got := doc2.Tasks[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Priority, got.Priority)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.CompletionPct, got.CompletionPct)
		assert.Equal(t, want.DependsOn, got.DependsOn)
		assert.Equal(t, want.Subtasks, got.Subtasks)
	}
	require.Len(t, doc2.Updates, len(doc.Updates))
	assert.Equal(t, doc.Updates[0].Date, doc2.Updates[0].Date)
}
