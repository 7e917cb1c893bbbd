package repository

import (
	"context"
	"testing"

	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskTestSetup(t *testing.T) *SQLiteTaskRepo {
	t.Helper()
	return NewSQLiteTaskRepo(testutil.NewTestDB(t))
}

func TestTaskRepo_UpsertAndGetByID(t *testing.T) {
	repo := taskTestSetup(t)
	ctx := context.Background()

	task := testutil.NewTestTask("H1", "Fix context overflow",
		testutil.WithEstimate(4, 6),
		testutil.WithDeps("H2"),
		testutil.WithSubtasks(
			domain.Subtask{Title: "Add truncation", Status: domain.StatusDone},
			domain.Subtask{Title: "Add tests", Status: domain.StatusPending},
		),
		testutil.WithNotes("needs review"),
	)
	require.NoError(t, repo.Upsert(ctx, task, 0))

	fetched, err := repo.GetByID(ctx, "H1")
	require.NoError(t, err)
	assert.Equal(t, "Fix context overflow", fetched.Title)
	assert.Equal(t, domain.PriorityHigh, fetched.Priority)
	assert.Equal(t, 4.0, fetched.EstimateMinHours)
	assert.Equal(t, 6.0, fetched.EstimateMaxHours)
	assert.Equal(t, []string{"H2"}, fetched.DependsOn)
	assert.Equal(t, []string{"needs review"}, fetched.Notes)
	require.Len(t, fetched.Subtasks, 2)
	assert.Equal(t, domain.StatusDone, fetched.Subtasks[0].Status)
	assert.Equal(t, "Add tests", fetched.Subtasks[1].Title)
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	repo := taskTestSetup(t)

	_, err := repo.GetByID(context.Background(), "H99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepo_UpsertReplacesChildren(t *testing.T) {
	repo := taskTestSetup(t)
	ctx := context.Background()

	task := testutil.NewTestTask("M1", "Memory pruning",
		testutil.WithDeps("H1", "H2"),
		testutil.WithSubtasks(domain.Subtask{Title: "a", Status: domain.StatusPending}),
	)
	require.NoError(t, repo.Upsert(ctx, task, 0))

	task.DependsOn = []string{"H1"}
	task.Subtasks = []domain.Subtask{
		{Title: "b", Status: domain.StatusDone},
		{Title: "c", Status: domain.StatusPartial},
	}
	task.Title = "Memory pruning v2"
	require.NoError(t, repo.Upsert(ctx, task, 3))

	fetched, err := repo.GetByID(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, "Memory pruning v2", fetched.Title)
	assert.Equal(t, []string{"H1"}, fetched.DependsOn)
	require.Len(t, fetched.Subtasks, 2)
	assert.Equal(t, "b", fetched.Subtasks[0].Title)
}

func TestTaskRepo_ListPreservesDocumentOrder(t *testing.T) {
	repo := taskTestSetup(t)
	ctx := context.Background()

	// Insert out of order; position controls the listing.
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("L1", "Polish"), 2))
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("H1", "Core"), 0))
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("M1", "Middle"), 1))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "H1", list[0].ID)
	assert.Equal(t, "M1", list[1].ID)
	assert.Equal(t, "L1", list[2].ID)
}

func TestTaskRepo_ListByPriority(t *testing.T) {
	repo := taskTestSetup(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("H1", "a"), 0))
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("H2", "b"), 1))
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("L1", "c"), 2))

	high, err := repo.ListByPriority(ctx, domain.PriorityHigh)
	require.NoError(t, err)
	assert.Len(t, high, 2)

	low, err := repo.ListByPriority(ctx, domain.PriorityLow)
	require.NoError(t, err)
	assert.Len(t, low, 1)
}

func TestTaskRepo_UpdateStatus(t *testing.T) {
	repo := taskTestSetup(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("H1", "a"), 0))
	require.NoError(t, repo.UpdateStatus(ctx, "H1", domain.StatusDone, 100))

	fetched, err := repo.GetByID(ctx, "H1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, fetched.Status)
	assert.Equal(t, 100, fetched.CompletionPct)
}

func TestTaskRepo_UpdateStatus_NotFound(t *testing.T) {
	repo := taskTestSetup(t)

	err := repo.UpdateStatus(context.Background(), "H42", domain.StatusDone, 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepo_DeleteAll(t *testing.T) {
	repo := taskTestSetup(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("H1", "a"), 0))
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestTask("M1", "b"), 1))
	require.NoError(t, repo.DeleteAll(ctx))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
