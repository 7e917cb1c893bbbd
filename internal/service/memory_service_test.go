package service

import (
	"context"
	"testing"
	"time"

	"github.com/klix-code/klix/internal/domain"
	"github.com/klix-code/klix/internal/kerrors"
	"github.com/klix-code/klix/internal/repository"
	"github.com/klix-code/klix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryService(t *testing.T) MemoryService {
	t.Helper()
	database := testutil.NewTestDB(t)
	return NewMemoryService(repository.NewSQLiteMemoryRepo(database))
}

func TestRemember(t *testing.T) {
	svc := newMemoryService(t)

	entry, err := svc.Remember(context.Background(), "prefers tabs over spaces", []string{"style"}, domain.MemorySourceUser)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "prefers tabs over spaces", entry.Content)
	assert.True(t, entry.HasTag("style"))
	assert.Equal(t, domain.MemorySourceUser, entry.Source)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRemember_DefaultsSource(t *testing.T) {
	svc := newMemoryService(t)

	entry, err := svc.Remember(context.Background(), "something", nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.MemorySourceUser, entry.Source)
}

func TestRemember_EmptyContent(t *testing.T) {
	svc := newMemoryService(t)

	_, err := svc.Remember(context.Background(), "   ", nil, domain.MemorySourceAgent)
	assert.ErrorIs(t, err, kerrors.ErrMemoryStorage)
}

func TestRecall(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	_, err := svc.Remember(ctx, "the build uses make, not mage", []string{"build"}, domain.MemorySourceAgent)
	require.NoError(t, err)
	_, err = svc.Remember(ctx, "deploys happen on fridays", []string{"process"}, domain.MemorySourceUser)
	require.NoError(t, err)

	entries, err := svc.Recall(ctx, "build", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Content, "make")
}

func TestRecall_Limit(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Remember(ctx, "note about testing", nil, domain.MemorySourceAgent)
		require.NoError(t, err)
	}

	entries, err := svc.Recall(ctx, "testing", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestForget(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	entry, err := svc.Remember(ctx, "temporary note", nil, domain.MemorySourceUser)
	require.NoError(t, err)

	require.NoError(t, svc.Forget(ctx, entry.ID))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, svc.Forget(ctx, entry.ID), repository.ErrNotFound)
}

func TestPrune(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteMemoryRepo(database)
	svc := NewMemoryService(repo).(*memoryService)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Now().Add(-40 * 24 * time.Hour) }
	_, err := svc.Remember(ctx, "ancient fact", nil, domain.MemorySourceAgent)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Remember(ctx, "recent fact", nil, domain.MemorySourceAgent)
	require.NoError(t, err)

	removed, err := svc.Prune(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "recent fact", list[0].Content)
}
