package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newTask(id, owner, title string, createdAt time.Time) *model.Task {
	return &model.Task{
		ID:          id,
		Title:       title,
		Description: title + " details",
		Priority:    model.PriorityMedium,
		Status:      model.StatusPending,
		Owner:       owner,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestMemoryStoreFindScopesAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.Insert(ctx, newTask("a", "alice", "first", now)))
	require.NoError(t, s.Insert(ctx, newTask("b", "bob", "bob's", now)))
	require.NoError(t, s.Insert(ctx, newTask("c", "alice", "second", now.Add(time.Second))))
	// Same creation time as "a": insertion order breaks the tie.
	require.NoError(t, s.Insert(ctx, newTask("d", "alice", "third", now)))

	tasks, err := s.Find(ctx, "alice", model.Criteria{})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "c", tasks[0].ID)
	assert.Equal(t, "d", tasks[1].ID)
	assert.Equal(t, "a", tasks[2].ID)

	tasks, err = s.Find(ctx, "alice", model.Criteria{Search: "SEC"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "c", tasks[0].ID)

	tasks, err = s.Find(ctx, "carol", model.Criteria{})
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	task := newTask("a", "alice", "title", time.Now())
	require.NoError(t, s.Insert(ctx, task))

	task.Title = "mutated after insert"
	got, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "title", got.Title)

	got.Title = "mutated after read"
	again, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "title", again.Title)
}

func TestMemoryStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	at := time.Now().Add(time.Minute)
	_, err := s.Update(ctx, "missing", model.UpdateTaskRequest{Title: ptr("x")}, at)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)

	require.NoError(t, s.Insert(ctx, newTask("a", "alice", "title", time.Now())))
	_, err = s.CompareAndSetStatus(ctx, "a", model.StatusPending, model.StatusCompleted, at)
	require.NoError(t, err)

	updated, err := s.Update(ctx, "a", model.UpdateTaskRequest{Title: ptr("  renamed ")}, at)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, model.StatusCompleted, updated.Status, "fields not in the request are kept")
	assert.True(t, updated.UpdatedAt.Equal(at))

	got, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, model.StatusCompleted, got.Status)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), model.ErrTaskNotFound)
	_, err = s.FindByID(ctx, "a")
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}

func TestMemoryStoreCompareAndSetStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Insert(ctx, newTask("a", "alice", "title", time.Now())))

	at := time.Now().Add(time.Minute)
	got, err := s.CompareAndSetStatus(ctx, "a", model.StatusPending, model.StatusCompleted, at)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.True(t, got.UpdatedAt.Equal(at))

	_, err = s.CompareAndSetStatus(ctx, "a", model.StatusPending, model.StatusCompleted, at)
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = s.CompareAndSetStatus(ctx, "missing", model.StatusPending, model.StatusCompleted, at)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}
