package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type memoryEntry struct {
	task *model.Task
	seq  uint64
}

// MemoryStore provides an in-memory storage for tasks.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]memoryEntry
	seq   uint64
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]memoryEntry),
	}
}

// Find returns the owner's tasks matching c. Tasks with equal creation
// times are ordered by insertion, latest first.
func (s *MemoryStore) Find(ctx context.Context, owner string, c model.Criteria) ([]*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryStore.Find",
		trace.WithAttributes(attribute.String("task.owner", owner)),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]memoryEntry, 0)
	for _, e := range s.tasks {
		if e.task.Owner == owner && c.Match(e.task) {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	tasks := make([]*model.Task, 0, len(entries))
	for _, e := range entries {
		tasks = append(tasks, e.task.Clone())
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// FindByID retrieves a task by its ID.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryStore.FindByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tasks[id]
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return e.task.Clone(), nil
}

// Insert adds a new task to the store.
func (s *MemoryStore) Insert(ctx context.Context, task *model.Task) error {
	_, span := tracer.Start(ctx, "MemoryStore.Insert",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.tasks[task.ID] = memoryEntry{task: task.Clone(), seq: s.seq}
	return nil
}

// Update applies the supplied fields to an existing task.
func (s *MemoryStore) Update(ctx context.Context, id string, req model.UpdateTaskRequest, at time.Time) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryStore.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	updated := e.task.Clone()
	req.ApplyTo(updated)
	updated.UpdatedAt = at
	e.task = updated
	s.tasks[id] = e

	span.SetAttributes(attribute.Bool("task.found", true))
	return updated.Clone(), nil
}

// CompareAndSetStatus changes the status only if it still equals from.
func (s *MemoryStore) CompareAndSetStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryStore.CompareAndSetStatus",
		trace.WithAttributes(
			attribute.String("task.id", id),
			attribute.String("task.status.from", string(from)),
			attribute.String("task.status.to", string(to)),
		),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return nil, model.ErrTaskNotFound
	}
	if e.task.Status != from {
		span.SetAttributes(attribute.Bool("task.conflict", true))
		return nil, model.ErrConflict
	}

	updated := e.task.Clone()
	updated.Status = to
	updated.UpdatedAt = at
	e.task = updated
	s.tasks[id] = e
	return updated.Clone(), nil
}

// Delete removes a task from the store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "MemoryStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return model.ErrTaskNotFound
	}

	delete(s.tasks, id)
	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Count returns the current number of tasks.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tasks)), nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
