package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hiroki-koketsu/taskboard/internal/model"
	"github.com/hiroki-koketsu/taskboard/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/taskboard/internal/service")

const maxToggleAttempts = 3

// TaskService implements the task lifecycle on top of a Store.
type TaskService struct {
	store repository.Store
	now   func() time.Time
	newID func() string
}

// NewTaskService creates a new TaskService.
func NewTaskService(store repository.Store) *TaskService {
	return &TaskService{
		store: store,
		now:   time.Now,
		newID: newTaskID,
	}
}

// newTaskID returns a UUIDv7, so ids sort by creation time when timestamps tie.
func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Create validates the request and stores a new pending task owned by p.
func (s *TaskService) Create(ctx context.Context, p model.Principal, req model.CreateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Create")
	defer span.End()

	owner, err := s.scope(p)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	now := s.now()
	task := &model.Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Priority:    priority,
		Status:      model.StatusPending,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.DueDate != nil {
		due := *req.DueDate
		task.DueDate = &due
	}

	if err := s.store.Insert(ctx, task); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	return task, nil
}

// Get returns a single task owned by p.
func (s *TaskService) Get(ctx context.Context, p model.Principal, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Get",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	return s.authorize(ctx, p, id)
}

// List returns p's tasks matching c, newest first. The owner is never taken
// from the criteria.
func (s *TaskService) List(ctx context.Context, p model.Principal, c model.Criteria) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.List")
	defer span.End()

	owner, err := s.scope(p)
	if err != nil {
		return nil, err
	}
	c, err = c.Normalize()
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("filter.priority", c.Priority),
		attribute.String("filter.status", c.Status),
		attribute.Bool("filter.search", c.Search != ""),
	)

	tasks, err := s.store.Find(ctx, owner, c)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Update applies the supplied fields to a task owned by p. Fields left nil
// are not written, so a concurrent toggle is never overwritten.
func (s *TaskService) Update(ctx context.Context, p model.Principal, id string, req model.UpdateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := s.authorize(ctx, p, id); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.store.Update(ctx, id, req, s.now())
}

// Delete permanently removes a task owned by p.
func (s *TaskService) Delete(ctx context.Context, p model.Principal, id string) error {
	ctx, span := tracer.Start(ctx, "TaskService.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := s.authorize(ctx, p, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Toggle flips a task between pending and completed. The write only lands if
// the status is still the one that was read; a lost race is retried so each
// call flips the task exactly once.
func (s *TaskService) Toggle(ctx context.Context, p model.Principal, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Toggle",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	for attempt := 1; attempt <= maxToggleAttempts; attempt++ {
		task, err := s.authorize(ctx, p, id)
		if err != nil {
			return nil, err
		}

		updated, err := s.store.CompareAndSetStatus(ctx, id, task.Status, task.Status.Toggled(), s.now())
		if err == nil {
			span.SetAttributes(attribute.Int("toggle.attempts", attempt))
			return updated, nil
		}
		if !errors.Is(err, model.ErrConflict) {
			return nil, err
		}
	}

	return nil, model.ErrConflict
}

// Ping reports whether the store is reachable.
func (s *TaskService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Count returns the number of stored tasks across all owners.
func (s *TaskService) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
