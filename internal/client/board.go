package client

import (
	"context"

	"github.com/hiroki-koketsu/taskboard/internal/model"
)

// Board is a locally cached copy of the caller's tasks plus the current
// filter criteria. The visible list is recomputed from both on demand.
// A Board is not safe for concurrent use.
type Board struct {
	api      *Client
	tasks    []*model.Task
	criteria model.Criteria
}

// NewBoard creates an empty Board backed by api.
func NewBoard(api *Client) *Board {
	return &Board{api: api}
}

// Refresh replaces the cache with the server's unfiltered list. On failure
// the cache is cleared.
func (b *Board) Refresh(ctx context.Context) error {
	tasks, err := b.api.List(ctx, model.Criteria{})
	if err != nil {
		b.tasks = nil
		return err
	}
	b.tasks = tasks
	return nil
}

// SetCriteria replaces the active filter. Values are normalized when valid
// and kept as given otherwise.
func (b *Board) SetCriteria(c model.Criteria) {
	if n, err := c.Normalize(); err == nil {
		c = n
	}
	b.criteria = c
}

func (b *Board) Criteria() model.Criteria {
	return b.criteria
}

// ClearCriteria resets every filter to "all".
func (b *Board) ClearCriteria() {
	b.criteria = model.Criteria{}
}

// Tasks returns the whole cache.
func (b *Board) Tasks() []*model.Task {
	return b.tasks
}

// Visible returns the cached tasks matching the current criteria.
func (b *Board) Visible() []*model.Task {
	return model.Apply(b.tasks, b.criteria)
}

// Create adds a task on the server and puts it at the front of the cache.
func (b *Board) Create(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error) {
	task, err := b.api.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	b.tasks = append([]*model.Task{task}, b.tasks...)
	return task, nil
}

func (b *Board) Update(ctx context.Context, id string, req model.UpdateTaskRequest) (*model.Task, error) {
	task, err := b.api.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	b.replace(task)
	return task, nil
}

func (b *Board) Toggle(ctx context.Context, id string) (*model.Task, error) {
	task, err := b.api.Toggle(ctx, id)
	if err != nil {
		return nil, err
	}
	b.replace(task)
	return task, nil
}

// Delete removes the task on the server, then from a fresh copy of the cache.
func (b *Board) Delete(ctx context.Context, id string) error {
	if err := b.api.Delete(ctx, id); err != nil {
		return err
	}
	kept := make([]*model.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	b.tasks = kept
	return nil
}

func (b *Board) replace(task *model.Task) {
	for i, t := range b.tasks {
		if t.ID == task.ID {
			b.tasks[i] = task
			return
		}
	}
}
