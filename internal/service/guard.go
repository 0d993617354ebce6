package service

import (
	"context"

	"github.com/hiroki-koketsu/taskboard/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// scope returns the owner every list query is restricted to.
func (s *TaskService) scope(p model.Principal) (string, error) {
	if p.ID == "" {
		return "", model.ErrUnauthenticated
	}
	return p.ID, nil
}

// authorize loads the task and checks that p owns it. Every single-record
// operation goes through here before touching the store.
func (s *TaskService) authorize(ctx context.Context, p model.Principal, id string) (*model.Task, error) {
	owner, err := s.scope(p)
	if err != nil {
		return nil, err
	}

	task, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.Owner != owner {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("task.forbidden", true))
		return nil, model.ErrForbidden
	}
	return task, nil
}
