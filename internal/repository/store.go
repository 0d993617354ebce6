package repository

import (
	"context"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/model"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/taskboard/internal/repository")

// Store persists tasks. Single-record operations address tasks by id only;
// ownership is checked by the caller before they run.
type Store interface {
	// Find returns the owner's tasks matching c, newest first.
	Find(ctx context.Context, owner string, c model.Criteria) ([]*model.Task, error)
	FindByID(ctx context.Context, id string) (*model.Task, error)
	Insert(ctx context.Context, task *model.Task) error
	// Update writes only the fields supplied in req and stamps updated_at.
	Update(ctx context.Context, id string, req model.UpdateTaskRequest, at time.Time) (*model.Task, error)
	// CompareAndSetStatus moves the task from status from to status to.
	// It fails with model.ErrConflict when the stored status is not from.
	CompareAndSetStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*model.Task, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}
