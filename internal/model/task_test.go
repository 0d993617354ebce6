package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestCreateTaskRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateTaskRequest
		wantErr error
	}{
		{name: "valid", req: CreateTaskRequest{Title: "Write", Description: "report"}},
		{name: "valid with priority", req: CreateTaskRequest{Title: "Write", Description: "report", Priority: PriorityHigh}},
		{name: "blank title", req: CreateTaskRequest{Title: "   ", Description: "report"}, wantErr: ErrTitleRequired},
		{name: "blank description", req: CreateTaskRequest{Title: "Write", Description: "\t"}, wantErr: ErrDescriptionRequired},
		{name: "long title", req: CreateTaskRequest{Title: strings.Repeat("a", 101), Description: "d"}, wantErr: ErrTitleTooLong},
		{name: "long description", req: CreateTaskRequest{Title: "t", Description: strings.Repeat("d", 1001)}, wantErr: ErrDescriptionTooLong},
		{name: "bad priority", req: CreateTaskRequest{Title: "t", Description: "d", Priority: "urgent"}, wantErr: ErrInvalidPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantErr, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestUpdateTaskRequest(t *testing.T) {
	assert.NoError(t, (&UpdateTaskRequest{}).Validate())
	assert.Equal(t, ErrTitleRequired, (&UpdateTaskRequest{Title: ptr(" ")}).Validate())
	assert.Equal(t, ErrInvalidStatus, (&UpdateTaskRequest{Status: ptr(Status("done"))}).Validate())
	assert.Equal(t, ErrInvalidPriority, (&UpdateTaskRequest{Priority: ptr(Priority("none"))}).Validate())

	task := &Task{Title: "old", Description: "keep", Priority: PriorityLow, Status: StatusPending}
	req := UpdateTaskRequest{Title: ptr("  new  "), Status: ptr(StatusCompleted)}
	req.ApplyTo(task)
	assert.Equal(t, "new", task.Title)
	assert.Equal(t, "keep", task.Description)
	assert.Equal(t, PriorityLow, task.Priority)
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestStatusToggled(t *testing.T) {
	assert.Equal(t, StatusCompleted, StatusPending.Toggled())
	assert.Equal(t, StatusPending, StatusCompleted.Toggled())
}

func TestTaskErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("find tasks", cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTaskNotFound)
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
	assert.Equal(t, "find tasks: connection refused", err.Error())
}
