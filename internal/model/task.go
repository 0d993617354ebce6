package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is the completion state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Toggled returns the opposite status.
func (s Status) Toggled() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// Principal is the authenticated user on whose behalf a request runs.
type Principal struct {
	ID string
}

// Task represents a todo item owned by exactly one principal.
type Task struct {
	ID          string     `json:"id" bson:"_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description" bson:"description"`
	Priority    Priority   `json:"priority" bson:"priority"`
	Status      Status     `json:"status" bson:"status"`
	DueDate     *time.Time `json:"due_date,omitempty" bson:"due_date,omitempty"`
	Owner       string     `json:"owner" bson:"owner"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return &c
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Validate checks if the CreateTaskRequest is valid.
func (r *CreateTaskRequest) Validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// UpdateTaskRequest represents the request body for updating a task.
// Nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Validate checks every supplied field against the same rules as creation.
func (r *UpdateTaskRequest) Validate() error {
	if r.Title != nil {
		if err := validateTitle(*r.Title); err != nil {
			return err
		}
	}
	if r.Description != nil {
		if err := validateDescription(*r.Description); err != nil {
			return err
		}
	}
	if r.Priority != nil && !r.Priority.Valid() {
		return ErrInvalidPriority
	}
	if r.Status != nil && !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ApplyTo copies the supplied fields onto t. Text fields are stored trimmed.
func (r *UpdateTaskRequest) ApplyTo(t *Task) {
	if r.Title != nil {
		t.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		t.Description = strings.TrimSpace(*r.Description)
	}
	if r.Priority != nil {
		t.Priority = *r.Priority
	}
	if r.Status != nil {
		t.Status = *r.Status
	}
	if r.DueDate != nil {
		due := *r.DueDate
		t.DueDate = &due
	}
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func validateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrDescriptionRequired
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}
