package repository

import (
	"testing"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/model"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOwnerFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria model.Criteria
		want     bson.D
	}{
		{
			name:     "owner only",
			criteria: model.Criteria{},
			want:     bson.D{{Key: "owner", Value: "alice"}},
		},
		{
			name:     "all sentinel is ignored",
			criteria: model.Criteria{Priority: "all", Status: "all"},
			want:     bson.D{{Key: "owner", Value: "alice"}},
		},
		{
			name:     "priority and status",
			criteria: model.Criteria{Priority: "high", Status: "pending"},
			want: bson.D{
				{Key: "owner", Value: "alice"},
				{Key: "priority", Value: "high"},
				{Key: "status", Value: "pending"},
			},
		},
		{
			name:     "search is escaped and case insensitive",
			criteria: model.Criteria{Search: "a+b"},
			want: bson.D{
				{Key: "owner", Value: "alice"},
				{Key: "$or", Value: bson.A{
					bson.D{{Key: "title", Value: primitive.Regex{Pattern: `a\+b`, Options: "i"}}},
					bson.D{{Key: "description", Value: primitive.Regex{Pattern: `a\+b`, Options: "i"}}},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ownerFilter("alice", tt.criteria))
		})
	}
}

func TestUpdateFields(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	due := at.Add(24 * time.Hour)

	tests := []struct {
		name string
		req  model.UpdateTaskRequest
		want bson.D
	}{
		{
			name: "title only leaves status alone",
			req:  model.UpdateTaskRequest{Title: ptr("  renamed ")},
			want: bson.D{
				{Key: "title", Value: "renamed"},
				{Key: "updated_at", Value: at},
			},
		},
		{
			name: "every field",
			req: model.UpdateTaskRequest{
				Title:       ptr("t"),
				Description: ptr("d"),
				Priority:    ptr(model.PriorityHigh),
				Status:      ptr(model.StatusCompleted),
				DueDate:     &due,
			},
			want: bson.D{
				{Key: "title", Value: "t"},
				{Key: "description", Value: "d"},
				{Key: "priority", Value: model.PriorityHigh},
				{Key: "status", Value: model.StatusCompleted},
				{Key: "due_date", Value: due},
				{Key: "updated_at", Value: at},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, updateFields(tt.req, at))
		})
	}
}
