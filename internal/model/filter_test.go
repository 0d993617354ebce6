package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTasks() []*Task {
	now := time.Now()
	return []*Task{
		{ID: "1", Title: "Buy milk", Description: "from the corner shop", Priority: PriorityHigh, Status: StatusPending, CreatedAt: now},
		{ID: "2", Title: "Groceries", Description: "buy eggs", Priority: PriorityLow, Status: StatusCompleted, CreatedAt: now.Add(-time.Minute)},
		{ID: "3", Title: "Clean", Description: "the kitchen", Priority: PriorityMedium, Status: StatusPending, CreatedAt: now.Add(-2 * time.Minute)},
	}
}

func ids(tasks []*Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{name: "no criteria", criteria: Criteria{}, want: []string{"1", "2", "3"}},
		{name: "all sentinel", criteria: Criteria{Priority: "all", Status: "all"}, want: []string{"1", "2", "3"}},
		{name: "search either field case insensitive", criteria: Criteria{Search: "BUY"}, want: []string{"1", "2"}},
		{name: "search trimmed", criteria: Criteria{Search: "  kitchen "}, want: []string{"3"}},
		{name: "priority", criteria: Criteria{Priority: "high"}, want: []string{"1"}},
		{name: "status", criteria: Criteria{Status: "pending"}, want: []string{"1", "3"}},
		{name: "search and status", criteria: Criteria{Search: "buy", Status: "completed"}, want: []string{"2"}},
		{name: "no match", criteria: Criteria{Search: "nothing"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(sampleTasks(), tt.criteria)))
		})
	}
}

func TestApplyNilInput(t *testing.T) {
	got := Apply(nil, Criteria{Search: "x"})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCriteriaNormalize(t *testing.T) {
	c, err := Criteria{Priority: " ALL ", Status: "Completed", Search: " milk "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, Criteria{Status: "completed", Search: "milk"}, c)

	_, err = Criteria{Priority: "urgent"}.Normalize()
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = Criteria{Status: "archived"}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCriteriaEmpty(t *testing.T) {
	assert.True(t, Criteria{}.Empty())
	assert.True(t, Criteria{Priority: "all", Status: "all", Search: "  "}.Empty())
	assert.False(t, Criteria{Search: "a"}.Empty())
}
