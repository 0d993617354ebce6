package model

import "strings"

// FilterAll disables filtering on a field.
const FilterAll = "all"

// Criteria are the optional list filters. Empty or "all" values match everything.
type Criteria struct {
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
}

// Normalize trims the criteria, folds the "all" sentinel to empty and rejects
// values outside the priority and status enumerations.
func (c Criteria) Normalize() (Criteria, error) {
	n := Criteria{
		Priority: strings.ToLower(strings.TrimSpace(c.Priority)),
		Status:   strings.ToLower(strings.TrimSpace(c.Status)),
		Search:   strings.TrimSpace(c.Search),
	}
	if n.Priority == FilterAll {
		n.Priority = ""
	}
	if n.Status == FilterAll {
		n.Status = ""
	}
	if n.Priority != "" && !Priority(n.Priority).Valid() {
		return Criteria{}, ErrInvalidPriority
	}
	if n.Status != "" && !Status(n.Status).Valid() {
		return Criteria{}, ErrInvalidStatus
	}
	return n, nil
}

// Empty reports whether c filters nothing.
func (c Criteria) Empty() bool {
	return active(c.Priority) == "" && active(c.Status) == "" && strings.TrimSpace(c.Search) == ""
}

// Match reports whether t satisfies every active criterion. Search is a
// case-insensitive substring test on the title or the description.
func (c Criteria) Match(t *Task) bool {
	if p := active(c.Priority); p != "" && string(t.Priority) != p {
		return false
	}
	if s := active(c.Status); s != "" && string(t.Status) != s {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(c.Search)); q != "" {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q)
	}
	return true
}

func active(v string) string {
	if v == FilterAll {
		return ""
	}
	return v
}

// Apply returns the tasks matching c, keeping their order. A nil input is
// treated as an empty list.
func Apply(tasks []*Task, c Criteria) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil && c.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
