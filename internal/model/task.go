package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// ParseStatus accepts only the three known status values.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q (want todo, in-progress or done)", s)
}

type Task struct {
	ID          int64     `json:"id" yaml:"id" toml:"id"`
	Description string    `json:"description" yaml:"description" toml:"description"`
	Status      Status    `json:"status" yaml:"status" toml:"status"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt" toml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt" toml:"updatedAt"`
}

// localLayout is ISO 8601 without an offset, as written by Python's
// datetime.isoformat().
const localLayout = "2006-01-02T15:04:05.999999999"

// ParseTimestamp accepts RFC 3339 and offset-less ISO 8601, the latter
// read in local time. The result is always UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(localLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: want ISO 8601", s)
	}
	return t.UTC(), nil
}

// taskRecord is the on-disk shape with timestamps left as text.
type taskRecord struct {
	ID          int64  `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Status      Status `json:"status" yaml:"status"`
	CreatedAt   string `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   string `json:"updatedAt" yaml:"updatedAt"`
}

func (r taskRecord) task() (Task, error) {
	t := Task{ID: r.ID, Description: r.Description, Status: r.Status}
	var err error
	// Missing timestamps stay zero and are rejected by collection checks.
	if r.CreatedAt != "" {
		if t.CreatedAt, err = ParseTimestamp(r.CreatedAt); err != nil {
			return Task{}, fmt.Errorf("task %d createdAt: %w", r.ID, err)
		}
	}
	if r.UpdatedAt != "" {
		if t.UpdatedAt, err = ParseTimestamp(r.UpdatedAt); err != nil {
			return Task{}, fmt.Errorf("task %d updatedAt: %w", r.ID, err)
		}
	}
	return t, nil
}

func (t *Task) UnmarshalJSON(b []byte) error {
	var r taskRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	parsed, err := r.task()
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t *Task) UnmarshalYAML(node *yaml.Node) error {
	var r taskRecord
	if err := node.Decode(&r); err != nil {
		return err
	}
	parsed, err := r.task()
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TaskFilter narrows List results. A nil Status matches every task.
type TaskFilter struct {
	Status *Status
}

func (f TaskFilter) Match(t Task) bool {
	return f.Status == nil || t.Status == *f.Status
}
