// Package task defines the task record model and its persistence.
package task

import (
	"fmt"
	"time"
)

// Date and time layouts used by task records on the wire and in storage.
const (
	DateLayout       = "2006-01-02"
	TimeLayout       = "15:04"
	TimeLayoutSecond = "15:04:05"
)

// Task is a user-owned to-do item with an optional due date and time.
// The reminder lifecycle manager only reads the identity, title, and
// temporal fields; everything else belongs to the task subsystem.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Date      string    `json:"date,omitempty"` // "2006-01-02"
	Time      string    `json:"time,omitempty"` // "15:04" or "15:04:05"
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDue reports whether the task carries both a date and a time.
func (t *Task) HasDue() bool {
	return t.Date != "" && t.Time != ""
}

// DueAt combines the task's date and time into an instant in local time.
func (t *Task) DueAt() (time.Time, error) {
	if !t.HasDue() {
		return time.Time{}, fmt.Errorf("task %s has no due date/time", t.ID)
	}
	combined := t.Date + " " + t.Time
	for _, layout := range []string{
		DateLayout + " " + TimeLayoutSecond,
		DateLayout + " " + TimeLayout,
	} {
		if due, err := time.ParseInLocation(layout, combined, time.Local); err == nil {
			return due, nil
		}
	}
	return time.Time{}, fmt.Errorf("task %s: unparsable due %q", t.ID, combined)
}

// Store persists and retrieves tasks.
type Store interface {
	// Create persists a new task and returns its assigned ID.
	Create(t *Task) (string, error)

	// Get retrieves a task by ID.
	Get(id string) (*Task, error)

	// Update saves changes to an existing task.
	Update(t *Task) error

	// List returns tasks matching the given filter.
	List(filter Filter) ([]*Task, error)

	// Delete removes a task by ID.
	Delete(id string) error
}

// Filter controls which tasks are returned by List.
type Filter struct {
	Done   *bool `json:"done,omitempty"`
	Limit  int   `json:"limit,omitempty"`
	Offset int   `json:"offset,omitempty"`
}
