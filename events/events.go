// Package events provides the in-process reminder event stream consumed by
// the HTTP event feed and the CLI.
package events

import "time"

// Type identifies the kind of reminder lifecycle event.
type Type string

const (
	TypeScheduled Type = "scheduled" // a reminder was created for a task
	TypeDelivered Type = "delivered" // the platform fired a reminder
	TypeTapped    Type = "tapped"    // the user tapped a delivered reminder
	TypeCanceled  Type = "canceled"  // a pending reminder was cancelled
)

// Event is a single reminder lifecycle occurrence.
type Event struct {
	Type       Type      `json:"type"`
	TaskID     string    `json:"task_id,omitempty"`
	TaskTitle  string    `json:"task_title,omitempty"`
	ReminderID string    `json:"reminder_id,omitempty"`
	At         time.Time `json:"at"`
}

// Handler consumes published events. Handlers must not block.
type Handler func(Event)

// Bus fans reminder events out to subscribers and keeps a short history for
// late joiners.
type Bus interface {
	// Publish delivers an event to every subscriber.
	Publish(ev Event)

	// Subscribe registers a handler. The returned function unsubscribes it.
	Subscribe(handler Handler) (unsubscribe func())

	// History returns up to limit recent events, oldest first.
	History(limit int) []Event
}
