// Package platform defines the scheduling port: the boundary interface to the
// host environment's local-notification capability. The reminder lifecycle
// manager only ever talks to the platform through this interface; concrete
// adapters live in subpackages.
package platform

import (
	"context"
	"time"
)

// PermissionStatus is the platform's view of notification consent.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Metadata keys attached to every reminder created by the lifecycle manager.
const (
	MetaTaskID    = "task_id"
	MetaTaskTitle = "task_title"
)

// Content is the user-visible payload of a scheduled reminder.
type Content struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Sound    bool              `json:"sound"`
}

// Trigger is the instant at which a reminder fires.
type Trigger struct {
	At time.Time `json:"at"`
}

// Reminder is a pending platform-tracked notification request.
type Reminder struct {
	ID      string  `json:"id"`
	Content Content `json:"content"`
	Trigger Trigger `json:"trigger"`
}

// TaskID returns the originating task identity from the reminder metadata,
// or "" if the reminder was not created by the lifecycle manager.
func (r Reminder) TaskID() string {
	return r.Content.Metadata[MetaTaskID]
}

// PermissionOptions selects the finer-grained sub-permissions requested after
// the primary grant.
type PermissionOptions struct {
	Alert bool `json:"alert"`
	Sound bool `json:"sound"`
	Badge bool `json:"badge"`
}

// TapEvent is delivered when the user taps a fired reminder.
type TapEvent struct {
	ReminderID string            `json:"reminder_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// TapHandler receives tap events. Handlers must not block.
type TapHandler func(TapEvent)

// Subscription is a registered tap-response observer.
type Subscription interface {
	// Remove detaches the observer. Safe to call more than once.
	Remove()
}

// Scheduler is the platform scheduling port.
//
// Implementations own the pending-reminder set and its durability; callers
// treat that set as authoritative and hold no reminder identities between
// calls.
type Scheduler interface {
	// Supported reports whether the host environment can schedule local
	// notifications at all. When false, callers degrade to no-ops.
	Supported() bool

	// PermissionStatus returns the current consent state.
	PermissionStatus(ctx context.Context) (PermissionStatus, error)

	// RequestPermission prompts the user for consent and reports the result.
	RequestPermission(ctx context.Context, opts PermissionOptions) (bool, error)

	// Create schedules a reminder and returns its platform-assigned ID.
	Create(ctx context.Context, content Content, trigger Trigger) (string, error)

	// Cancel removes the pending reminder with the given ID.
	Cancel(ctx context.Context, id string) error

	// CancelAll removes every pending reminder.
	CancelAll(ctx context.Context) error

	// List returns the current pending set.
	List(ctx context.Context) ([]Reminder, error)

	// OnTap attaches a tap-response observer.
	OnTap(handler TapHandler) Subscription
}
