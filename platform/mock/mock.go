// Package mock provides a scripted in-memory scheduling adapter for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/nudgeapp/nudge/platform"
)

// Scheduler implements platform.Scheduler for testing. The pending set lives
// in memory; individual calls can be scripted to fail.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]platform.Reminder
	nextID  int
	status  platform.PermissionStatus
	granted bool // result of the next RequestPermission

	handlers map[int]platform.TapHandler
	nextSub  int

	// Failure injection.
	FailCreate    bool
	FailList      bool
	FailCancelIDs map[string]bool // cancel fails for these reminder IDs
	PermissionErr error           // returned by PermissionStatus/RequestPermission

	// Call counters.
	CreateCalls            int
	CancelCalls            int
	ListCalls              int
	RequestPermissionCalls int

	unsupported bool
}

// New creates a mock Scheduler with permission undetermined and the prompt
// scripted to grant.
func New() *Scheduler {
	return &Scheduler{
		pending:  make(map[string]platform.Reminder),
		handlers: make(map[int]platform.TapHandler),
		status:   platform.PermissionUndetermined,
		granted:  true,
	}
}

// NewUnsupported creates a mock for a capability-absent platform.
func NewUnsupported() *Scheduler {
	s := New()
	s.unsupported = true
	return s
}

// SetPermission scripts the current status and the result of the next prompt.
func (s *Scheduler) SetPermission(status platform.PermissionStatus, grantOnPrompt bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.granted = grantOnPrompt
}

// Supported reports the scripted capability flag.
func (s *Scheduler) Supported() bool { return !s.unsupported }

// PermissionStatus returns the scripted status.
func (s *Scheduler) PermissionStatus(_ context.Context) (platform.PermissionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PermissionErr != nil {
		return platform.PermissionUndetermined, s.PermissionErr
	}
	return s.status, nil
}

// RequestPermission resolves to the scripted grant decision.
func (s *Scheduler) RequestPermission(_ context.Context, _ platform.PermissionOptions) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RequestPermissionCalls++
	if s.PermissionErr != nil {
		return false, s.PermissionErr
	}
	if s.granted {
		s.status = platform.PermissionGranted
	} else {
		s.status = platform.PermissionDenied
	}
	return s.granted, nil
}

// Create adds a reminder to the pending set.
func (s *Scheduler) Create(_ context.Context, content platform.Content, trigger platform.Trigger) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls++
	if s.FailCreate {
		return "", fmt.Errorf("mock create failure")
	}
	s.nextID++
	id := fmt.Sprintf("rem-%d", s.nextID)
	s.pending[id] = platform.Reminder{ID: id, Content: content, Trigger: trigger}
	return id, nil
}

// Cancel removes a reminder, honoring scripted per-ID failures.
func (s *Scheduler) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CancelCalls++
	if s.FailCancelIDs[id] {
		return fmt.Errorf("mock cancel failure for %s", id)
	}
	if _, ok := s.pending[id]; !ok {
		return platform.ErrNotFound
	}
	delete(s.pending, id)
	return nil
}

// CancelAll clears the pending set.
func (s *Scheduler) CancelAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]platform.Reminder)
	return nil
}

// List returns the pending set.
func (s *Scheduler) List(_ context.Context) ([]platform.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.FailList {
		return nil, fmt.Errorf("mock list failure")
	}
	out := make([]platform.Reminder, 0, len(s.pending))
	for _, r := range s.pending {
		out = append(out, r)
	}
	return out, nil
}

// OnTap attaches a tap observer.
func (s *Scheduler) OnTap(handler platform.TapHandler) platform.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.handlers[id] = handler
	return &subscription{s: s, id: id}
}

// FireTap synthesizes a tap event for a pending reminder and dispatches it to
// every attached observer.
func (s *Scheduler) FireTap(id string) {
	s.mu.Lock()
	r, ok := s.pending[id]
	handlers := make([]platform.TapHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	ev := platform.TapEvent{ReminderID: id, Metadata: r.Content.Metadata}
	for _, h := range handlers {
		h(ev)
	}
}

// HandlerCount returns the number of attached tap observers.
func (s *Scheduler) HandlerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// Pending returns a snapshot of the pending set keyed by reminder ID.
func (s *Scheduler) Pending() map[string]platform.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]platform.Reminder, len(s.pending))
	for k, v := range s.pending {
		out[k] = v
	}
	return out
}

type subscription struct {
	s  *Scheduler
	id int
}

func (sub *subscription) Remove() {
	sub.s.mu.Lock()
	defer sub.s.mu.Unlock()
	delete(sub.s.handlers, sub.id)
}
