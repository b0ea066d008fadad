// Package local implements the scheduling port for a headless personal
// device: pending reminders are persisted in SQLite so they survive process
// restarts, and a one-shot timer per reminder delivers it through a pluggable
// Notifier at its trigger instant.
package local

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/nudgeapp/nudge/platform"
)

func init() {
	platform.Register("local", func(dataDir string) (platform.Scheduler, error) {
		return Open(filepath.Join(dataDir, "reminders.db"), nil)
	})
}

// Notifier delivers a fired reminder to the user. The default logs it.
type Notifier func(platform.Reminder)

// maxRecentDeliveries bounds the fired-reminder buffer kept for tap lookup.
const maxRecentDeliveries = 100

// Scheduler is the durable local scheduling adapter.
type Scheduler struct {
	store  *store
	logger *slog.Logger

	mu       sync.Mutex
	timers   map[string]*time.Timer
	handlers map[int]platform.TapHandler
	nextSub  int
	recent   []platform.Reminder // fired reminders, newest last
	notifier Notifier
	closed   bool
}

// Open opens (or creates) the reminder database at dbPath and re-arms a timer
// for every pending reminder found there. Reminders whose trigger instant
// already passed are delivered immediately.
func Open(dbPath string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		store:    st,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		handlers: make(map[int]platform.TapHandler),
	}
	s.notifier = func(r platform.Reminder) {
		s.logger.Info("reminder delivered",
			slog.String("id", r.ID),
			slog.String("title", r.Content.Title),
		)
	}

	pending, err := st.list()
	if err != nil {
		st.close()
		return nil, err
	}
	for _, r := range pending {
		s.arm(r)
	}
	logger.Info("local scheduler ready",
		slog.String("db", dbPath),
		slog.Int("pending", len(pending)),
	)
	return s, nil
}

// SetNotifier replaces the delivery callback. Call before reminders fire.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n != nil {
		s.notifier = n
	}
}

// Close stops all timers and closes the database. Pending reminders remain
// persisted and re-arm on the next Open.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	return s.store.close()
}

// Supported always reports true: the local adapter is the capability.
func (s *Scheduler) Supported() bool { return true }

// PermissionStatus returns the persisted consent state.
func (s *Scheduler) PermissionStatus(_ context.Context) (platform.PermissionStatus, error) {
	return s.store.permission()
}

// RequestPermission records consent. A headless device has no prompt to show,
// so the first request grants and persists the decision.
func (s *Scheduler) RequestPermission(_ context.Context, _ platform.PermissionOptions) (bool, error) {
	status, err := s.store.permission()
	if err != nil {
		return false, err
	}
	if status == platform.PermissionDenied {
		return false, nil
	}
	if status != platform.PermissionGranted {
		if err := s.store.setPermission(platform.PermissionGranted); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Create persists a reminder and arms its timer.
func (s *Scheduler) Create(_ context.Context, content platform.Content, trigger platform.Trigger) (string, error) {
	r, err := s.store.insert(content, trigger)
	if err != nil {
		return "", err
	}
	s.arm(r)
	return r.ID, nil
}

// Cancel stops and removes one pending reminder.
func (s *Scheduler) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	return s.store.delete(id)
}

// CancelAll stops and removes every pending reminder.
func (s *Scheduler) CancelAll(_ context.Context) error {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	return s.store.deleteAll()
}

// List returns the persisted pending set.
func (s *Scheduler) List(_ context.Context) ([]platform.Reminder, error) {
	return s.store.list()
}

// OnTap attaches a tap-response observer.
func (s *Scheduler) OnTap(handler platform.TapHandler) platform.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.handlers[id] = handler
	return &subscription{s: s, id: id}
}

// Tap reports a user tap on a delivered reminder and dispatches it to every
// attached observer. Unknown IDs are ignored.
func (s *Scheduler) Tap(reminderID string) {
	s.mu.Lock()
	var found *platform.Reminder
	for i := range s.recent {
		if s.recent[i].ID == reminderID {
			found = &s.recent[i]
			break
		}
	}
	handlers := make([]platform.TapHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	if found == nil {
		s.logger.Debug("tap for unknown reminder", slog.String("id", reminderID))
		return
	}
	ev := platform.TapEvent{ReminderID: reminderID, Metadata: found.Content.Metadata}
	for _, h := range handlers {
		h(ev)
	}
}

// arm schedules the in-process timer for a pending reminder.
func (s *Scheduler) arm(r platform.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	delay := time.Until(r.Trigger.At)
	if delay < 0 {
		delay = 0
	}
	s.timers[r.ID] = time.AfterFunc(delay, func() { s.fire(r) })
}

// fire delivers a reminder and retires its persisted row.
func (s *Scheduler) fire(r platform.Reminder) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, r.ID)
	s.recent = append(s.recent, r)
	if len(s.recent) > maxRecentDeliveries {
		s.recent = s.recent[len(s.recent)-maxRecentDeliveries:]
	}
	notifier := s.notifier
	s.mu.Unlock()

	if err := s.store.delete(r.ID); err != nil {
		s.logger.Warn("retire fired reminder", slog.String("id", r.ID), slog.Any("err", err))
	}
	notifier(r)
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
