package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nudgeapp/nudge/platform"
	"github.com/nudgeapp/nudge/task"
)

// DefaultGuardInterval is the minimum lead time between "now" and a new
// reminder's trigger instant.
const DefaultGuardInterval = 60 * time.Second

// fallbackDisplayName replaces an empty or whitespace-only display name.
const fallbackDisplayName = "User"

// TapFunc receives the originating task identity and title when the user
// taps a delivered reminder. Navigation or any other reaction belongs to the
// host application.
type TapFunc func(taskID, taskTitle string)

// Options tunes a Manager. The zero value is usable.
type Options struct {
	// GuardInterval overrides DefaultGuardInterval. Values below the default
	// are raised to it.
	GuardInterval time.Duration

	// OnTap is invoked for each tap event after Initialize.
	OnTap TapFunc

	// DefaultDisplayName is used when Reconcile recreates a reminder and no
	// display name is available. Empty falls back to "User".
	DefaultDisplayName string
}

// Manager owns the task-identity-to-reminder mapping. It keeps no reminder
// state between calls: the platform's pending set is authoritative, and every
// lookup goes through the port.
//
// All operations are fail-soft. Failures are logged with context and surface
// only as classification errors next to the documented sentinel result; none
// of them panic or abort sibling work.
type Manager struct {
	sched  platform.Scheduler
	gate   *Gatekeeper
	logger *slog.Logger
	opts   Options

	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-task-identity
	sub   platform.Subscription
}

// NewManager creates a Manager over the given scheduling port.
func NewManager(sched platform.Scheduler, logger *slog.Logger, opts Options) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.GuardInterval < DefaultGuardInterval {
		opts.GuardInterval = DefaultGuardInterval
	}
	if opts.DefaultDisplayName == "" {
		opts.DefaultDisplayName = fallbackDisplayName
	}
	return &Manager{
		sched:  sched,
		gate:   NewGatekeeper(sched, logger),
		logger: logger,
		opts:   opts,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Gatekeeper returns the manager's permission gatekeeper.
func (m *Manager) Gatekeeper() *Gatekeeper { return m.gate }

// Initialize acquires permission and attaches the single tap-response
// observer. Repeated calls do not attach a second observer. It never fails:
// on a capability-absent platform or a denied permission it logs and returns.
func (m *Manager) Initialize(ctx context.Context) {
	if !m.sched.Supported() {
		m.logger.Debug("notifications unsupported, skipping initialization")
		return
	}
	if !m.gate.RequestPermission(ctx) {
		m.logger.Warn("notification permission not granted, tap observer not attached")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != nil {
		return
	}
	m.sub = m.sched.OnTap(func(ev platform.TapEvent) {
		taskID := ev.Metadata[platform.MetaTaskID]
		taskTitle := ev.Metadata[platform.MetaTaskTitle]
		m.logger.Info("reminder tapped",
			slog.String("reminder_id", ev.ReminderID),
			slog.String("task_id", taskID),
		)
		if m.opts.OnTap != nil {
			m.opts.OnTap(taskID, taskTitle)
		}
	})
}

// Close detaches the tap observer. Safe to call without Initialize.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != nil {
		m.sub.Remove()
		m.sub = nil
	}
}

// Schedule creates the single reminder for a task, replacing any prior one.
//
// The returned ID is "" whenever no reminder was created; the error then
// classifies why (ErrInvalidInput, ErrPermissionDenied, ErrTooSoon, or a
// wrapped ErrPlatform) and is nil on an unsupported platform. Cancellation of
// the task's prior reminders is completed before the new one is created, and
// the whole sequence holds the task's identity lock so concurrent edits of
// the same task cannot interleave.
func (m *Manager) Schedule(ctx context.Context, t *task.Task, displayName string) (string, error) {
	if !m.sched.Supported() {
		return "", nil
	}

	due, err := m.validate(t)
	if err != nil {
		m.logger.Warn("reminder input rejected", slog.Any("err", err))
		return "", err
	}

	if !m.gate.RequestPermission(ctx) {
		m.logger.Info("reminder not scheduled, permission missing", slog.String("task_id", t.ID))
		return "", ErrPermissionDenied
	}

	if !due.After(m.now().Add(m.opts.GuardInterval)) {
		m.logger.Info("reminder not scheduled, due too soon",
			slog.String("task_id", t.ID),
			slog.Time("due", due),
		)
		return "", ErrTooSoon
	}

	unlock := m.lockTask(t.ID)
	defer unlock()

	// Uphold the one-reminder-per-task invariant before creating.
	m.cancelForTask(ctx, t.ID)

	content := platform.Content{
		Title: "Task Reminder for " + m.sanitizeDisplayName(displayName),
		Body:  "Don't forget: " + t.Title,
		Metadata: map[string]string{
			platform.MetaTaskID:    t.ID,
			platform.MetaTaskTitle: t.Title,
		},
		Sound: true,
	}
	id, err := m.sched.Create(ctx, content, platform.Trigger{At: due})
	if err != nil {
		m.logger.Error("reminder creation failed",
			slog.String("task_id", t.ID),
			slog.Time("due", due),
			slog.Any("err", err),
		)
		return "", fmt.Errorf("%w: %v", ErrPlatform, err)
	}

	m.logger.Info("reminder scheduled",
		slog.String("task_id", t.ID),
		slog.String("reminder_id", id),
		slog.Time("due", due),
	)
	return id, nil
}

// CancelOne cancels exactly one reminder by its platform identity.
// Best effort: failures are logged, empty IDs and unsupported platforms no-op.
func (m *Manager) CancelOne(ctx context.Context, reminderID string) {
	if strings.TrimSpace(reminderID) == "" || !m.sched.Supported() {
		return
	}
	if err := m.sched.Cancel(ctx, reminderID); err != nil {
		m.logger.Warn("reminder cancellation failed",
			slog.String("reminder_id", reminderID),
			slog.Any("err", err),
		)
	}
}

// CancelForTask cancels every pending reminder bound to the given task
// identity. Each cancellation is independent: one failure does not abort the
// others.
func (m *Manager) CancelForTask(ctx context.Context, taskID string) {
	if strings.TrimSpace(taskID) == "" || !m.sched.Supported() {
		return
	}
	unlock := m.lockTask(taskID)
	defer unlock()
	m.cancelForTask(ctx, taskID)
}

// cancelForTask is CancelForTask without the identity lock; Schedule calls it
// while already holding the lock.
func (m *Manager) cancelForTask(ctx context.Context, taskID string) {
	pending, err := m.sched.List(ctx)
	if err != nil {
		m.logger.Warn("reminder listing failed during cancellation",
			slog.String("task_id", taskID),
			slog.Any("err", err),
		)
		return
	}
	for _, r := range pending {
		if r.TaskID() != taskID {
			continue
		}
		if err := m.sched.Cancel(ctx, r.ID); err != nil {
			m.logger.Warn("reminder cancellation failed",
				slog.String("task_id", taskID),
				slog.String("reminder_id", r.ID),
				slog.Any("err", err),
			)
		}
	}
}

// CancelAll cancels every pending reminder on the platform.
func (m *Manager) CancelAll(ctx context.Context) {
	if !m.sched.Supported() {
		return
	}
	if err := m.sched.CancelAll(ctx); err != nil {
		m.logger.Warn("cancel-all failed", slog.Any("err", err))
	}
}

// ListScheduled returns the platform's pending set, or an empty slice on an
// unsupported platform or an underlying failure.
func (m *Manager) ListScheduled(ctx context.Context) []platform.Reminder {
	if !m.sched.Supported() {
		return []platform.Reminder{}
	}
	pending, err := m.sched.List(ctx)
	if err != nil {
		m.logger.Warn("reminder listing failed", slog.Any("err", err))
		return []platform.Reminder{}
	}
	if pending == nil {
		pending = []platform.Reminder{}
	}
	return pending
}

// Reconcile makes the pending-reminder set a correct projection of the known
// tasks: reminders whose task is gone or done are cancelled, and future-due
// tasks without a reminder get one. Failures are isolated per item.
func (m *Manager) Reconcile(ctx context.Context, tasks []*task.Task) {
	if !m.sched.Supported() {
		return
	}

	byID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	covered := make(map[string]bool)
	for _, r := range m.ListScheduled(ctx) {
		taskID := r.TaskID()
		if taskID == "" {
			continue // not ours
		}
		t, ok := byID[taskID]
		if !ok || t.Done {
			m.logger.Info("reconcile: cancelling orphan reminder",
				slog.String("reminder_id", r.ID),
				slog.String("task_id", taskID),
			)
			m.CancelOne(ctx, r.ID)
			continue
		}
		covered[taskID] = true
	}

	for _, t := range tasks {
		if t.Done || covered[t.ID] || !t.HasDue() {
			continue
		}
		due, err := t.DueAt()
		if err != nil || !due.After(m.now().Add(m.opts.GuardInterval)) {
			continue
		}
		if _, err := m.Schedule(ctx, t, m.opts.DefaultDisplayName); err != nil {
			m.logger.Warn("reconcile: reschedule failed",
				slog.String("task_id", t.ID),
				slog.Any("err", err),
			)
		}
	}
}

// validate checks the task fields the lifecycle manager depends on and
// returns the parsed due instant.
func (m *Manager) validate(t *task.Task) (time.Time, error) {
	if t == nil {
		return time.Time{}, fmt.Errorf("%w: nil task", ErrInvalidInput)
	}
	if strings.TrimSpace(t.ID) == "" {
		return time.Time{}, fmt.Errorf("%w: missing task id", ErrInvalidInput)
	}
	if strings.TrimSpace(t.Title) == "" {
		return time.Time{}, fmt.Errorf("%w: task %s has no title", ErrInvalidInput, t.ID)
	}
	if !t.HasDue() {
		return time.Time{}, fmt.Errorf("%w: task %s has no due date/time", ErrInvalidInput, t.ID)
	}
	due, err := t.DueAt()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return due, nil
}

// sanitizeDisplayName normalizes the name shown in the reminder title.
func (m *Manager) sanitizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallbackDisplayName
	}
	return cases.Title(language.English, cases.NoLower).String(name)
}

// lockTask acquires the mutex for a task identity, creating it on first use,
// and returns the unlock function.
func (m *Manager) lockTask(taskID string) func() {
	m.mu.Lock()
	l, ok := m.locks[taskID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[taskID] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}
