package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nudgeapp/nudge/platform"
	"github.com/nudgeapp/nudge/platform/mock"
	"github.com/nudgeapp/nudge/task"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) (*Manager, *mock.Scheduler) {
	t.Helper()
	sched := mock.New()
	m := NewManager(sched, testLogger(t), Options{})
	return m, sched
}

// futureTask returns a valid task due the given duration from now.
func futureTask(id, title string, in time.Duration) *task.Task {
	due := time.Now().Add(in)
	return &task.Task{
		ID:    id,
		Title: title,
		Date:  due.Format(task.DateLayout),
		Time:  due.Format(task.TimeLayoutSecond),
	}
}

func TestSchedule_ValidityGate(t *testing.T) {
	m, sched := newTestManager(t)
	ctx := context.Background()

	cases := []*task.Task{
		nil,
		{Title: "no id", Date: "2030-01-01", Time: "09:00"},
		{ID: "t1", Date: "2030-01-01", Time: "09:00"},
		{ID: "t1", Title: "no date", Time: "09:00"},
		{ID: "t1", Title: "no time", Date: "2030-01-01"},
		{ID: "t1", Title: "bad combo", Date: "2030-13-40", Time: "09:00"},
		{ID: "  ", Title: "blank id", Date: "2030-01-01", Time: "09:00"},
	}
	for _, tc := range cases {
		id, err := m.Schedule(ctx, tc, "Alex")
		if id != "" {
			t.Errorf("Schedule(%+v) = %q, want empty", tc, id)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Schedule(%+v) err = %v, want ErrInvalidInput", tc, err)
		}
	}

	// The port was never touched.
	if sched.CreateCalls != 0 || sched.ListCalls != 0 || sched.RequestPermissionCalls != 0 {
		t.Errorf("port calls = create %d, list %d, prompt %d; want all 0",
			sched.CreateCalls, sched.ListCalls, sched.RequestPermissionCalls)
	}
}

func TestSchedule_TemporalGate(t *testing.T) {
	m, sched := newTestManager(t)
	ctx := context.Background()

	// Inside the guard interval: rejected as policy, not scheduled.
	id, err := m.Schedule(ctx, futureTask("t1", "too soon", 30*time.Second), "Alex")
	if id != "" || !errors.Is(err, ErrTooSoon) {
		t.Errorf("Schedule(+30s) = (%q, %v), want (\"\", ErrTooSoon)", id, err)
	}
	if sched.CreateCalls != 0 {
		t.Errorf("CreateCalls = %d, want 0", sched.CreateCalls)
	}

	// Strictly beyond it: scheduled.
	id, err = m.Schedule(ctx, futureTask("t1", "in time", 2*time.Minute), "Alex")
	if err != nil {
		t.Fatalf("Schedule(+2m): %v", err)
	}
	if id == "" {
		t.Fatal("Schedule(+2m) returned empty ID")
	}
}

func TestSchedule_UniquenessInvariant(t *testing.T) {
	m, sched := newTestManager(t)
	ctx := context.Background()

	first, err := m.Schedule(ctx, futureTask("t1", "first version", time.Hour), "Alex")
	if err != nil {
		t.Fatalf("first Schedule: %v", err)
	}
	second, err := m.Schedule(ctx, futureTask("t1", "second version", 2*time.Hour), "Alex")
	if err != nil {
		t.Fatalf("second Schedule: %v", err)
	}
	if first == second {
		t.Errorf("second Schedule reused ID %q", first)
	}

	pending := sched.Pending()
	var mine []platform.Reminder
	for _, r := range pending {
		if r.TaskID() == "t1" {
			mine = append(mine, r)
		}
	}
	if len(mine) != 1 {
		t.Fatalf("pending reminders for t1 = %d, want 1", len(mine))
	}
	if mine[0].ID != second {
		t.Errorf("surviving reminder = %q, want the second call's %q", mine[0].ID, second)
	}
	if mine[0].Content.Body != "Don't forget: second version" {
		t.Errorf("surviving body = %q, want the second call's", mine[0].Content.Body)
	}
}

func TestSchedule_PermissionGating(t *testing.T) {
	m, sched := newTestManager(t)
	ctx := context.Background()
	sched.SetPermission(platform.PermissionUndetermined, false)

	id, err := m.Schedule(ctx, futureTask("t1", "x", time.Hour), "Alex")
	if id != "" || !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Schedule = (%q, %v), want (\"\", ErrPermissionDenied)", id, err)
	}
	if sched.CreateCalls != 0 {
		t.Errorf("CreateCalls = %d, want 0", sched.CreateCalls)
	}

	// Cancellation and listing are not permission-gated.
	if got := m.ListScheduled(ctx); len(got) != 0 {
		t.Errorf("ListScheduled = %v, want empty", got)
	}
	m.CancelForTask(ctx, "t1")
	m.CancelAll(ctx)
	if sched.ListCalls == 0 {
		t.Error("CancelForTask did not consult the pending set")
	}
}

func TestCapabilityAbsentPlatform(t *testing.T) {
	sched := mock.NewUnsupported()
	m := NewManager(sched, testLogger(t), Options{})
	ctx := context.Background()

	m.Initialize(ctx)
	id, err := m.Schedule(ctx, futureTask("t1", "x", time.Hour), "Alex")
	if id != "" || err != nil {
		t.Errorf("Schedule = (%q, %v), want (\"\", nil)", id, err)
	}
	m.CancelOne(ctx, "rem-1")
	m.CancelForTask(ctx, "t1")
	m.CancelAll(ctx)
	if got := m.ListScheduled(ctx); len(got) != 0 {
		t.Errorf("ListScheduled = %v, want empty", got)
	}

	if sched.CreateCalls != 0 || sched.CancelCalls != 0 || sched.ListCalls != 0 ||
		sched.RequestPermissionCalls != 0 || sched.HandlerCount() != 0 {
		t.Error("capability-absent platform received port calls")
	}
}

func TestCancelForTask_PartialFailureIsolation(t *testing.T) {
	m, sched := newTestManager(t)
	ctx := context.Background()

	meta := map[string]string{platform.MetaTaskID: "t1", platform.MetaTaskTitle: "x"}
	at := platform.Trigger{At: time.Now().Add(time.Hour)}
	id1, _ := sched.Create(ctx, platform.Content{Title: "a", Metadata: meta}, at)
	id2, _ := sched.Create(ctx, platform.Content{Title: "b", Metadata: meta}, at)
	id3, _ := sched.Create(ctx, platform.Content{Title: "c", Metadata: meta}, at)
	sched.FailCancelIDs = map[string]bool{id2: true}

	m.CancelForTask(ctx, "t1")

	pending := sched.Pending()
	if _, ok := pending[id1]; ok {
		t.Error("first reminder still pending, want cancelled")
	}
	if _, ok := pending[id3]; ok {
		t.Error("third reminder still pending, want cancelled")
	}
	if _, ok := pending[id2]; !ok {
		t.Error("second reminder gone despite scripted cancel failure")
	}
}

func TestSchedule_EndToEnd(t *testing.T) {
	m, sched := newTestManager(t)
	ctx := context.Background()

	tk := &task.Task{ID: "t1", Title: "Buy milk", Date: "2030-01-01", Time: "09:00"}
	id, err := m.Schedule(ctx, tk, "Alex")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if id == "" {
		t.Fatal("Schedule returned empty ID")
	}

	r, ok := sched.Pending()[id]
	if !ok {
		t.Fatalf("reminder %q not in pending set", id)
	}
	if r.Content.Title != "Task Reminder for Alex" {
		t.Errorf("Title = %q, want %q", r.Content.Title, "Task Reminder for Alex")
	}
	if r.Content.Body != "Don't forget: Buy milk" {
		t.Errorf("Body = %q, want %q", r.Content.Body, "Don't forget: Buy milk")
	}
	if r.Content.Metadata[platform.MetaTaskID] != "t1" {
		t.Errorf("task_id = %q, want t1", r.Content.Metadata[platform.MetaTaskID])
	}
	if r.Content.Metadata[platform.MetaTaskTitle] != "Buy milk" {
		t.Errorf("task_title = %q, want Buy milk", r.Content.Metadata[platform.MetaTaskTitle])
	}
	want := time.Date(2030, 1, 1, 9, 0, 0, 0, time.Local)
	if !r.Trigger.At.Equal(want) {
		t.Errorf("trigger = %v, want %v", r.Trigger.At, want)
	}
}

func TestSchedule_DisplayNameFallback(t *testing.T) {
	m, sched := newTestManager(t)

	id, err := m.Schedule(context.Background(), futureTask("t1", "x", time.Hour), "   ")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	r := sched.Pending()[id]
	if r.Content.Title != "Task Reminder for User" {
		t.Errorf("Title = %q, want %q", r.Content.Title, "Task Reminder for User")
	}
}

func TestSchedule_PlatformFailure(t *testing.T) {
	m, sched := newTestManager(t)
	sched.FailCreate = true

	id, err := m.Schedule(context.Background(), futureTask("t1", "x", time.Hour), "Alex")
	if id != "" || !errors.Is(err, ErrPlatform) {
		t.Errorf("Schedule = (%q, %v), want (\"\", ErrPlatform)", id, err)
	}
}

func TestInitialize_IdempotentObserver(t *testing.T) {
	m, sched := newTestManager(t)
	ctx := context.Background()

	m.Initialize(ctx)
	m.Initialize(ctx)
	if got := sched.HandlerCount(); got != 1 {
		t.Errorf("attached observers = %d, want 1", got)
	}

	m.Close()
	if got := sched.HandlerCount(); got != 0 {
		t.Errorf("observers after Close = %d, want 0", got)
	}
}

func TestInitialize_ForwardsTap(t *testing.T) {
	sched := mock.New()
	var gotID, gotTitle string
	m := NewManager(sched, testLogger(t), Options{
		OnTap: func(taskID, taskTitle string) {
			gotID, gotTitle = taskID, taskTitle
		},
	})
	ctx := context.Background()
	m.Initialize(ctx)

	id, err := m.Schedule(ctx, &task.Task{ID: "t1", Title: "Buy milk", Date: "2030-01-01", Time: "09:00"}, "Alex")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	sched.FireTap(id)

	if gotID != "t1" || gotTitle != "Buy milk" {
		t.Errorf("tap forwarded (%q, %q), want (t1, Buy milk)", gotID, gotTitle)
	}
}

func TestInitialize_NoObserverWithoutPermission(t *testing.T) {
	sched := mock.New()
	sched.SetPermission(platform.PermissionUndetermined, false)
	m := NewManager(sched, testLogger(t), Options{})

	m.Initialize(context.Background())
	if got := sched.HandlerCount(); got != 0 {
		t.Errorf("observers = %d, want 0 when permission denied", got)
	}
}

func TestReconcile(t *testing.T) {
	m, sched := newTestManager(t)
	ctx := context.Background()

	gone := futureTask("gone", "deleted task", time.Hour)
	done := futureTask("done", "finished task", time.Hour)
	kept := futureTask("kept", "still due", time.Hour)
	missing := futureTask("missing", "lost its reminder", time.Hour)

	for _, tk := range []*task.Task{gone, done, kept} {
		if _, err := m.Schedule(ctx, tk, "Alex"); err != nil {
			t.Fatalf("Schedule(%s): %v", tk.ID, err)
		}
	}
	done.Done = true

	// "gone" is no longer a known task; "missing" never got a reminder.
	m.Reconcile(ctx, []*task.Task{done, kept, missing})

	byTask := make(map[string]int)
	for _, r := range sched.Pending() {
		byTask[r.TaskID()]++
	}
	if byTask["gone"] != 0 {
		t.Error("reminder for deleted task survived reconcile")
	}
	if byTask["done"] != 0 {
		t.Error("reminder for completed task survived reconcile")
	}
	if byTask["kept"] != 1 {
		t.Errorf("reminders for kept = %d, want 1", byTask["kept"])
	}
	if byTask["missing"] != 1 {
		t.Errorf("reminders for missing = %d, want 1", byTask["missing"])
	}
}

func TestListScheduled_FailSoft(t *testing.T) {
	m, sched := newTestManager(t)
	sched.FailList = true

	got := m.ListScheduled(context.Background())
	if got == nil || len(got) != 0 {
		t.Errorf("ListScheduled = %v, want empty non-nil slice", got)
	}
}
