package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nudgeapp/nudge/platform"
)

func newTestScheduler(t *testing.T) (*Scheduler, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reminders.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestCreateListCancel(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()

	content := platform.Content{
		Title:    "Task Reminder for Alex",
		Body:     "Don't forget: Buy milk",
		Metadata: map[string]string{platform.MetaTaskID: "t1", platform.MetaTaskTitle: "Buy milk"},
		Sound:    true,
	}
	id, err := s.Create(ctx, content, platform.Trigger{At: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty ID")
	}

	pending, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].TaskID() != "t1" {
		t.Errorf("TaskID = %q, want t1", pending[0].TaskID())
	}
	if pending[0].Content.Body != content.Body {
		t.Errorf("Body = %q, want %q", pending[0].Content.Body, content.Body)
	}

	if err := s.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	pending, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List after cancel: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after cancel = %d, want 0", len(pending))
	}
}

func TestCancelNotFound(t *testing.T) {
	s, _ := newTestScheduler(t)
	if err := s.Cancel(context.Background(), "missing"); err != platform.ErrNotFound {
		t.Errorf("Cancel = %v, want ErrNotFound", err)
	}
}

func TestCancelAll(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()
	for range 3 {
		if _, err := s.Create(ctx, platform.Content{Title: "x"}, platform.Trigger{At: time.Now().Add(time.Hour)}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := s.CancelAll(ctx); err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	pending, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}

func TestPermissionPersisted(t *testing.T) {
	s, path := newTestScheduler(t)
	ctx := context.Background()

	status, err := s.PermissionStatus(ctx)
	if err != nil {
		t.Fatalf("PermissionStatus: %v", err)
	}
	if status != platform.PermissionUndetermined {
		t.Errorf("status = %q, want undetermined", status)
	}

	granted, err := s.RequestPermission(ctx, platform.PermissionOptions{Alert: true, Sound: true})
	if err != nil {
		t.Fatalf("RequestPermission: %v", err)
	}
	if !granted {
		t.Fatal("RequestPermission = false, want true")
	}

	// Survives reopen.
	s.Close()
	s2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	status, err = s2.PermissionStatus(ctx)
	if err != nil {
		t.Fatalf("PermissionStatus after reopen: %v", err)
	}
	if status != platform.PermissionGranted {
		t.Errorf("status after reopen = %q, want granted", status)
	}
}

func TestDeliveryAndTap(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()

	delivered := make(chan platform.Reminder, 1)
	s.SetNotifier(func(r platform.Reminder) { delivered <- r })

	tapped := make(chan platform.TapEvent, 1)
	sub := s.OnTap(func(ev platform.TapEvent) { tapped <- ev })
	defer sub.Remove()

	content := platform.Content{
		Title:    "Task Reminder for Alex",
		Metadata: map[string]string{platform.MetaTaskID: "t1", platform.MetaTaskTitle: "Buy milk"},
	}
	id, err := s.Create(ctx, content, platform.Trigger{At: time.Now().Add(20 * time.Millisecond)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	select {
	case r := <-delivered:
		if r.ID != id {
			t.Errorf("delivered ID = %q, want %q", r.ID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reminder was not delivered")
	}

	// Fired reminders leave the pending set.
	pending, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after fire = %d, want 0", len(pending))
	}

	s.Tap(id)
	select {
	case ev := <-tapped:
		if ev.Metadata[platform.MetaTaskID] != "t1" {
			t.Errorf("tap task_id = %q, want t1", ev.Metadata[platform.MetaTaskID])
		}
	case <-time.After(time.Second):
		t.Fatal("tap was not dispatched")
	}
}

func TestRearmOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Trigger in the near future, then close before it fires.
	_, err = s.Create(context.Background(), platform.Content{Title: "x"}, platform.Trigger{At: time.Now().Add(300 * time.Millisecond)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.Close()

	s2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	delivered := make(chan platform.Reminder, 1)
	s2.SetNotifier(func(r platform.Reminder) { delivered <- r })

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("re-armed reminder was not delivered after reopen")
	}
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(os.DevNull, "nope", "reminders.db"), nil)
	if err == nil {
		t.Fatal("expected error opening store under an invalid path")
	}
}
