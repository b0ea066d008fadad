package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/nudgeapp/nudge/platform"
	"github.com/nudgeapp/nudge/platform/mock"
)

func TestGatekeeper_UnsupportedAlwaysTrue(t *testing.T) {
	sched := mock.NewUnsupported()
	g := NewGatekeeper(sched, testLogger(t))

	if !g.RequestPermission(context.Background()) {
		t.Error("RequestPermission = false on unsupported platform, want true")
	}
	if sched.RequestPermissionCalls != 0 {
		t.Errorf("port prompt calls = %d, want 0", sched.RequestPermissionCalls)
	}
}

func TestGatekeeper_PromptsWhenUndetermined(t *testing.T) {
	sched := mock.New()
	g := NewGatekeeper(sched, testLogger(t))

	if !g.RequestPermission(context.Background()) {
		t.Fatal("RequestPermission = false, want true")
	}
	// Primary prompt plus the best-effort sub-permission request.
	if sched.RequestPermissionCalls != 2 {
		t.Errorf("prompt calls = %d, want 2", sched.RequestPermissionCalls)
	}
}

func TestGatekeeper_AlreadyGrantedSkipsPrompt(t *testing.T) {
	sched := mock.New()
	sched.SetPermission(platform.PermissionGranted, true)
	g := NewGatekeeper(sched, testLogger(t))

	if !g.RequestPermission(context.Background()) {
		t.Fatal("RequestPermission = false, want true")
	}
	if sched.RequestPermissionCalls != 0 {
		t.Errorf("prompt calls = %d, want 0 when already granted", sched.RequestPermissionCalls)
	}
}

func TestGatekeeper_DeniedIsFalse(t *testing.T) {
	sched := mock.New()
	sched.SetPermission(platform.PermissionUndetermined, false)
	g := NewGatekeeper(sched, testLogger(t))

	if g.RequestPermission(context.Background()) {
		t.Error("RequestPermission = true after denial, want false")
	}
}

func TestGatekeeper_FailClosed(t *testing.T) {
	sched := mock.New()
	sched.PermissionErr = errors.New("permission backend broken")
	g := NewGatekeeper(sched, testLogger(t))

	if g.RequestPermission(context.Background()) {
		t.Error("RequestPermission = true on platform failure, want false")
	}
}

func TestGatekeeper_Revocation(t *testing.T) {
	sched := mock.New()
	g := NewGatekeeper(sched, testLogger(t))
	ctx := context.Background()

	if !g.RequestPermission(ctx) {
		t.Fatal("first RequestPermission = false, want true")
	}

	// Consent revoked outside the process; the next call must notice.
	sched.SetPermission(platform.PermissionDenied, false)
	if g.RequestPermission(ctx) {
		t.Error("RequestPermission = true after external revocation, want false")
	}
}
