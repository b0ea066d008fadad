// Package notify implements the reminder lifecycle: permission acquisition
// and the mapping from task identity to at most one pending scheduled
// reminder on the platform.
package notify

import (
	"context"
	"log/slog"

	"github.com/nudgeapp/nudge/platform"
)

// Gatekeeper acquires the user's consent to deliver local notifications.
// It holds no state: consent is re-derived from the platform on every call
// because the user can revoke it outside the process.
type Gatekeeper struct {
	sched  platform.Scheduler
	logger *slog.Logger
}

// NewGatekeeper creates a Gatekeeper over the given scheduling port.
func NewGatekeeper(sched platform.Scheduler, logger *slog.Logger) *Gatekeeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatekeeper{sched: sched, logger: logger}
}

// RequestPermission reports whether notifications may be scheduled.
//
// On a capability-absent platform it returns true unconditionally: there is
// nothing to deny, and schedule itself no-ops there. Otherwise it queries the
// current status, prompts once if not already granted, and then issues a
// best-effort request for the alert/sound sub-permissions, whose failure is
// logged and swallowed. It never propagates an error: any underlying failure
// resolves to false.
func (g *Gatekeeper) RequestPermission(ctx context.Context) bool {
	if !g.sched.Supported() {
		return true
	}

	status, err := g.sched.PermissionStatus(ctx)
	if err != nil {
		g.logger.Warn("permission status check failed", slog.Any("err", err))
		return false
	}
	if status == platform.PermissionGranted {
		return true
	}

	granted, err := g.sched.RequestPermission(ctx, platform.PermissionOptions{})
	if err != nil {
		g.logger.Warn("permission request failed", slog.Any("err", err))
		return false
	}
	if !granted {
		g.logger.Info("notification permission denied by user")
		return false
	}

	// Secondary alert/sound request. A partial grant is still a grant.
	if _, err := g.sched.RequestPermission(ctx, platform.PermissionOptions{Alert: true, Sound: true}); err != nil {
		g.logger.Warn("sub-permission request failed", slog.Any("err", err))
	}
	return true
}
