package platform

import "context"

func init() {
	Register("none", func(string) (Scheduler, error) {
		return Unsupported{}, nil
	})
}

// Unsupported is the capability-absent platform: every port operation reports
// the absence rather than doing work. Callers are expected to check
// Supported() first and degrade; the errors here only surface if they don't.
type Unsupported struct{}

func (Unsupported) Supported() bool { return false }

func (Unsupported) PermissionStatus(context.Context) (PermissionStatus, error) {
	return PermissionUndetermined, ErrUnsupported
}

func (Unsupported) RequestPermission(context.Context, PermissionOptions) (bool, error) {
	return false, ErrUnsupported
}

func (Unsupported) Create(context.Context, Content, Trigger) (string, error) {
	return "", ErrUnsupported
}

func (Unsupported) Cancel(context.Context, string) error { return ErrUnsupported }

func (Unsupported) CancelAll(context.Context) error { return ErrUnsupported }

func (Unsupported) List(context.Context) ([]Reminder, error) { return nil, ErrUnsupported }

func (Unsupported) OnTap(TapHandler) Subscription { return noopSubscription{} }

type noopSubscription struct{}

func (noopSubscription) Remove() {}
