package platform

import "errors"

// ErrUnsupported is returned by port operations on a host environment without
// local scheduled notification support.
var ErrUnsupported = errors.New("local notifications not supported on this platform")

// ErrNotFound is returned by Cancel when no pending reminder has the given ID.
var ErrNotFound = errors.New("reminder not found")
