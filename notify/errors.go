package notify

import "errors"

// Classification values for schedule failures. Every public operation is
// fail-soft: these are returned (never panicked) alongside the empty sentinel
// and logged at the point of capture, so callers may inspect or ignore them.
var (
	// ErrInvalidInput: the task is missing its identity, title, date, or
	// time, or the combined date+time does not parse.
	ErrInvalidInput = errors.New("invalid task input")

	// ErrPermissionDenied: the user declined or revoked notification consent.
	ErrPermissionDenied = errors.New("notification permission not granted")

	// ErrTooSoon: the due instant is not beyond the guard interval. A policy
	// outcome, not a fault.
	ErrTooSoon = errors.New("due instant inside guard interval")

	// ErrPlatform wraps a scheduling port failure.
	ErrPlatform = errors.New("platform scheduling failure")
)
