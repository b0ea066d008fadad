package server

import "context"

type contextKey struct{}

var ctxKeySubject contextKey

func contextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeySubject, subject)
}

// subjectFromContext returns the authenticated username, or "" outside the
// auth middleware.
func subjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeySubject).(string)
	return s
}
