package httpx

import "context"

type ctxKey string

const ctxKeyUsername ctxKey = "username"

// WithUsername records the authenticated caller so later middleware (e.g.
// per-user rate limiting) can key on it.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxKeyUsername, username)
}

// UsernameFromContext returns the authenticated username, or "" when the
// request is anonymous.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUsername).(string); ok {
		return v
	}
	return ""
}
