// Package httpx provides the shared HTTP plumbing: middleware chaining,
// JSON responses, security headers and rate limiting.
package httpx

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain wraps h with the given middlewares. The last middleware listed is
// the outermost wrapper and therefore runs first, so chains read
// innermost-to-outermost: Chain(h, authn, ratelimit) rate-limits before
// authenticating.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}
