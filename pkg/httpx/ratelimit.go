package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/swiftmeds/authcore/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is the ceiling for one endpoint class: Requests admitted
// per Window. Values come from the application config so tests can construct
// tiny ceilings.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimitStore is an admission counter shared by all endpoint classes.
// Keys already include the class name, so one store instance serves the
// whole process. Allow reports whether the request under key is admitted
// and, when it is not, how long the client should wait before retrying.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, cfg RateLimitConfig) (allowed bool, retryAfter time.Duration, err error)
}

// KeyExtractor derives the client identity a request is counted under.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the client address, honouring X-Forwarded-For and
// X-Real-IP for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserKeyExtractor keys on the authenticated username, falling back to the
// client address for anonymous requests.
func UserKeyExtractor(r *http.Request) string {
	if u := UsernameFromContext(r.Context()); u != "" {
		return u
	}
	return IPKeyExtractor(r)
}

// RateLimit gates requests for one endpoint class before any handler work
// runs. Exceeding the ceiling yields 429 with a Retry-After header and no
// side effects. If the store itself fails the request is admitted and the
// failure logged; availability wins over precision here.
func RateLimit(class string, cfg RateLimitConfig, store RateLimitStore, key KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			k := key(r)
			if k == "" {
				log.Warn("rate limit: no key for request, allowing", "class", class)
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter, err := store.Allow(ctx, class+":"+k, cfg)
			if err != nil {
				log.Warn("rate limit store unavailable, allowing", "class", class, "err", err)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				secs := max(int(retryAfter.Seconds()), 1)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.Requests))
				log.Warn("rate limit exceeded", "class", class, "key", k)
				Error(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LocalRateLimitStore counts in-process with a token bucket per key. Burst
// equals the ceiling so a full window's worth of requests may arrive at
// once; the steady-state admitted rate never exceeds Requests per Window.
// Counters are lost on restart.
type LocalRateLimitStore struct {
	limiters sync.Map // map[string]*rate.Limiter

	mu          sync.Mutex
	lastCleanup time.Time
}

func NewLocalRateLimitStore() *LocalRateLimitStore {
	return &LocalRateLimitStore{lastCleanup: time.Now()}
}

func (s *LocalRateLimitStore) Allow(_ context.Context, key string, cfg RateLimitConfig) (bool, time.Duration, error) {
	lim := s.limiter(key, cfg)
	if lim.Allow() {
		return true, 0, nil
	}

	// Peek at when the next token arrives without consuming it.
	res := lim.Reserve()
	delay := res.Delay()
	res.Cancel()
	return false, delay, nil
}

func (s *LocalRateLimitStore) limiter(key string, cfg RateLimitConfig) *rate.Limiter {
	if lim, ok := s.limiters.Load(key); ok {
		return lim.(*rate.Limiter)
	}

	perSecond := float64(cfg.Requests) / cfg.Window.Seconds()
	lim := rate.NewLimiter(rate.Limit(perSecond), cfg.Requests)
	actual, _ := s.limiters.LoadOrStore(key, lim)

	s.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets have refilled completely; an
// idle limiter is indistinguishable from a new one, so removal is safe.
func (s *LocalRateLimitStore) maybeCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = time.Now()

	s.limiters.Range(func(key, value any) bool {
		lim := value.(*rate.Limiter)
		if lim.Tokens() >= float64(lim.Burst()) {
			s.limiters.Delete(key)
		}
		return true
	})
}
