package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter applies a sliding-window limit per client IP. It exists to
// slow resume-code guessing; a window of timestamps per key avoids the
// boundary burst a fixed window would allow.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the
// limit. Denied attempts are not recorded, so a client that backs off
// recovers after one window.
func (l *RateLimiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.windows[key][:0]
	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.windows[key] = kept
		return false, kept[0].Add(l.window).Sub(now)
	}
	l.windows[key] = append(kept, now)
	return true, 0
}

// Limit wraps a handler with the limiter, keyed by client IP. Over-limit
// requests get 429 with a Retry-After hint.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetClientInfo(r.Context()).IP
		if key == "" {
			key = r.RemoteAddr
		}
		allowed, retryAfter := l.Allow(key)
		if !allowed {
			seconds := int(retryAfter/time.Second) + 1
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": "rate_limited", "error_description": "too many attempts, retry later"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
