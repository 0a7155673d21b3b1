package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/platform/reqctx"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/server/apierror"
)

// limiterIdle is how long a client's limiter may go unused before it is dropped.
const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-client-IP request budget on credential-bearing endpoints.
// Safe for concurrent use.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	perMinute int
	now       func() time.Time
}

// NewRateLimiter returns a limiter allowing perMinute requests per client IP with a burst of
// perMinute. perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*clientLimiter), perMinute: perMinute, now: time.Now}
}

// Allow reports whether a request from key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil || rl.perMinute <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.perMinute)/60, rl.perMinute)}
		rl.limiters[key] = cl
		if len(rl.limiters)%256 == 0 {
			rl.evictLocked(now)
		}
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) evictLocked(now time.Time) {
	for k, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > limiterIdle {
			delete(rl.limiters, k)
		}
	}
}

// Middleware rejects requests over budget with 429 RATE_LIMIT_EXCEEDED. Requests are keyed on the
// IP stored by Client, or on the peer address when Client did not run; request headers alone never
// pick the key.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := reqctx.Client(r.Context()).IP
		if key == "" {
			key = (*ProxyTrust)(nil).ClientIP(r)
		}
		if !rl.Allow(key) {
			apierror.Write(w, http.StatusTooManyRequests, apierror.CodeRateLimited, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
