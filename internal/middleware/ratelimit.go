package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const visitorTTL = 3 * time.Minute

// RateLimiter is a per-IP token bucket. The client address comes from
// RemoteAddr, so chi's RealIP must run first when behind a proxy. Visitors
// idle for longer than the TTL are forgotten by the cache janitor.
type RateLimiter struct {
	mu       sync.Mutex
	visitors *gocache.Cache
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute requests per IP with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return newRateLimiter(perMinute, burst, visitorTTL)
}

func newRateLimiter(perMinute, burst int, ttl time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: gocache.New(ttl, time.Minute),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := rl.visitors.Get(ip); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
	}
	// Every hit pushes the expiry back.
	rl.visitors.SetDefault(ip, limiter)
	rl.mu.Unlock()

	return limiter.Allow()
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
