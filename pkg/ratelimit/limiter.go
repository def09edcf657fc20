// Package ratelimit throttles requests per client key. The in-memory
// limiter suits a single instance; the Redis limiter shares counters across
// replicas.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/anuragpardeshii/MediCare/pkg/httputil"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Close() error
}

// KeyFunc derives the rate-limit key for a request.
type KeyFunc func(*http.Request) string

// ByIP keys requests by client address, scoped by route name so separate
// endpoints do not share a budget. Forwarding headers count only when the
// connection comes from one of the trusted proxies.
func ByIP(scope string, proxies *TrustedProxies) KeyFunc {
	return func(r *http.Request) string {
		return scope + ":ip:" + proxies.ClientIP(r)
	}
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// Limiter errors fail open and are logged.
func Middleware(l Limiter, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			d, err := l.Allow(r.Context(), k)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					slog.String("key", k),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))

			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				h.Set("Retry-After", strconv.Itoa(max(secs, 1)))
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("key", k),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteErrorResponse(w, r, http.StatusTooManyRequests,
					"RATE_LIMITED", "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
