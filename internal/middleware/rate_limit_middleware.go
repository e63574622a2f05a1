package middleware

import (
	"net"
	"net/http"
	"strconv"

	"eco_gateway/internal/ratelimit"
	"eco_gateway/internal/utils"
)

// KeyFunc picks the rate-limit bucket for a request
type KeyFunc func(r *http.Request) string

// CallerKey buckets by authenticated API key, falling back to the client IP
func CallerKey(r *http.Request) string {
	if rec, ok := GetAPIKeyRecord(r.Context()); ok {
		return "key:" + rec.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimitMiddleware allows limitPerMinute requests per key. Limiter errors
// fail open.
func RateLimitMiddleware(limiter ratelimit.Limiter, limitPerMinute int, keyFunc KeyFunc) func(http.Handler) http.Handler {
	logger := utils.NewLogger("rate-limit")
	if keyFunc == nil {
		keyFunc = CallerKey
	}

	return func(next http.Handler) http.Handler {
		if limitPerMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			allowed, remaining, resetAt, err := limiter.AllowWithDetails(r.Context(), key, limitPerMinute)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limitPerMinute))
			if remaining >= 0 {
				h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}
			if !resetAt.IsZero() {
				h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			}

			if !allowed {
				utils.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
