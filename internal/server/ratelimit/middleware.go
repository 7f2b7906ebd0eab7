package ratelimit

import (
	"net/http"

	"github.com/Eyad010/postfeed/internal/logging"
)

// Middleware rejects requests over the limit by calling onLimited. Limiter
// errors are logged and the request is let through.
func Middleware(l Limiter, scope string, log logging.Logger, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + ClientIP(r)

			allowed, err := l.Allow(r.Context(), key)
			if err != nil {
				log.Error(r.Context(), "rate limit check failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				onLimited(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
