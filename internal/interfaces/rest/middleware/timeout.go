package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the time a client waits. Processors detach from the request
// context, so an operation already routed still completes and is recorded.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		timeoutHandler := http.TimeoutHandler(
			next,
			timeout,
			`{"success":false,"error":{"code":"TIMEOUT","message":"Request timeout"}}`,
		)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			timeoutHandler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
