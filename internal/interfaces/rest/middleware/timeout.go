package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the handler and cancels the request context when the
// budget runs out. http.TimeoutHandler answers 503 with the JSON body
// below if the handler has not written by then.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			timeoutHandler := http.TimeoutHandler(
				next,
				timeout,
				`{"status":"503","message":"Request timed out"}`,
			)

			timeoutHandler.ServeHTTP(w, r)
		})
	}
}
