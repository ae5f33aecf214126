package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kmdouglass/kpal/pkg/logger"
)

type contextKey int

const requestIDKey contextKey = 0

// requestID middleware stamps every inbound request with a correlation ID,
// echoed back in the X-Request-Id header and threaded through the request
// context so handler-side logging can tie a log line back to its request.
func requestID(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)

			ctx := context.WithValue(r.Context(), requestIDKey, id)
			l.Debug("request", "request_id", id, "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestIDFromContext returns the correlation ID stamped by requestID, or
// "" if the request never passed through that middleware.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
