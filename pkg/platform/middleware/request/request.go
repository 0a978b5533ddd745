// Package request provides middleware that seeds request-scoped values.
// All operations within a single HTTP request share the same request id and
// "now", so audit entries and domain timestamps written by one call agree.
package request

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"certflow/pkg/requestcontext"
)

// Context copies chi's request id (see middleware.RequestID) and the request
// start time into requestcontext.
func Context(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Context with an injectable clock.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now())
			if reqID := middleware.GetReqID(ctx); reqID != "" {
				ctx = requestcontext.WithRequestID(ctx, reqID)
				w.Header().Set(middleware.RequestIDHeader, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
