package middleware

import (
	"net/http"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/rs/zerolog"
)

// WithRequestLogger creates middleware that injects a request-scoped logger into the context.
// The logger carries request_id, method and path; handlers read it with zerolog.Ctx.
// This middleware should be placed after RequestID in the middleware chain.
func WithRequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := base.With().
				Str("method", r.Method).
				Str("path", r.URL.Path)
			if requestID := domain.RequestIDFromContext(r.Context()); requestID != "" {
				c = c.Str("request_id", requestID)
			}
			logger := c.Logger()

			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		})
	}
}
