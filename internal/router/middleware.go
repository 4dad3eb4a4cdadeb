package router

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dukerupert/roastbox/internal/handler"
	"github.com/rs/zerolog"
)

// Logger logs HTTP requests with method, path, status, and duration. It
// prefers the request-scoped logger in the context and falls back to logger.
func Logger(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			level := zerolog.InfoLevel
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				level = zerolog.ErrorLevel
			case wrapped.statusCode >= http.StatusBadRequest:
				level = zerolog.WarnLevel
			}
			requestLogger(r, logger).WithLevel(level).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Recovery recovers from panics, logs them with the stack and answers 500.
func Recovery(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log := requestLogger(r, logger)
					log.Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					handler.InternalErrorResponse(w, r, nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(r *http.Request, fallback zerolog.Logger) *zerolog.Logger {
	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		return &fallback
	}
	return log
}
