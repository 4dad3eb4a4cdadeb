// Package middleware holds the HTTP middleware: request ids, request-scoped
// logging, bearer authentication, metrics, body limits and rate limiting.
package middleware

import (
	"net/http"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/handler"
)

// respondUnauthorized is a convenience wrapper for 401 errors.
func respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "%s", message))
}

// respondTooManyRequests is a convenience wrapper for 429 errors.
func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	handler.ErrorResponse(w, r, domain.Errorf(domain.ERATELIMIT, "", "Too many requests"))
}

// respondTooLarge is a convenience wrapper for 413 errors.
func respondTooLarge(w http.ResponseWriter, r *http.Request) {
	handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "", "Request body too large"))
}
