// Package handler holds the HTTP handlers and the shared error and JSON
// response helpers they use.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/rs/zerolog"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	case domain.EUPSTREAM:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse writes err as an HTTP error. Internal errors are logged with
// full detail and answered with a generic message. Validation errors are
// written with their field messages.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeValidationError(w, r, verr)
		return
	}

	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	message := domain.ErrorMessage(err)

	log := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("code", code).
			Str("op", domain.ErrorOp(err)).
			Int("status", status).
			Msg("request failed")
	} else {
		log.Debug().Err(err).Str("code", code).Int("status", status).Msg("request rejected")
	}

	if code == domain.EINTERNAL {
		message = domain.InternalMessage
	}

	writeError(w, r, status, errorDetail{Code: code, Message: message})
}

// ValidationErrorResponse writes field-level validation errors. Other errors
// fall back to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, err)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, verr *domain.ValidationError) {
	message := "Validation failed"
	if len(verr.Fields) == 1 {
		for _, msg := range verr.Fields {
			message = msg
		}
	}
	zerolog.Ctx(r.Context()).Debug().Err(verr).Msg("request failed validation")
	writeError(w, r, http.StatusBadRequest, errorDetail{
		Code:    domain.EINVALID,
		Message: message,
		Fields:  verr.Fields,
	})
}

// NotFoundResponse writes a 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "Not found"))
}

// UnauthorizedResponse writes a 401.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Authentication required"))
}

// ForbiddenResponse writes a 403.
func ForbiddenResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EFORBIDDEN, "", "Access denied"))
}

// InternalErrorResponse writes a 500 and logs err.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "internal error"))
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail errorDetail) {
	if !acceptsJSON(r) {
		http.Error(w, detail.Message, status)
		return
	}
	WriteJSON(w, status, errorBody{Error: detail})
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// acceptsJSON reports whether the client should get a JSON body. Every
// route under /api/, /webhooks/ and /internal/ speaks JSON.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	path := r.URL.Path
	if strings.HasSuffix(path, ".json") {
		return true
	}
	for _, prefix := range []string{"/api/", "/webhooks/", "/internal/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
