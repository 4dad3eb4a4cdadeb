// Package api holds the authenticated JSON endpoints for subscriptions and
// deliveries.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/go-playground/validator/v10"
)

// dateLayout is the calendar date format accepted in request bodies.
const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest reads a JSON body into dst and validates it.
func decodeRequest(r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Errorf(domain.EINVALID, op, "Request body is required")
		}
		return domain.WrapError(err, domain.EINVALID, op, "Request body is not valid JSON")
	}
	return validateRequest(op, dst)
}

func validateRequest(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.WrapError(err, domain.EINVALID, op, "Invalid request")
	}

	var out error
	for _, fe := range verrs {
		msg := fieldMessage(fe)
		if out == nil {
			out = domain.NewValidationError(op, fe.Field(), msg)
			continue
		}
		out = domain.AddFieldError(out, fe.Field(), msg)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "min", "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte", "lt":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// requireIdentity returns the authenticated caller or an EUNAUTHORIZED error.
func requireIdentity(r *http.Request, op string) (*domain.Identity, error) {
	id := domain.IdentityFromContext(r.Context())
	if id == nil {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	return id, nil
}

// parseDate parses a calendar date in loc.
func parseDate(op, field, value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(op, field, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
	}
	return t, nil
}
