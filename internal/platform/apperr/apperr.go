// Package apperr defines the application error taxonomy shared by the
// repositories, services and handlers, and its mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

// Kind classifies an error for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// NonFieldErrors is the key used for validation messages that are not tied
// to a single input field.
const NonFieldErrors = "non_field_errors"

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string][]string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msg = fmt.Sprintf("%s: %s %v", msg, keys[0], e.Fields[keys[0]])
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind, so callers can test against the
// sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound   = &Error{Kind: KindNotFound, Code: "REC_404", Message: "not found"}
	ErrValidation = &Error{Kind: KindValidation, Code: "REC_400", Message: "invalid input"}
	ErrConflict   = &Error{Kind: KindConflict, Code: "REC_409", Message: "already exists"}
	ErrUpstream   = &Error{Kind: KindUpstream, Code: "UPS_500", Message: "upstream service error"}
)

// NotFound wraps cause as a not-found error.
func NotFound(cause error) *Error {
	return &Error{Kind: KindNotFound, Code: ErrNotFound.Code, Message: ErrNotFound.Message, Cause: cause}
}

// Conflict reports a uniqueness violation.
func Conflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Code: ErrConflict.Code, Message: message, Cause: cause}
}

// Upstream reports a failure of an external collaborator.
func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Code: ErrUpstream.Code, Message: message, Cause: cause}
}

// Invalid builds a validation error for a single field.
func Invalid(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    ErrValidation.Code,
		Message: ErrValidation.Message,
		Fields:  map[string][]string{field: {message}},
	}
}

// FieldErrors accumulates field-level validation messages.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Err returns nil when no message was recorded.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{
		Kind:    KindValidation,
		Code:    ErrValidation.Code,
		Message: ErrValidation.Message,
		Fields:  map[string][]string(f),
	}
}

// HTTP converts err into an echo HTTP error carrying the response body.
func HTTP(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var ae *Error
	if !errors.As(err, &ae) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	switch ae.Kind {
	case KindValidation:
		fields := ae.Fields
		if len(fields) == 0 {
			fields = map[string][]string{NonFieldErrors: {ae.Message}}
		}
		return echo.NewHTTPError(http.StatusBadRequest, fields).SetInternal(err)
	case KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, ae.Message).SetInternal(err)
	case KindConflict:
		return echo.NewHTTPError(http.StatusConflict, ae.Message).SetInternal(err)
	case KindUpstream:
		msg := ae.Message
		if ae.Cause != nil {
			msg = ae.Cause.Error()
		}
		return echo.NewHTTPError(http.StatusInternalServerError, map[string]string{"error": msg}).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
