package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clim-up/wikaya/internal/platform/auth"
)

// AuditEntry records who touched which health record and how.
type AuditEntry struct {
	AccountID  string
	Resource   string
	RecordID   string
	Action     string
	Method     string
	Path       string
	IPAddress  string
	UserAgent  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries in addition to the log line.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

const apiPrefix = "/api/"

// OutsideAPI reports whether the request path is outside /api/, such as the
// health and metrics endpoints.
func OutsideAPI(c echo.Context) bool {
	return !strings.HasPrefix(c.Request().URL.Path, apiPrefix)
}

// Audit logs a phi_access event for every /api/ request after the handler
// has run.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if OutsideAPI(c) {
				return next(c)
			}
			req := c.Request()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err, status)
			}
			entry := AuditEntry{
				Resource:   resourceOf(req.URL.Path),
				RecordID:   c.Param("id"),
				Action:     actionOf(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				RequestID:  RequestIDFrom(c),
				StatusCode: status,
				Timestamp:  time.Now().UTC(),
			}
			if id := auth.AccountIDFromContext(req.Context()); id != uuid.Nil {
				entry.AccountID = id.String()
			}

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("account_id", entry.AccountID).
				Str("resource", entry.Resource).
				Str("record_id", entry.RecordID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

func actionOf(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPatch, http.MethodPut:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceOf returns the collection name: /api/files/allergies/<id> ->
// allergies, /api/account -> account.
func resourceOf(path string) string {
	rest := strings.TrimPrefix(path, apiPrefix)
	rest = strings.TrimPrefix(rest, "files/")
	seg, _, _ := strings.Cut(rest, "/")
	if seg == "" {
		return "unknown"
	}
	return seg
}
