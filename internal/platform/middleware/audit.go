package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtrace/medtrace/internal/platform/auth"
)

// AuditEntry captures who touched which custody record, when, from where,
// and what they did to it.
type AuditEntry struct {
	ActorID    string
	ActorRole  string
	EntityID   string
	Resource   string
	ResourceID string
	Action     string // read, create, update, delete, confirm
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries. The middleware falls back to
// structured logging when no recorder is provided, so tests can supply a
// mock implementation.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns Echo middleware that records every access under /api/v1/:
// the resolved actor, the resource touched, and the outcome. Chain-of-custody
// records are regulatory evidence, so reads are logged alongside mutations.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			// Execute the handler first so we capture the response status
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}

			if actor, ok := auth.ActorFromContext(req.Context()); ok {
				entry.ActorID = actor.ID
				entry.ActorRole = string(actor.Role)
				if actor.EntityID != nil {
					entry.EntityID = actor.EntityID.String()
				}
			}

			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			entry.Action = httpMethodToAction(req.Method, path)
			entry.Resource, entry.ResourceID = extractResource(path)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			// Always emit a structured log for the audit trail. Denied
			// requests are the interesting ones.
			evt := logger.Info()
			if entry.StatusCode == http.StatusForbidden || entry.StatusCode == http.StatusUnauthorized {
				evt = logger.Warn()
			}
			evt.
				Str("type", "custody_audit").
				Str("request_id", entry.RequestID).
				Str("actor_id", entry.ActorID).
				Str("actor_role", entry.ActorRole).
				Str("entity_id", entry.EntityID).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("custody_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}

// httpMethodToAction maps HTTP methods to audit action codes. A POST to a
// /confirm sub-path is a receipt confirmation, not a creation.
func httpMethodToAction(method, path string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		if strings.HasSuffix(path, "/confirm") {
			return "confirm"
		}
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource parses the resource name and identifier from an API path.
//
// Supported patterns:
//   - /api/v1/lots                          -> lots, ""
//   - /api/v1/lots/<id>                     -> lots, <id>
//   - /api/v1/movements/<kind>              -> movements/<kind>, ""
//   - /api/v1/movements/<kind>/<id>/confirm -> movements/<kind>, <id>
func extractResource(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/api/v1/")
	segments := strings.Split(trimmed, "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}

	if segments[0] == "movements" && len(segments) > 1 {
		resource := "movements/" + segments[1]
		if len(segments) > 2 {
			return resource, segments[2]
		}
		return resource, ""
	}

	if len(segments) > 1 && segments[1] != "" {
		return segments[0], segments[1]
	}
	return segments[0], ""
}
