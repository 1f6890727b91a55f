package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AuditEntry describes one access to anamnesis data.
type AuditEntry struct {
	RequestID  string
	Action     string // read, create, update, delete, export
	Resource   string
	PatientID  string
	Method     string
	Path       string
	IPAddress  string
	UserAgent  string
	StatusCode int
	Timestamp  time.Time
}

// pagePrefixes are the server-rendered routes that show or change a record.
var pagePrefixes = []string{"/nova-ficha", "/editar-ficha", "/visualizar-ficha"}

// Audit logs every access to patient data after the handler ran, so the
// entry carries the final status.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Action:     actionFor(req.Method, path),
				Resource:   resourceFor(path),
				PatientID:  patientIDFor(c),
				Method:     req.Method,
				Path:       path,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: responseStatus(c, err),
				Timestamp:  time.Now().UTC(),
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("paciente_id", entry.PatientID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	if strings.HasPrefix(path, "/api/v1/") {
		return true
	}
	for _, p := range pagePrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func actionFor(method, path string) string {
	if strings.HasSuffix(path, "/export") || strings.HasSuffix(path, "/pdf") {
		return "export"
	}
	switch method {
	case http.MethodPost:
		if strings.HasPrefix(path, "/editar-ficha") {
			return "update"
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

// resourceFor names the first path segment: /api/v1/patients/x -> patients,
// /visualizar-ficha -> visualizar-ficha.
func resourceFor(path string) string {
	path = strings.TrimPrefix(path, "/api/v1")
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if seg == "" {
		return "unknown"
	}
	return seg
}

// patientIDFor finds the record a request targets: the id segment of
// /api/v1/patients/<id> and /api/v1/fichas/<id>, or the id query parameter
// the pages use.
func patientIDFor(c echo.Context) string {
	path := c.Request().URL.Path
	for _, prefix := range []string{"/api/v1/patients/", "/api/v1/fichas/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			seg, _, _ := strings.Cut(rest, "/")
			if isUUID(seg) {
				return seg
			}
		}
	}
	if id := c.QueryParam("id"); isUUID(id) {
		return id
	}
	return ""
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return s != "" && err == nil
}
