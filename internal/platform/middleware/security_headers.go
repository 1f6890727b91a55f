package middleware

import (
	"github.com/labstack/echo/v4"
)

// PageCSP allows the server-rendered pages their inline styles and remote
// logo images while still refusing scripts and framing.
const PageCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; script-src 'none'; frame-ancestors 'none'"

// securityHeaders are set on every response: pages, JSON and PDF downloads.
// Anamnesis data is never cached.
var securityHeaders = [][2]string{
	{"Content-Security-Policy", PageCSP},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	{"Cache-Control", "no-store"},
}

func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
