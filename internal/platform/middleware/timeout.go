package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on each request context and answers 504
// once it passes. Paths ending in one of the exempt suffixes keep the
// caller's context; the PDF export routes are registered that way because
// rasterizing a long record can outlast the regular budget.
func RequestTimeout(timeout time.Duration, exemptSuffixes ...string) echo.MiddlewareFunc {
	exempt := func(path string) bool {
		for _, suffix := range exemptSuffixes {
			if strings.HasSuffix(path, suffix) {
				return true
			}
		}
		return false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if exempt(c.Request().URL.Path) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() { done <- next(c) }()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ctx.Err()
				}
				if c.Response().Committed {
					return nil
				}
				return c.JSON(http.StatusGatewayTimeout, map[string]string{
					"error": "a requisição excedeu o tempo limite",
				})
			}
		}
	}
}
