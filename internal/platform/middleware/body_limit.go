package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	defaultBodyLimit = 1 << 20
	msgBodyTooLarge  = "corpo da requisição muito grande"
)

// BodyLimit returns middleware that caps the request body. The limit is a
// human-readable size: "1M", "512K", "1G" or a bare byte count.
//
// A declared Content-Length over the limit is answered with 413 before the
// handler runs; an undeclared body fails with 413 when reading crosses it.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > maxBytes {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
					"error": fmt.Sprintf("%s: limite de %d bytes", msgBodyTooLarge, maxBytes),
				})
			}
			req.Body = cappedBody{http.MaxBytesReader(c.Response(), req.Body, maxBytes)}
			return next(c)
		}
	}
}

// cappedBody turns the MaxBytesReader overflow into a 413 for echo's error
// handler.
type cappedBody struct {
	io.ReadCloser
}

func (b cappedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return n, echo.NewHTTPError(http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	}
	return n, err
}

var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"GB", 1 << 30}, {"G", 1 << 30},
	{"MB", 1 << 20}, {"M", 1 << 20},
	{"KB", 1 << 10}, {"K", 1 << 10},
	{"B", 1},
}

// parseLimit parses "1M", "512K", "10GB" or "1024" into bytes. Anything
// unparseable falls back to 1 MB.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s, mult = strings.TrimSuffix(s, u.suffix), u.mult
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n * mult
}
