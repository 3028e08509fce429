package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// statusOf reports the status echo's error handler will write for err.
func statusOf(err error, fallback int) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if fallback < 400 {
		return 500
	}
	return fallback
}
