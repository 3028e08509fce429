package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication and account resolution.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// AuthSkipper matches on the route path, so it must run after routing (as a
// Use middleware, not Pre).
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
