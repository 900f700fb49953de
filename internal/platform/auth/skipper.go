package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPatterns lists the paths reachable without a bearer token: health
// checks and the token endpoints.
var publicPatterns = []string{
	"/health",
	"/health/db",
	"/auth/**",
}

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Request().URL.Path)
}

// IsPublicPath reports whether path bypasses authentication.
func IsPublicPath(path string) bool {
	for _, p := range publicPatterns {
		if MatchPath(p, path) {
			return true
		}
	}
	return false
}
