package middleware

import "github.com/labstack/echo/v4"

// identity returns the authenticated user id or "anon".  The rate limiter
// keys on it, so it must never be empty.
func identity(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
