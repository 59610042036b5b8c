package middleware

// identity.go defines helper functions shared across middleware files.
// The rate limiter keys its buckets per user, so it needs a
// best-effort identity even on routes where JWTAuth has not run.

import (
	"github.com/labstack/echo/v4"
)

// currentUserID extracts the authenticated user's id from the context.
// It returns "anon" when the request carries no verified identity.
func currentUserID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return "anon"
}
