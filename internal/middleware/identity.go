package middleware

import "github.com/labstack/echo/v4"

// userID returns the caller placed in the context by OptionalJWT, or
// "anon" when the request carried no token.
func userID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return "anon"
}
