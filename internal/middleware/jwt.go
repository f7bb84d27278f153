package middleware // reusable HTTP middleware for the table API

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// OptionalJWT returns middleware that resolves the caller from a Bearer
// HS256 token when one is sent.  The token's "sub" claim is stored in the
// context under "user_id", where handlers prefer it over any user named
// in the body.  Requests without an Authorization header pass through
// untouched; a header carrying an invalid token is rejected with 401.
// An empty secret disables the middleware.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	if secret == "" {
		return passthrough
	}
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "malformed authorization header")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Only HMAC signatures are accepted.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return unauthorized(c, "invalid token")
			}
			sub, err := tok.Claims.GetSubject()
			if err != nil || sub == "" {
				return unauthorized(c, "token has no subject")
			}
			c.Set("user_id", sub)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"ok": false, "reason": "unauthorized", "message": message})
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error { return next(c) }
}
