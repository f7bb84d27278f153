package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/club-table-reservation/internal/config"
)

func whoami(c echo.Context) error {
	return c.String(http.StatusOK, userID(c))
}

func get(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + s
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, OptionalJWT("s3cret"))

	t.Run("no header", func(t *testing.T) {
		rec := get(e, "/me", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "anon", rec.Body.String())
	})
	t.Run("valid token", func(t *testing.T) {
		tok := sign(t, "s3cret", jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(time.Hour).Unix()})
		rec := get(e, "/me", tok)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", rec.Body.String())
	})
	t.Run("wrong secret", func(t *testing.T) {
		rec := get(e, "/me", sign(t, "other", jwt.MapClaims{"sub": "alice"}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"reason":"unauthorized"`)
	})
	t.Run("expired", func(t *testing.T) {
		tok := sign(t, "s3cret", jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(-time.Hour).Unix()})
		assert.Equal(t, http.StatusUnauthorized, get(e, "/me", tok).Code)
	})
	t.Run("not bearer", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(e, "/me", "Basic Zm9vOmJhcg==").Code)
	})
}

func TestOptionalJWTDisabled(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, OptionalJWT(""))
	rec := get(e, "/me", "Bearer garbage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anon", rec.Body.String())
}

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.GET("/limited", whoami, NewTokenBucket(cfg, rdb, nil))

	assert.Equal(t, http.StatusOK, get(e, "/limited", "").Code)
	rec := get(e, "/limited", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = get(e, "/limited", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"rate_limited"`)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.GET("/limited", whoami, NewTokenBucket(cfg, rdb, nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(e, "/limited", "").Code)
	}
}
