package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/config"
	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/utils"
)

const secret = "test-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	e.GET("/who", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get(CtxUserID), "role": c.Get(CtxRole)})
	}, JWTAuth(secret))
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		JWTAuth(secret), RequireRole("admin"))
	return e
}

func do(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := newEcho()

	rec := do(e, "/who", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = do(e, "/who", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := utils.NewAccessToken(secret, "u-1", "student", 5)
	require.NoError(t, err)
	rec = do(e, "/who", tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u-1","role":"student"}`, rec.Body.String())

	other, err := utils.NewAccessToken("other-secret", "u-1", "student", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/who", other.Token).Code)
}

func TestRequireRole(t *testing.T) {
	e := newEcho()

	student, err := utils.NewAccessToken(secret, "u-1", "student", 5)
	require.NoError(t, err)
	rec := do(e, "/admin", student.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	admin, err := utils.NewAccessToken(secret, "a-1", "admin", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do(e, "/admin", admin.Token).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/books/b1/borrow", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/books/:id/borrow")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:10.0.0.7:user:anon:route:POST /v1/books/:id/borrow", buildRateKey(cfg, c))

	c.Set(CtxUserID, "u-9")
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:u-9", buildRateKey(cfg, c))

	assert.Equal(t, 2, retryAfterSeconds(1500))
	assert.Equal(t, 0, retryAfterSeconds(-10))
	assert.EqualValues(t, 7, asInt64("7"))
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCacheKeyIncludesResolvedPath(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "bookcore:cache", KeyStrategy: "route_query"}
	key := func(path string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath("/v1/books/:id")
		return cacheKeyFrom(cfg, c)
	}
	assert.NotEqual(t, key("/v1/books/a"), key("/v1/books/b"))
	assert.Equal(t, key("/v1/books/a?x=1"), key("/v1/books/a?x=1"))
	assert.Contains(t, key("/v1/books/a"), "bookcore:cache:")
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/", h,
		NewRedisCache(config.CacheConfig{}, nil),
		NewTokenBucket(config.RateLimitConfig{}, nil),
		InvalidateCache(config.CacheConfig{}, nil),
		RequestLogger(logging.Discard()),
	)
	rec := do(e, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestLevel(t *testing.T) {
	assert.Equal(t, "ERROR", requestLevel(500, nil).String())
	assert.Equal(t, "WARN", requestLevel(404, nil).String())
	assert.Equal(t, "INFO", requestLevel(200, nil).String())
}
