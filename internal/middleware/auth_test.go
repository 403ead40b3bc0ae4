package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubhmrj/Sellium/pkg/config"
	"github.com/shubhmrj/Sellium/pkg/jwtutil"
	"github.com/shubhmrj/Sellium/prometheus"
)

var setupOnce sync.Once

// Counters are package globals, register them once for the whole test run
func setup(t *testing.T) {
	t.Helper()
	setupOnce.Do(func() {
		prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "marketplace_test"}})
		jwtutil.Initialize(&config.JWTConfig{SigningKey: "middleware_test_key", ExpirationTime: time.Hour})
	})
}

func invoke(middleware echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := middleware(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)
	return rec
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	setup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := invoke(AuthMiddleware, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "No token, authorization denied")
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	setup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := invoke(AuthMiddleware, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	setup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer not.a.valid.token")
	rec := invoke(AuthMiddleware, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token is not valid")
}

func TestExtractToken(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "abc123", extractToken(c))

	// Cookie fallback
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "cookie456"})
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "cookie456", extractToken(c))

	// Header wins over cookie, and a malformed header does not fall back
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "garbage")
	req.AddCookie(&http.Cookie{Name: "token", Value: "cookie456"})
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "", extractToken(c))
}

func TestAuthorize(t *testing.T) {
	setup(t)
	e := echo.New()

	call := func(role interface{}, allowed ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set("user_role", role)
		}
		handler := Authorize(allowed...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, handler(c))
		return rec
	}

	assert.Equal(t, http.StatusOK, call("admin", "admin").Code)
	assert.Equal(t, http.StatusOK, call("supplier", "supplier", "admin").Code)

	rec := call("buyer", "supplier", "admin")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied. Required role: supplier or admin")

	assert.Equal(t, http.StatusUnauthorized, call(nil, "admin").Code)
}
