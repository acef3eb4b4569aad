package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/paperboy/internal/logger"
)

func runAuth(t *testing.T, apiKey, path string, setup func(*http.Request)) (error, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	handler := APIKeyAuth(apiKey, nil)(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})
	return handler(c), rec
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	err, _ := runAuth(t, "test-api-key", "/api/articles", nil)

	assertUnauthorized(t, err)
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	err, _ := runAuth(t, "test-api-key", "/api/articles", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong-key")
	})

	assertUnauthorized(t, err)
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	err, rec := runAuth(t, "test-api-key", "/api/articles", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer test-api-key")
	})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_PublicEndpointsSkipAuth(t *testing.T) {
	for _, path := range []string{"/health", "/ready", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			err, rec := runAuth(t, "test-api-key", path, nil)

			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestAPIKeyAuth_QueryTokenOnlyForWebsocket(t *testing.T) {
	err, rec := runAuth(t, "test-api-key", "/ws?token=test-api-key", func(r *http.Request) {
		r.Header.Set("Upgrade", "websocket")
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	err, _ = runAuth(t, "test-api-key", "/api/articles?token=test-api-key", nil)
	assertUnauthorized(t, err)
}

func TestAPIKeyAuth_NoAPIKeyConfigured(t *testing.T) {
	err, rec := runAuth(t, "", "/api/articles", nil)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	sec := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/articles")

	handler := APIKeyAuth("test-api-key", sec)(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	assert.Error(t, handler(c))
	assert.Contains(t, buf.String(), "missing_authorization")
}
