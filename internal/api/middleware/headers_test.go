package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serveStats(mw echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(mw)
	e.GET("/api/articles/stats", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{"total": 0})
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func statsRequest(method, origin string) *http.Request {
	req := httptest.NewRequest(method, "/api/articles/stats", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	return req
}

// ==== SecureHeaders Tests ====

func TestSecureHeaders_FixedSet(t *testing.T) {
	rec := serveStats(SecureHeaders(), statsRequest(http.MethodGet, ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, kv := range responseHeaders {
		assert.Equal(t, kv[1], rec.Header().Get(kv[0]), kv[0])
	}
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecureHeaders_HSTSBehindTLSProxy(t *testing.T) {
	req := statsRequest(http.MethodGet, "")
	req.Header.Set(echo.HeaderXForwardedProto, "https")

	rec := serveStats(SecureHeaders(), req)

	assert.Equal(t, hstsValue, rec.Header().Get("Strict-Transport-Security"))
}

// ==== SecureCORS Tests ====

func TestSecureCORS_Origins(t *testing.T) {
	tests := []struct {
		name       string
		allowed    string
		production bool
		origin     string
		want       string
	}{
		{"listed origin", "http://reader.test, http://localhost:3000", false, "http://reader.test", "http://reader.test"},
		{"unlisted origin", "http://reader.test", false, "http://evil.test", ""},
		{"empty list falls back to localhost", "", false, "http://localhost:3000", "http://localhost:3000"},
		{"wildcard ignored in production", "*,http://reader.test", true, "http://evil.test", ""},
		{"explicit origin kept in production", "*,http://reader.test", true, "http://reader.test", "http://reader.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveStats(SecureCORS(tt.allowed, tt.production), statsRequest(http.MethodGet, tt.origin))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		})
	}
}

func TestSecureCORS_Preflight(t *testing.T) {
	req := statsRequest(http.MethodOptions, "http://reader.test")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodDelete)

	rec := serveStats(SecureCORS("http://reader.test", false), req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodDelete)
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}
