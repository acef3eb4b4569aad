// Package middleware provides HTTP middleware for the paperboy API.
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/paperboy/internal/logger"
)

// publicPrefixes are served without an API key
var publicPrefixes = []string{"/health", "/ready", "/metrics"}

// APIKeyAuth validates the API key from the Authorization header.
// An empty apiKey disables the check.
func APIKeyAuth(apiKey string, sec *logger.SecurityLogger) echo.MiddlewareFunc {
	if apiKey == "" && sec != nil {
		sec.GetLogger().Warn("API_KEY not set - API is UNSECURED")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()

			for _, prefix := range publicPrefixes {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			if apiKey == "" {
				return next(c)
			}

			token := bearerToken(c)
			if token == "" {
				if sec != nil {
					sec.AuthFailure(c.RealIP(), path, "missing_authorization")
				}
				return echo.NewHTTPError(401, map[string]string{
					"error": "missing authorization header",
					"code":  "UNAUTHORIZED",
				})
			}

			// Use constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				if sec != nil {
					sec.AuthFailure(c.RealIP(), path, "invalid_key")
				}
				return echo.NewHTTPError(401, map[string]string{
					"error": "invalid API key",
					"code":  "UNAUTHORIZED",
				})
			}

			return next(c)
		}
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so the token query parameter is accepted there.
func bearerToken(c echo.Context) string {
	if h := c.Request().Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if strings.EqualFold(c.Request().Header.Get("Upgrade"), "websocket") {
		return c.QueryParam("token")
	}
	return ""
}
