package logger

import (
	"context"
	"log/slog"
	"time"
)

// SecurityLogger records rejected or suspicious requests at warn level.
// Credentials never reach the log.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger wraps base. A nil base uses slog.Default.
func NewSecurityLogger(base *slog.Logger) *SecurityLogger {
	if base == nil {
		base = slog.Default()
	}
	return &SecurityLogger{logger: base.With("component", "security")}
}

// NewSecurityLoggerWithHandler builds a SecurityLogger over handler
func NewSecurityLoggerWithHandler(handler slog.Handler) *SecurityLogger {
	return &SecurityLogger{logger: slog.New(handler)}
}

func (s *SecurityLogger) emit(msg, event, ip string, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event_type", event),
		slog.String("ip", ip),
		slog.Time("timestamp", time.Now().UTC()),
	}
	s.logger.LogAttrs(context.Background(), slog.LevelWarn, msg, append(base, attrs...)...)
}

// AuthFailure records a rejected API key. reason names the failure, never
// the key itself.
func (s *SecurityLogger) AuthFailure(ip, path, reason string) {
	s.emit("authentication_failure", "auth_failure", ip,
		slog.String("path", path), slog.String("reason", reason))
}

// RateLimitExceeded records a request refused by the per-IP limiter
func (s *SecurityLogger) RateLimitExceeded(ip, path string) {
	s.emit("rate_limit_exceeded", "rate_limit", ip, slog.String("path", path))
}

// InvalidOrigin records a websocket upgrade refused for its Origin header
func (s *SecurityLogger) InvalidOrigin(ip, origin string) {
	s.emit("invalid_origin", "invalid_origin", ip, slog.String("origin", origin))
}

// OversizedPayload records an email or request body over limit bytes
func (s *SecurityLogger) OversizedPayload(ip, path string, limit int64) {
	s.emit("oversized_payload", "oversized_payload", ip,
		slog.String("path", path), slog.Int64("limit_bytes", limit))
}

// SecurityEvent records any other event. Detail keys that look like
// credentials are dropped.
func (s *SecurityLogger) SecurityEvent(eventType, ip string, details map[string]string) {
	attrs := make([]slog.Attr, 0, len(details))
	for k, v := range details {
		if isSensitiveKey(k) {
			continue
		}
		attrs = append(attrs, slog.String(k, v))
	}
	s.emit("security_event", eventType, ip, attrs...)
}

// GetLogger returns the underlying logger
func (s *SecurityLogger) GetLogger() *slog.Logger {
	return s.logger
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"api_key":       true,
	"apikey":        true,
	"token":         true,
	"secret":        true,
	"authorization": true,
	"auth":          true,
	"credential":    true,
	"credentials":   true,
	"session":       true,
	"cookie":        true,
}

func isSensitiveKey(key string) bool {
	return sensitiveKeys[key]
}
