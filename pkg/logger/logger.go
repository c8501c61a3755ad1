// Package logger provides the structured logging contract of the tokengate service.
// Backends (zap in production) live in internal/infrastructure/monitoring.
package logger

import (
	"context"
	"strings"
)

// ================================================================================
// Logger Interface
// ================================================================================

// Fields is a set of key-value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger defines the interface for structured logging.
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, msg string, fields ...Fields)

	// Info logs an informational message
	Info(ctx context.Context, msg string, fields ...Fields)

	// Warn logs a warning message
	Warn(ctx context.Context, msg string, fields ...Fields)

	// Error logs an error message
	Error(ctx context.Context, msg string, err error, fields ...Fields)

	// Fatal logs a fatal message and exits the application
	Fatal(ctx context.Context, msg string, err error, fields ...Fields)

	// WithFields creates a new logger with additional fields
	WithFields(fields Fields) Logger

	// ForContext returns the logger stored in ctx, or the receiver
	ForContext(ctx context.Context) Logger
}

// ================================================================================
// Context propagation
// ================================================================================

type loggerContextKey struct{}

// WithLogger stores l in ctx so that ForContext can retrieve a request-scoped logger.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext returns the logger stored in ctx, if any.
func FromContext(ctx context.Context) (Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(loggerContextKey{}).(Logger)
	return l, ok
}

type requestIDContextKey struct{}

// WithRequestID stores the request correlation ID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the request correlation ID stored in ctx.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// ================================================================================
// Sanitization
// ================================================================================

var sensitiveSubstrings = []string{
	"password",
	"secret",
	"authorization",
	"private_key",
}

var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"bearer":        {},
}

// SanitizeValue masks values whose key names credential material.
func SanitizeValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	_, sensitive := sensitiveKeys[keyLower]
	if !sensitive {
		for _, s := range sensitiveSubstrings {
			if strings.Contains(keyLower, s) {
				sensitive = true
				break
			}
		}
	}
	if !sensitive {
		return value
	}
	if str, ok := value.(string); ok && len(str) > 0 {
		return maskString(str)
	}
	return "***REDACTED***"
}

// maskString partially masks a string value
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}
