package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestZapLogger_JSONAndSanitization(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewZapLoggerWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	ctx := logger.WithRequestID(context.Background(), "req-1")
	log.Info(ctx, "issued", logger.Fields{
		"subject":      "alice@example.com",
		"access_token": "eyJhbGciOiJSUzI1NiJ9.payload.signature",
	})
	log.Error(ctx, "failed", errors.ErrInvalidToken)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "issued", entries[0]["msg"])
	assert.Equal(t, "req-1", entries[0]["request_id"])
	assert.Equal(t, "alice@example.com", entries[0]["subject"])
	assert.Equal(t, "eyJh***ture", entries[0]["access_token"])
	assert.Contains(t, entries[0], "timestamp")
	assert.Equal(t, "Token is invalid", entries[1]["error"])
}

func TestZapLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewZapLoggerWithWriter(config.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)
	child := log.WithFields(logger.Fields{"component": "test"})

	child.Info(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, log.SetLevel("debug"))
	assert.Equal(t, "debug", log.Level())
	child.Debug(context.Background(), "shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "test", entries[0]["component"])

	err = log.SetLevel("loud")
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestNewZapLogger_InvalidLevel(t *testing.T) {
	_, err := NewZapLoggerWithWriter(config.LogConfig{Level: "chatty"}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestZapLogger_ForContext(t *testing.T) {
	log, err := NewZapLoggerWithWriter(config.LogConfig{Level: "info"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, logger.Logger(log), log.ForContext(context.Background()))

	scoped := logger.NewNoopLogger()
	assert.Equal(t, scoped, log.ForContext(logger.WithLogger(context.Background(), scoped)))
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := NewTracingManager(context.Background(), config.TracingConfig{ServiceName: "tokengate"}, logger.NewNoopLogger())
	require.NoError(t, err)

	ctx, span := tm.StartSpan(context.Background(), "op")
	span.End()
	assert.Empty(t, GetTraceID(ctx))
	assert.NoError(t, tm.Shutdown(context.Background()))
}
