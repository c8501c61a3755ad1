package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/tokengate/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenTTL())
	assert.Equal(t, "keys/local-only", cfg.Keys.Dir)
	assert.Equal(t, 5*time.Second, cfg.Keys.LockTimeout)
	assert.Equal(t, DefaultPublicPaths, cfg.Security.PublicPaths)
	assert.Equal(t, DefaultDisposableEmailDomains, cfg.Security.DisposableEmailDomains)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
jwt:
  access_token_expiration: 60000
  refresh_token_expiration: 120000
  issuer: tokengate-test
keys:
  dir: /var/lib/tokengate/keys
security:
  public_paths:
    - /api/v1/auth/login
    - /docs/**
  disposable_email_domains:
    - trashmail.net
rate_limit:
  enabled: true
  limit: 3
  window: 30s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.JWT.AccessTokenTTL())
	assert.Equal(t, 2*time.Minute, cfg.JWT.RefreshTokenTTL())
	assert.Equal(t, "tokengate-test", cfg.JWT.Issuer)
	assert.Equal(t, "/var/lib/tokengate/keys", cfg.Keys.Dir)
	assert.Equal(t, []string{"/api/v1/auth/login", "/docs/**"}, cfg.Security.PublicPaths)
	assert.Equal(t, []string{"trashmail.net"}, cfg.Security.DisposableEmailDomains)
	assert.Equal(t, 3, cfg.RateLimit.Limit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "jwt:\n  access_token_expiration: 60000\n")
	t.Setenv("TOKENGATE_JWT_ACCESS_TOKEN_EXPIRATION", "1000")
	t.Setenv("TOKENGATE_KEYS_DIR", "/tmp/keys")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.JWT.AccessTokenTTL())
	assert.Equal(t, "/tmp/keys", cfg.Keys.Dir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non positive access ttl", "jwt:\n  access_token_expiration: 0\n"},
		{"non positive refresh ttl", "jwt:\n  refresh_token_expiration: -5\n"},
		{"unsupported driver", "database:\n  driver: oracle\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"rate limit without window", "rate_limit:\n  enabled: true\n  window: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}
