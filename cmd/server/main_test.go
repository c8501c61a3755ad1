package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/internal/infrastructure/monitoring"
	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
)

func TestRun_HalfPresentKeyPairReturnsKeyLoad(t *testing.T) {
	keysDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(keysDir, constants.PrivateKeyFileName), []byte("garbage"), 0o600))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("keys:\n  dir: %s\nlog:\n  level: error\n", keysDir)), 0o600))

	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	appLogger, err := monitoring.NewZapLogger(cfg.Log)
	require.NoError(t, err)

	err = run(context.Background(), loader, cfg, appLogger)
	require.Error(t, err, "boot failure is returned so deferred shutdowns run")
	assert.True(t, errors.Is(err, errors.ErrKeyLoad))
}
