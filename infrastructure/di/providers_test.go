package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitemap-sync/infrastructure/config"
)

func TestInitializeContainer(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.LogLevel = "warn"

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, container.Logger)
	assert.NotNil(t, container.Metrics)
	assert.Nil(t, container.Tracing)
	assert.Nil(t, container.Watcher)
	assert.NotNil(t, container.Sessions)

	rec := httptest.NewRecorder()
	container.Router.Setup().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeContainer_WatchesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: 2\n"), 0o644))
	t.Setenv("SYNC_CONFIG_FILE", path)
	t.Setenv("SYNC_CONFIG_WATCH", "true")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Domain.MaxRetries)

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, container.Watcher)
	assert.Equal(t, 2, container.Watcher.Current().MaxRetries)
}

func TestProvideLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := ProvideLogger(&config.Config{Environment: "production", LogLevel: "loud"})
	assert.Error(t, err)
}
