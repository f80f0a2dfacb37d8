package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikebarrdiaz/redistour/internal/similarity"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "data/redistour.db", cfg.Data.DatabasePath)
	assert.Equal(t, similarity.MetricCosine, cfg.Recommend.Metric)
	assert.Equal(t, 10, cfg.Recommend.DefaultK)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REDISTOUR_SERVER_PORT", "9090")
	t.Setenv("REDISTOUR_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
recommend:
  metric: euclidean
  default_k: 5
`), 0o644))
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, similarity.MetricEuclidean, cfg.Recommend.Metric)
	assert.Equal(t, 5, cfg.Recommend.DefaultK)
	// untouched sections keep their defaults
	assert.Equal(t, "data/zones.json", cfg.Data.ZonesPath)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	bad := defaultConfig()
	bad.Server.Port = 0
	assert.Error(t, bad.Validate())

	bad = defaultConfig()
	bad.Recommend.Metric = "manhattan"
	assert.Error(t, bad.Validate())

	bad = defaultConfig()
	bad.Data.DatabasePath = ""
	assert.Error(t, bad.Validate())
}
