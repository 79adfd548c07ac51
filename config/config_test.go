package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/introducer-commission/commission"
	"github.com/warp/introducer-commission/config"
)

const sampleConfig = `
service:
  id: commission-test
  http_port: 9000
  log_level: debug
store:
  path: /tmp/test.db
commission:
  compute_timeout_seconds: 5
  exclusion_markers: ["門市"]
  keyword_rules:
    - name: nursing
      keywords: ["護理", "nurse"]
      rate: 420
    - name: escort
      keywords: ["陪診"]
      rate: "110.5"
`

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, commission.DefaultTimeout, cfg.ComputeTimeout)
	assert.Equal(t, commission.DefaultExclusionMarkers, cfg.Policy.ExclusionMarkers)
	assert.Len(t, cfg.Policy.KeywordRules, 4)
}

func TestLoad_File(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "commission-test", cfg.ServiceID)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ComputeTimeout)
	assert.Equal(t, []string{"門市"}, cfg.Policy.ExclusionMarkers)

	require.Len(t, cfg.Policy.KeywordRules, 2)
	assert.Equal(t, "nursing", cfg.Policy.KeywordRules[0].Name)
	assert.Equal(t, "420", cfg.Policy.KeywordRules[0].Rate.String())
	assert.Equal(t, "110.5", cfg.Policy.KeywordRules[1].Rate.String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ALLOWED_ORIGINS", "https://ops.example.com, http://localhost:3000")
	t.Setenv("COMPUTE_TIMEOUT_SECONDS", "12")

	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.HTTPPort)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, []string{"https://ops.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 12*time.Second, cfg.ComputeTimeout)
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := config.Load(writeConfig(t, "service: [unclosed"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "commission:\n  keyword_rules:\n    - name: x\n      rate: 1\n"))
	assert.Error(t, err, "rule without keywords")
}
