package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

const sampleConfig = `
server:
  port: 9000
logging:
  level: debug
search:
  history_size: 25
  health_check_interval: 5m
indexer:
  jackett:
    name: Jackett
    enabled: true
    type: jackett
    base_url: http://jackett:9117/
    api_key: secret
    priority: 10
    categories: "3030, 3000"
    timeout: 45
  mam:
    name: MyAnonamouse
    enabled: true
    type: direct
    base_url: https://www.myanonamouse.net
    session_id: sid
    priority: 5
    languages: "en, de"
    verify_ssl: true
    rate_limit_requests_per_second: 2
    rate_limit_max_concurrent: 1
  old:
    enabled: false
    type: direct
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 25, cfg.Search.HistorySize)
	assert.Equal(t, 5*time.Minute, cfg.Search.HealthInterval())
	assert.True(t, cfg.Search.VariantGeneration)
	require.Len(t, cfg.Indexers, 3)
}

func TestIndexerConfigs(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	configs, err := cfg.IndexerConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 3)

	// Sorted by section key.
	jackett := configs[0]
	assert.Equal(t, "jackett", jackett.Key)
	assert.Equal(t, types.IndexerTypeTorznab, jackett.Type)
	assert.Equal(t, "http://jackett:9117", jackett.BaseURL)
	assert.Equal(t, "secret", jackett.APIKey)
	assert.Equal(t, []int{3030, 3000}, jackett.Categories)
	assert.Equal(t, 45*time.Second, jackett.Timeout)

	mam := configs[1]
	assert.Equal(t, "mam", mam.Key)
	assert.Equal(t, types.IndexerTypeDirect, mam.Type)
	assert.Equal(t, "sid", mam.SessionID)
	assert.Equal(t, []string{"en", "de"}, mam.Languages)
	assert.True(t, mam.VerifyTLS)
	assert.Equal(t, 2, mam.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1, mam.RateLimit.MaxConcurrent)
	// Default timeout when unset.
	assert.Equal(t, 30*time.Second, mam.Timeout)

	old := configs[2]
	assert.Equal(t, "old", old.Key)
	assert.False(t, old.Enabled)
	// Name falls back to the key.
	assert.Equal(t, "old", old.Name)
}

func TestIndexerConfigsValidation(t *testing.T) {
	t.Run("enabled indexer without base url", func(t *testing.T) {
		cfg := &Config{Indexers: map[string]IndexerSettings{
			"broken": {Enabled: true, Type: "direct"},
		}}
		_, err := cfg.IndexerConfigs()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("bad category csv", func(t *testing.T) {
		cfg := &Config{Indexers: map[string]IndexerSettings{
			"broken": {Enabled: true, BaseURL: "http://x", Categories: "12,abc"},
		}}
		_, err := cfg.IndexerConfigs()
		require.Error(t, err)
	})
}

func TestIndexerTypeMapping(t *testing.T) {
	tests := []struct {
		typ, protocol string
		want          types.IndexerType
	}{
		{"jackett", "", types.IndexerTypeTorznab},
		{"prowlarr", "", types.IndexerTypeTorznab},
		{"direct", "torznab", types.IndexerTypeTorznab},
		{"direct", "", types.IndexerTypeDirect},
		{"", "", types.IndexerTypeDirect},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, indexerType(tt.typ, tt.protocol), "%s/%s", tt.typ, tt.protocol)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	// No config file anywhere on the default search path: defaults apply.
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8417, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Search.HistorySize)
	assert.Equal(t, 15*time.Minute, cfg.Search.HealthInterval())
}
