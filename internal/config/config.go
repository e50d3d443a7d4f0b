// Package config loads application settings with viper: a YAML file plus
// AURALARCHIVE_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig               `mapstructure:"server"`
	Logging  LoggingConfig              `mapstructure:"logging"`
	Search   SearchSettings             `mapstructure:"search"`
	Indexers map[string]IndexerSettings `mapstructure:"indexer"`
}

// ServerConfig holds the HTTP API listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig controls log level and file rotation.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Console    bool   `mapstructure:"console"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SearchSettings tune the search facade and background health checks.
type SearchSettings struct {
	HistorySize         int    `mapstructure:"history_size"`
	VariantGeneration   bool   `mapstructure:"variant_generation"`
	LimitPerIndexer     int    `mapstructure:"limit_per_indexer"`
	HealthCheckInterval string `mapstructure:"health_check_interval"`
}

// HealthInterval parses the health-check interval, defaulting to 15m.
func (s SearchSettings) HealthInterval() time.Duration {
	d, err := time.ParseDuration(s.HealthCheckInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// IndexerSettings is one `indexer:<key>` configuration section.
type IndexerSettings struct {
	Name                       string `mapstructure:"name"`
	Enabled                    bool   `mapstructure:"enabled"`
	Type                       string `mapstructure:"type"`
	Protocol                   string `mapstructure:"protocol"`
	BaseURL                    string `mapstructure:"base_url"`
	FeedURL                    string `mapstructure:"feed_url"`
	APIKey                     string `mapstructure:"api_key"`
	SessionID                  string `mapstructure:"session_id"`
	ProviderKey                string `mapstructure:"provider_key"`
	Priority                   int    `mapstructure:"priority"`
	Categories                 string `mapstructure:"categories"`
	Languages                  string `mapstructure:"languages"`
	VerifySSL                  bool   `mapstructure:"verify_ssl"`
	Timeout                    int    `mapstructure:"timeout"`
	RateLimitRequestsPerSecond int    `mapstructure:"rate_limit_requests_per_second"`
	RateLimitMaxConcurrent     int    `mapstructure:"rate_limit_max_concurrent"`
}

// Load reads configuration from the given file (or the default search
// paths when empty), applying defaults and environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/auralarchive")
	}
	v.SetEnvPrefix("AURALARCHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8417)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.max_size_mb", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("search.history_size", 50)
	v.SetDefault("search.variant_generation", true)
	v.SetDefault("search.limit_per_indexer", 100)
	v.SetDefault("search.health_check_interval", "15m")
}

// IndexerConfigs converts the raw indexer sections into the typed configs
// the manager consumes, sorted by section key. It satisfies the manager's
// ConfigProvider interface.
func (c *Config) IndexerConfigs() ([]types.IndexerConfig, error) {
	keys := make([]string, 0, len(c.Indexers))
	for key := range c.Indexers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	configs := make([]types.IndexerConfig, 0, len(keys))
	for _, key := range keys {
		s := c.Indexers[key]
		cfg, err := s.toIndexerConfig(key)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (s IndexerSettings) toIndexerConfig(key string) (types.IndexerConfig, error) {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = s.FeedURL
	}
	if s.Enabled {
		if baseURL == "" {
			return types.IndexerConfig{}, fmt.Errorf("indexer %q: base_url or feed_url required", key)
		}
		if _, err := url.ParseRequestURI(baseURL); err != nil {
			return types.IndexerConfig{}, fmt.Errorf("indexer %q: invalid base url: %w", key, err)
		}
	}

	name := s.Name
	if name == "" {
		name = key
	}
	timeout := time.Duration(s.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cats, err := csvInts(s.Categories)
	if err != nil {
		return types.IndexerConfig{}, fmt.Errorf("indexer %q: categories: %w", key, err)
	}

	return types.IndexerConfig{
		Key:         key,
		Name:        name,
		Enabled:     s.Enabled,
		Type:        indexerType(s.Type, s.Protocol),
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      s.APIKey,
		SessionID:   s.SessionID,
		ProviderKey: s.ProviderKey,
		Categories:  cats,
		Languages:   csvStrings(s.Languages),
		Priority:    s.Priority,
		Timeout:     timeout,
		VerifyTLS:   s.VerifySSL,
		RateLimit: types.RateLimitConfig{
			RequestsPerSecond: s.RateLimitRequestsPerSecond,
			MaxConcurrent:     s.RateLimitMaxConcurrent,
		},
	}, nil
}

// indexerType folds the legacy type/protocol pair into the two runtime
// kinds: jackett/prowlarr and anything declaring the torznab protocol are
// torznab; the rest are direct.
func indexerType(typ, protocol string) types.IndexerType {
	switch strings.ToLower(typ) {
	case "jackett", "prowlarr", "torznab":
		return types.IndexerTypeTorznab
	}
	if strings.EqualFold(protocol, "torznab") {
		return types.IndexerTypeTorznab
	}
	return types.IndexerTypeDirect
}

func csvInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func csvStrings(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
