// Package config loads lognorm configuration from $LOGNORM_CONFIG_DIR/config.yaml
// with LOGNORM_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix    = "LOGNORM"
	EnvConfigDir = "LOGNORM_CONFIG_DIR"
	dirName      = ".lognorm"
	fileName     = "config.yaml"
)

var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// Config is the lognorm configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Parse      ParseConfig      `mapstructure:"parse" yaml:"parse"`
	History    HistoryConfig    `mapstructure:"history" yaml:"history"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	NATS       NATSConfig       `mapstructure:"nats" yaml:"nats"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch" yaml:"opensearch"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`

	path string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ParseConfig holds normalization and display defaults
type ParseConfig struct {
	DefaultFormat string `mapstructure:"default_format" yaml:"default_format"`
	PageSize      int    `mapstructure:"page_size" yaml:"page_size"`
}

// HistoryConfig selects where the scan history is persisted
type HistoryConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"` // "file" (default) or "redis"
	Path     string `mapstructure:"path" yaml:"path"`       // only used for file backend
	Capacity int    `mapstructure:"capacity" yaml:"capacity"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL       string `mapstructure:"url" yaml:"url"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// NATSConfig holds NATS publisher settings
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	URL           string        `mapstructure:"url" yaml:"url"`
	Name          string        `mapstructure:"name" yaml:"name"`
	SubjectPrefix string        `mapstructure:"subject_prefix" yaml:"subject_prefix"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Username      string        `mapstructure:"username" yaml:"username,omitempty"`
	Password      string        `mapstructure:"password" yaml:"password,omitempty"`
	Token         string        `mapstructure:"token" yaml:"token,omitempty"`
}

// OpenSearchConfig holds OpenSearch indexer settings
type OpenSearchConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	URL           string `mapstructure:"url" yaml:"url"`
	Username      string `mapstructure:"username" yaml:"username"`
	Password      string `mapstructure:"password" yaml:"password"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify" yaml:"tls_skip_verify"`
	IndexPrefix   string `mapstructure:"index_prefix" yaml:"index_prefix"`
}

// MetricsConfig holds Prometheus export settings
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Parse:   ParseConfig{DefaultFormat: "generic", PageSize: 10},
		History: HistoryConfig{Backend: "file", Capacity: 10},
		Redis:   RedisConfig{URL: "redis://localhost:6379/0", KeyPrefix: "lognorm"},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "lognorm",
			SubjectPrefix: "lognorm.records",
			Timeout:       5 * time.Second,
		},
		OpenSearch: OpenSearchConfig{
			URL:           "https://localhost:9200",
			Username:      "admin",
			Password:      "admin",
			TLSSkipVerify: true,
			IndexPrefix:   "lognorm",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("parse.default_format", d.Parse.DefaultFormat)
	v.SetDefault("parse.page_size", d.Parse.PageSize)

	v.SetDefault("history.backend", d.History.Backend)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.capacity", d.History.Capacity)

	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("nats.enabled", d.NATS.Enabled)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.name", d.NATS.Name)
	v.SetDefault("nats.subject_prefix", d.NATS.SubjectPrefix)
	v.SetDefault("nats.timeout", d.NATS.Timeout.String())
	v.SetDefault("nats.username", "")
	v.SetDefault("nats.password", "")
	v.SetDefault("nats.token", "")

	v.SetDefault("opensearch.enabled", d.OpenSearch.Enabled)
	v.SetDefault("opensearch.url", d.OpenSearch.URL)
	v.SetDefault("opensearch.username", d.OpenSearch.Username)
	v.SetDefault("opensearch.password", d.OpenSearch.Password)
	v.SetDefault("opensearch.tls_skip_verify", d.OpenSearch.TLSSkipVerify)
	v.SetDefault("opensearch.index_prefix", d.OpenSearch.IndexPrefix)

	v.SetDefault("metrics.textfile", "")
}

// Dir returns the configuration directory: $LOGNORM_CONFIG_DIR or $HOME/.lognorm.
func Dir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Load reads cfgFile (or the default config.yaml) and applies LOGNORM_
// environment overrides such as LOGNORM_NATS_URL. A missing file yields the
// defaults.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		cfgFile = filepath.Join(dir, fileName)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(cfgFile); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.path = cfgFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was loaded from and saves to.
func (c *Config) Path() string {
	return c.path
}

// HistoryPath returns the history file, defaulting next to the config file.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	dir := filepath.Dir(c.path)
	if c.path == "" {
		if d, err := Dir(); err == nil {
			dir = d
		}
	}
	return filepath.Join(dir, "history.json")
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidValue, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidValue, c.Logging.Format)
	}
	switch c.History.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("%w: history.backend %q", ErrInvalidValue, c.History.Backend)
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("%w: history.capacity must be positive", ErrInvalidValue)
	}
	if c.Parse.PageSize <= 0 {
		return fmt.Errorf("%w: parse.page_size must be positive", ErrInvalidValue)
	}
	return nil
}

// Save writes the configuration back as YAML.
func (c *Config) Save() error {
	if c.path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(dir, fileName)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
