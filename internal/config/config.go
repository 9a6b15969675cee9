// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Importer ImporterConfig `mapstructure:"importer"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tenants  []TenantConfig `mapstructure:"tenants"`
}

// TenantConfig declares one tenant and, optionally, a dedicated database DSN.
// A tenant with no DSN inherits db.dsn; with neither set it runs on the
// in-memory stores.
type TenantConfig struct {
	Key string `mapstructure:"key"`
	DSN string `mapstructure:"dsn"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ImporterConfig governs dispatcher and crawl pipeline behavior.
type ImporterConfig struct {
	Workers         int    `mapstructure:"workers"`
	UserAgent       string `mapstructure:"user_agent"`
	DelayMs         int    `mapstructure:"delay_ms"`
	MaxPagesDefault int    `mapstructure:"max_pages_default"`
	QueueDepth      int    `mapstructure:"queue_depth"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StorageConfig sets paths and bucket for raw HTML archival. An empty
// bucket disables archival entirely.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory stores.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// PubSubConfig holds metadata for import completion notifications. An
// empty project id disables publishing.
type PubSubConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CompletionTopic string `mapstructure:"completion_topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IMPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("importer.workers", 4)
	v.SetDefault("importer.user_agent", "draftcms-importer/0.1")
	v.SetDefault("importer.delay_ms", 1000)
	v.SetDefault("importer.max_pages_default", 200)
	v.SetDefault("importer.queue_depth", 64)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("storage.prefix", "pages")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Importer.Workers <= 0 {
		return fmt.Errorf("importer.workers must be > 0")
	}
	if c.Importer.MaxPagesDefault <= 0 {
		return fmt.Errorf("importer.max_pages_default must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.CompletionTopic == "" {
		return fmt.Errorf("pubsub.completion_topic must be set when pubsub.project_id is set")
	}
	seen := make(map[string]struct{}, len(c.Tenants))
	for _, t := range c.Tenants {
		if t.Key == "" {
			return fmt.Errorf("tenants entries require a key")
		}
		if _, dup := seen[t.Key]; dup {
			return fmt.Errorf("duplicate tenant key %q", t.Key)
		}
		seen[t.Key] = struct{}{}
	}
	return nil
}

// TenantList returns the configured tenants, defaulting to a single
// "default" tenant when none are declared.
func (c Config) TenantList() []TenantConfig {
	if len(c.Tenants) == 0 {
		return []TenantConfig{{Key: "default"}}
	}
	return c.Tenants
}

// FetchDelay converts the configured per-request delay into a duration.
func (c Config) FetchDelay() time.Duration {
	return time.Duration(c.Importer.DelayMs) * time.Millisecond
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
