// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. ARTICLEGEN_SERVER_PORT.
const EnvPrefix = "ARTICLEGEN"

// Storage backends for finished archives.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
	StorageS3    = "s3"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Generation GenerationConfig `mapstructure:"generation"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Storage    StorageConfig    `mapstructure:"storage"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	Client     ClientConfig     `mapstructure:"client"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
	EnqueueTimeoutSeconds  int `mapstructure:"enqueue_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// GenerationConfig governs the worker pool and article shape.
type GenerationConfig struct {
	Workers                int `mapstructure:"workers"`
	QueueDepth             int `mapstructure:"queue_depth"`
	MaxArticlesPerKeyword  int `mapstructure:"max_articles_per_keyword"`
	MinWords               int `mapstructure:"min_words"`
	MaxWords               int `mapstructure:"max_words"`
	ProviderTimeoutSeconds int `mapstructure:"provider_timeout_seconds"`
}

// ProvidersConfig holds per-backend settings. Credentials are never
// configured here; they arrive with each request.
type ProvidersConfig struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	Groq   GroqConfig   `mapstructure:"groq"`
}

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// GroqConfig configures the Groq provider.
type GroqConfig struct {
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
}

// StorageConfig selects where job workspaces and archives live.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	BaseDir    string `mapstructure:"base_dir"`
	Bucket     string `mapstructure:"bucket"`
	Prefix     string `mapstructure:"prefix"`
	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
}

// PubSubConfig holds metadata for terminal job event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// RetentionConfig controls the janitor. TTLMinutes of zero keeps jobs forever.
type RetentionConfig struct {
	TTLMinutes           int `mapstructure:"ttl_minutes"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

// ClientConfig configures the generate command.
type ClientConfig struct {
	ServerURL      string `mapstructure:"server_url"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load builds a Config from an optional file plus the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
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
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("server.enqueue_timeout_seconds", 5)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("generation.workers", 2)
	v.SetDefault("generation.queue_depth", 64)
	v.SetDefault("generation.max_articles_per_keyword", 10)
	v.SetDefault("generation.min_words", 900)
	v.SetDefault("generation.max_words", 1000)
	v.SetDefault("generation.provider_timeout_seconds", 120)
	v.SetDefault("providers.gemini.model", "gemini-2.0-flash")
	v.SetDefault("providers.gemini.base_url", "")
	v.SetDefault("providers.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("providers.groq.base_url", "https://api.groq.com/openai/v1/")
	v.SetDefault("providers.groq.temperature", 0.7)
	v.SetDefault("providers.groq.max_tokens", 2048)
	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("storage.base_dir", "data/jobs")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "archives")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("retention.ttl_minutes", 1440)
	v.SetDefault("retention.sweep_interval_seconds", 300)
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.poll_interval_ms", 1000)
	v.SetDefault("client.timeout_seconds", 30)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Generation.Workers <= 0 {
		return fmt.Errorf("generation.workers must be > 0")
	}
	if c.Generation.QueueDepth < 0 {
		return fmt.Errorf("generation.queue_depth must be >= 0")
	}
	if c.Generation.MaxArticlesPerKeyword <= 0 {
		return fmt.Errorf("generation.max_articles_per_keyword must be > 0")
	}
	if c.Generation.MinWords <= 0 || c.Generation.MaxWords < c.Generation.MinWords {
		return fmt.Errorf("generation.min_words must be > 0 and <= generation.max_words")
	}
	if c.Generation.ProviderTimeoutSeconds <= 0 {
		return fmt.Errorf("generation.provider_timeout_seconds must be > 0")
	}
	switch c.Storage.Backend {
	case StorageLocal:
	case StorageGCS, StorageS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage.backend must be one of local, gcs, s3")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir must be set")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if c.Retention.TTLMinutes < 0 {
		return fmt.Errorf("retention.ttl_minutes must be >= 0")
	}
	if c.Retention.TTLMinutes > 0 && c.Retention.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("retention.sweep_interval_seconds must be > 0 when retention is enabled")
	}
	return nil
}

// ProviderTimeout is the per-call provider budget.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Generation.ProviderTimeoutSeconds) * time.Second
}

// EnqueueTimeout bounds how long a submit waits for queue room.
func (c Config) EnqueueTimeout() time.Duration {
	return time.Duration(c.Server.EnqueueTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// RetentionTTL is how long terminal jobs are kept. Zero disables expiry.
func (c Config) RetentionTTL() time.Duration {
	return time.Duration(c.Retention.TTLMinutes) * time.Minute
}

// SweepInterval is the janitor period.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepIntervalSeconds) * time.Second
}

// PollInterval is how often the client checks job status.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Client.PollIntervalMs) * time.Millisecond
}
