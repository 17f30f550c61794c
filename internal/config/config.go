// Package config loads scribe's settings from the metadata config file
// and the environment.
//
// Config file: $XDG_CONFIG_HOME/scribe/config.yaml (optional).
// Environment: SCRIBE_* overrides, e.g. SCRIBE_REMOTE_REF=next.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RemoteConfig identifies the source repository resources are fetched from.
type RemoteConfig struct {
	Owner    string `mapstructure:"owner"`
	Repo     string `mapstructure:"repo"`
	Ref      string `mapstructure:"ref"`
	BasePath string `mapstructure:"base_path"`
}

// RetryConfig tunes the remote client's retry/backoff schedule.
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig configures CLI logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the application configuration.
type Config struct {
	Project string        `mapstructure:"project"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Defaults applied when the config file or a key is absent.
const (
	DefaultRemoteOwner = "kennyg"
	DefaultRemoteRepo  = "scribe-resources"
	DefaultRemoteRef   = "main"
)

// Load reads configuration from the config file (if present) and the
// environment. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(xdg.ConfigHome, "scribe"))

	v.SetEnvPrefix("SCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("remote.owner", DefaultRemoteOwner)
	v.SetDefault("remote.repo", DefaultRemoteRepo)
	v.SetDefault("remote.ref", DefaultRemoteRef)
	v.SetDefault("remote.base_path", "")
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.backoff_base", "500ms")
	v.SetDefault("retry.backoff_max", "8s")
	v.SetDefault("retry.request_timeout", "30s")
	v.SetDefault("logging.level", "warn")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
