// Package config loads the discovery-sync settings from the environment
// and an optional YAML file. Environment variables take precedence.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/course-discovery-client/pkg/client"
	"github.com/spf13/viper"
)

// Config holds every setting the command needs. Keys are the lower-cased
// environment variable names so a YAML file can use the same spelling.
type Config struct {
	Discovery DiscoveryConfig `mapstructure:",squash"`
	OAuth     OAuthConfig     `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Log       LogConfig       `mapstructure:",squash"`
	Metrics   MetricsConfig   `mapstructure:",squash"`
}

// DiscoveryConfig configures the discovery client.
type DiscoveryConfig struct {
	BaseURL           string  `mapstructure:"discovery_base_url"`
	MaxRetries        int     `mapstructure:"enterprise_discovery_client_max_retries"`
	BackoffFactor     float64 `mapstructure:"enterprise_discovery_client_backoff_factor"` // seconds
	TimeoutSeconds    float64 `mapstructure:"enterprise_discovery_client_timeout"`
	RequestsPerSecond float64 `mapstructure:"discovery_requests_per_second"`
	UserAgent         string  `mapstructure:"discovery_user_agent"`
}

// OAuthConfig holds client-credentials settings. An empty TokenURL sends
// requests without a bearer token.
type OAuthConfig struct {
	TokenURL     string `mapstructure:"discovery_oauth_token_url"`
	ClientID     string `mapstructure:"discovery_oauth_client_id"`
	ClientSecret string `mapstructure:"discovery_oauth_client_secret"`
}

// RedisConfig points at the shared throttle store. Empty disables it.
type RedisConfig struct {
	URL string `mapstructure:"redis_url"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"log_level"`
	Pretty bool   `mapstructure:"log_pretty"`
}

// MetricsConfig configures the optional /metrics and /health listener.
type MetricsConfig struct {
	Addr string `mapstructure:"metrics_addr"`
}

var defaults = map[string]any{
	"discovery_base_url":                         "",
	"enterprise_discovery_client_max_retries":    4,
	"enterprise_discovery_client_backoff_factor": 2.0,
	"enterprise_discovery_client_timeout":        15.0,
	"discovery_requests_per_second":              0.0,
	"discovery_user_agent":                       "course-discovery-client/0.1.0",
	"discovery_oauth_token_url":                  "",
	"discovery_oauth_client_id":                  "",
	"discovery_oauth_client_secret":              "",
	"redis_url":                                  "",
	"log_level":                                  "info",
	"log_pretty":                                 false,
	"metrics_addr":                               "",
}

// Load reads configuration. configPath is optional.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the values the client cannot run without.
func (c *Config) Validate() error {
	if c.Discovery.BaseURL == "" {
		return fmt.Errorf("DISCOVERY_BASE_URL is required")
	}
	if u, err := url.Parse(c.Discovery.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("DISCOVERY_BASE_URL must be an absolute URL (got %q)", c.Discovery.BaseURL)
	}
	if c.Discovery.MaxRetries < 0 {
		return fmt.Errorf("ENTERPRISE_DISCOVERY_CLIENT_MAX_RETRIES must be >= 0 (got %d)", c.Discovery.MaxRetries)
	}
	if c.Discovery.MaxRetries > client.MaxRetriesLimit {
		return fmt.Errorf("ENTERPRISE_DISCOVERY_CLIENT_MAX_RETRIES must be <= %d (got %d)", client.MaxRetriesLimit, c.Discovery.MaxRetries)
	}
	if c.Discovery.BackoffFactor < 0 {
		return fmt.Errorf("ENTERPRISE_DISCOVERY_CLIENT_BACKOFF_FACTOR must be >= 0 (got %g)", c.Discovery.BackoffFactor)
	}
	if c.Discovery.TimeoutSeconds <= 0 {
		return fmt.Errorf("ENTERPRISE_DISCOVERY_CLIENT_TIMEOUT must be > 0 (got %g)", c.Discovery.TimeoutSeconds)
	}
	if c.Discovery.RequestsPerSecond < 0 {
		return fmt.Errorf("DISCOVERY_REQUESTS_PER_SECOND must be >= 0 (got %g)", c.Discovery.RequestsPerSecond)
	}
	if c.OAuth.TokenURL != "" && c.OAuth.ClientID == "" {
		return fmt.Errorf("DISCOVERY_OAUTH_CLIENT_ID is required when DISCOVERY_OAUTH_TOKEN_URL is set")
	}
	return nil
}

// Backoff returns the backoff base as a duration.
func (d DiscoveryConfig) Backoff() time.Duration {
	return seconds(d.BackoffFactor)
}

// Timeout returns the per-request timeout as a duration.
func (d DiscoveryConfig) Timeout() time.Duration {
	return seconds(d.TimeoutSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
