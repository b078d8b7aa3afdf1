// Package config defines service configuration and its loading order.
//
// Precedence (low to high): defaults, YAML file named by REPUTATION_CONFIG,
// environment variables prefixed REPUTATION_.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorePath locates the embedded database. Empty disables persistence.
	StorePath string `koanf:"store_path"`

	// CacheTTL bounds how long fetched HTTP responses are reused.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// SourceTimeout bounds each source adapter's fetch.
	SourceTimeout time.Duration `koanf:"source_timeout"`

	// Credentials for the source and analysis backends. A source whose
	// credential is empty is left out of the pipeline.
	PerplexityAPIKey   string `koanf:"perplexity_api_key"`
	SerpAPIKey         string `koanf:"serpapi_key"`
	YouTubeAPIKey      string `koanf:"youtube_api_key"`
	RedditClientID     string `koanf:"reddit_client_id"`
	RedditClientSecret string `koanf:"reddit_client_secret"`
	TwitterBearerToken string `koanf:"twitter_bearer_token"`
	GitHubToken        string `koanf:"github_token"`
	AnthropicAPIKey    string `koanf:"anthropic_api_key"`
	VisionAPIKey       string `koanf:"vision_api_key"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":8080",
		StorePath:     "data/reputation",
		CacheTTL:      24 * time.Hour,
		SourceTimeout: 15 * time.Second,
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("REPUTATION_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: REPUTATION_ADDR, REPUTATION_SERPAPI_KEY, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("REPUTATION_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "reputation_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.SourceTimeout <= 0 {
		return nil, errors.New("source_timeout must be positive")
	}
	return &cfg, nil
}
