// Package config loads Hearth configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
)

// StoreBackend selects the document store implementation.
type StoreBackend string

const (
	// BackendMemory keeps all documents in process memory. Used for tests
	// and local development.
	BackendMemory StoreBackend = "memory"
	// BackendRest talks to the hosted document store over its REST API.
	BackendRest StoreBackend = "rest"
)

// Config holds all runtime settings. Every field decodes from the
// environment; secrets are never written back out.
type Config struct {
	ListenAddr string `env:"HEARTH_LISTEN_ADDR,default=:8080"`
	LogLevel   string `env:"HEARTH_LOG_LEVEL,default=info"`
	AppID      string `env:"HEARTH_APP_ID,default=hearth"`

	// Origins allowed to call the API, separated by ";". Empty allows all.
	CORSOrigins []string `env:"HEARTH_CORS_ORIGINS"`

	HTTP struct {
		RateLimit float64 `env:"HEARTH_HTTP_RATE_LIMIT,default=20"`
		Burst     int     `env:"HEARTH_HTTP_BURST,default=40"`
	}

	Store struct {
		Backend string `env:"HEARTH_STORE_BACKEND,default=memory"`
		URL     string `env:"HEARTH_STORE_URL"`
		APIKey  string `env:"HEARTH_STORE_API_KEY"`
	}

	Auth struct {
		URL string `env:"HEARTH_AUTH_URL"`
	}

	Verse struct {
		URL string `env:"HEARTH_VERSE_API_URL,default=https://bible-api.com/?random=verse"`
	}

	Suggest struct {
		URL    string `env:"HEARTH_SUGGEST_API_URL,default=https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"`
		APIKey string `env:"HEARTH_SUGGEST_API_KEY"`
		// Requests per second allowed against the suggestion API.
		RateLimit float64 `env:"HEARTH_SUGGEST_RATE_LIMIT,default=1"`
		Burst     int     `env:"HEARTH_SUGGEST_BURST,default=3"`
	}
}

// Load decodes configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch StoreBackend(strings.ToLower(c.Store.Backend)) {
	case BackendMemory:
	case BackendRest:
		if c.Store.URL == "" {
			return fmt.Errorf("HEARTH_STORE_URL is required for the rest backend")
		}
		if c.Store.APIKey == "" {
			return fmt.Errorf("HEARTH_STORE_API_KEY is required for the rest backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// Backend returns the normalised store backend.
func (c *Config) Backend() StoreBackend {
	return StoreBackend(strings.ToLower(c.Store.Backend))
}

// HasSuggestCredential reports whether the suggestion API can be called.
// An absent credential disables the feature instead of crashing.
func (c *Config) HasSuggestCredential() bool {
	return strings.TrimSpace(c.Suggest.APIKey) != ""
}
