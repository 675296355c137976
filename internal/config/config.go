// Package config reads the server configuration from the environment.
package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting of the chat server. Command-line flags override it.
type Config struct {
	Port int `env:"PORT" envDefault:"3001"`

	CatalogDir   string `env:"PARLEY_CATALOG_DIR" envDefault:"."`
	DialogueFile string `env:"PARLEY_DIALOGUE_FILE" envDefault:"conversation.json"`
	GatedFile    string `env:"PARLEY_GATED_FILE" envDefault:"responses.json"`
	UngatedFile  string `env:"PARLEY_UNGATED_FILE" envDefault:"single_responses.json"`
	WatchCatalog bool   `env:"PARLEY_WATCH"`
	EntryNode    string `env:"PARLEY_ENTRY_NODE" envDefault:"HELLO"`
	Degraded     bool   `env:"PARLEY_DEGRADED_MODE"`

	FallbackMessage string `env:"PARLEY_FALLBACK_MESSAGE"`
	Greeting        string `env:"PARLEY_GREETING"`
	MaxInputSize    int    `env:"PARLEY_MAX_INPUT_SIZE" envDefault:"4096"`

	AllowedOrigins []string `env:"PARLEY_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://another-frontend-url.com"`
	PublicDir      string   `env:"PARLEY_PUBLIC_DIR" envDefault:"public"`

	RedisAddr     string        `env:"PARLEY_REDIS_ADDR"`
	RedisPassword string        `env:"PARLEY_REDIS_PASSWORD"`
	RedisDB       int           `env:"PARLEY_REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"PARLEY_SESSION_TTL" envDefault:"24h"`

	// SessionKey enables encryption of stored answers (base64, 32 bytes).
	SessionKey          string   `env:"PARLEY_SESSION_KEY"`
	SessionFallbackKeys []string `env:"PARLEY_SESSION_FALLBACK_KEYS" envSeparator:","`

	LogLevel  string `env:"PARLEY_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PARLEY_LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment into a Config with defaults applied.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxInputSize < 0 {
		return fmt.Errorf("invalid max input size %d", c.MaxInputSize)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SessionKeys decodes the session encryption keys. It returns a nil active key
// when encryption is not configured.
func (c Config) SessionKeys() (active []byte, fallback [][]byte, err error) {
	if c.SessionKey == "" {
		return nil, nil, nil
	}
	if active, err = base64.StdEncoding.DecodeString(c.SessionKey); err != nil {
		return nil, nil, fmt.Errorf("PARLEY_SESSION_KEY: %w", err)
	}
	for i, k := range c.SessionFallbackKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, nil, fmt.Errorf("PARLEY_SESSION_FALLBACK_KEYS[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}
