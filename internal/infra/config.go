package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"xof_converter/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MinDebounceMS and MaxDebounceMS bound the quiet period before a resolution
	MinDebounceMS = 300
	MaxDebounceMS = 400
)

// ProviderConfig describes one rate provider endpoint
type ProviderConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
	// ImplicitBase is used when a flat response omits its own base
	ImplicitBase string `yaml:"implicit_base"`
}

// Timeout returns the HTTP timeout, defaulting to 10s
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSec) * time.Second
}

// Config holds every setting of the converter.
// Loaded from YAML, then secrets are overridden from the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	API struct {
		Primary   ProviderConfig `yaml:"primary"`
		Secondary ProviderConfig `yaml:"secondary"`
		Icons     struct {
			URL string `yaml:"url"`
		} `yaml:"icons"`
	} `yaml:"api"`

	Converter struct {
		DebounceMS  int      `yaml:"debounce_ms"`
		DefaultFrom string   `yaml:"default_from"`
		DefaultTo   string   `yaml:"default_to"`
		Currencies  []string `yaml:"currencies"`
	} `yaml:"converter"`

	Favorites struct {
		MaxEntries int `yaml:"max_entries"`
	} `yaml:"favorites"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Assets struct {
		Path     string `yaml:"path"`
		SyncCron string `yaml:"sync_cron"`
	} `yaml:"assets"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration usable without a file
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "XOF Converter"
	cfg.App.Version = "dev"
	cfg.Server.Addr = ":8080"
	cfg.API.Primary.URL = "https://v6.exchangerate-api.com/v6"
	cfg.API.Primary.TimeoutSec = 10
	cfg.API.Secondary.URL = "https://api.currencyapi.com/v3"
	cfg.API.Secondary.TimeoutSec = 10
	cfg.API.Secondary.ImplicitBase = "USD"
	cfg.API.Icons.URL = "https://flagcdn.com/w80"
	cfg.Converter.DebounceMS = 350
	cfg.Converter.DefaultFrom = "EUR"
	cfg.Converter.DefaultTo = "XOF"
	cfg.Favorites.MaxEntries = 5
	cfg.Assets.SyncCron = "@daily"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig reads the YAML file on top of the defaults.
// A missing file is not an error: defaults plus environment are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &domain.ConfigError{Field: path, Err: err}
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !isHTTPURL(c.API.Primary.URL) {
		return &domain.ConfigError{Field: "api.primary.url", Err: fmt.Errorf("invalid URL %q", c.API.Primary.URL)}
	}
	if !isHTTPURL(c.API.Secondary.URL) {
		return &domain.ConfigError{Field: "api.secondary.url", Err: fmt.Errorf("invalid URL %q", c.API.Secondary.URL)}
	}
	if c.API.Icons.URL != "" && !isHTTPURL(c.API.Icons.URL) {
		return &domain.ConfigError{Field: "api.icons.url", Err: fmt.Errorf("invalid URL %q", c.API.Icons.URL)}
	}

	if c.Converter.DebounceMS < MinDebounceMS || c.Converter.DebounceMS > MaxDebounceMS {
		return &domain.ConfigError{
			Field: "converter.debounce_ms",
			Err:   fmt.Errorf("must be between %d and %d, got %d", MinDebounceMS, MaxDebounceMS, c.Converter.DebounceMS),
		}
	}

	catalog := domain.NewCatalogFromCodes(c.Converter.Currencies)
	if !catalog.Contains(c.Converter.DefaultFrom) {
		return &domain.ConfigError{Field: "converter.default_from", Err: domain.ErrUnknownCurrency}
	}
	if !catalog.Contains(c.Converter.DefaultTo) {
		return &domain.ConfigError{Field: "converter.default_to", Err: domain.ErrUnknownCurrency}
	}

	if c.Favorites.MaxEntries <= 0 {
		return &domain.ConfigError{Field: "favorites.max_entries", Err: errors.New("must be positive")}
	}

	if c.Server.Addr == "" {
		return &domain.ConfigError{Field: "server.addr", Err: errors.New("must not be empty")}
	}

	return nil
}

// DebounceInterval returns the quiet period before a resolution
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Converter.DebounceMS) * time.Millisecond
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// overrideWithEnv overwrites settings with environment variables when present.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("EXCHANGE_RATE_API_KEY"); key != "" {
		cfg.API.Primary.APIKey = key
	}
	if key := os.Getenv("CURRENCY_API_KEY"); key != "" {
		cfg.API.Secondary.APIKey = key
	}
	if addr := os.Getenv("XOF_CONVERTER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("XOF_CONVERTER_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
