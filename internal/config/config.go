// Package config provides configuration management.
//
// Defaults are complete; a configuration file is optional.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"unitconvert/internal/errors"
	"unitconvert/internal/logging"
)

// Environment variables honoured by ApplyEnv.
const (
	EnvNoDownload = "UNITCONVERT_NO_DOWNLOAD"
	EnvCachePath  = "UNITCONVERT_CACHE_PATH"
	EnvFeedURL    = "UNITCONVERT_FEED_URL"
	EnvLogLevel   = "UNITCONVERT_LOG_LEVEL"
)

// DefaultFeedURL is the European Central Bank daily reference rate document.
const DefaultFeedURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Currency contains exchange-rate refresh configuration
	Currency CurrencyConfig `json:"currency"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// CurrencyConfig contains exchange-rate refresh settings
type CurrencyConfig struct {
	// FeedURL is the remote rate document
	FeedURL string `json:"feed_url"`

	// CacheBackend selects where the fetched document is persisted: "file" or "memory"
	CacheBackend string `json:"cache_backend"`

	// CachePath is where the fetched document is persisted
	CachePath string `json:"cache_path"`

	// MaxAgeSeconds is how old the cached document may get before a refresh is attempted
	MaxAgeSeconds int `json:"max_age_seconds"`

	// FetchTimeoutSeconds bounds a single fetch
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	// MaxDocumentBytes caps the size of a fetched document
	MaxDocumentBytes int64 `json:"max_document_bytes"`

	// DisableDownloads turns off all network access
	DisableDownloads bool `json:"disable_downloads"`

	// AssumeOnline treats the network as reachable without probing
	AssumeOnline bool `json:"assume_online"`
}

// MaxAge returns the staleness threshold as a duration
func (c CurrencyConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSeconds) * time.Second
}

// FetchTimeout returns the fetch timeout as a duration
func (c CurrencyConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Currency.MaxAgeSeconds < 0 {
		return errors.New(errors.TypeConfig, "currency.max_age_seconds must not be negative")
	}
	if c.Currency.FetchTimeoutSeconds <= 0 {
		return errors.New(errors.TypeConfig, "currency.fetch_timeout_seconds must be positive")
	}
	if c.Currency.MaxDocumentBytes <= 0 {
		return errors.New(errors.TypeConfig, "currency.max_document_bytes must be positive")
	}
	if !c.Currency.DisableDownloads && c.Currency.FeedURL == "" {
		return errors.New(errors.TypeConfig, "currency.feed_url is required when downloads are enabled")
	}
	switch c.Currency.CacheBackend {
	case "", "file":
		if c.Currency.CachePath == "" {
			return errors.New(errors.TypeConfig, "currency.cache_path is required")
		}
	case "memory":
	default:
		return errors.Newf(errors.TypeConfig, "unknown currency.cache_backend %q", c.Currency.CacheBackend)
	}
	return nil
}

// Default returns a default configuration
func Default() *Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}

	return &Config{
		Version: "1.0",
		Currency: CurrencyConfig{
			FeedURL:             DefaultFeedURL,
			CacheBackend:        "file",
			CachePath:           filepath.Join(cacheDir, "unitconvert", "currency.xml"),
			MaxAgeSeconds:       86400, // 24 hours
			FetchTimeoutSeconds: 30,
			MaxDocumentBytes:    1 << 20,
			DisableDownloads:    false,
			AssumeOnline:        true,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrapf(errors.TypeConfig, err, "read config %s", path)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(errors.TypeConfig, err, "decode config %s", path)
	}

	return config, nil
}

// ApplyEnv overlays environment overrides onto c.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvNoDownload); ok && envTrue(v) {
		c.Currency.DisableDownloads = true
	}
	if v, ok := lookup(EnvCachePath); ok && v != "" {
		c.Currency.CachePath = v
	}
	if v, ok := lookup(EnvFeedURL); ok && v != "" {
		c.Currency.FeedURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
}

// envTrue treats any set value except an explicit false as enabling the switch.
func envTrue(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// Get returns the global configuration, built from defaults and the
// environment on first use.
func Get() *Config {
	globalMu.RLock()
	cfg := globalConfig
	globalMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		globalConfig = Default()
		globalConfig.ApplyEnv()
	}
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = config
}
