package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"unitconvert/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Currency.MaxAge() != 24*time.Hour {
		t.Errorf("expected 24h staleness threshold, got %v", cfg.Currency.MaxAge())
	}
	if cfg.Currency.FetchTimeout() != 30*time.Second {
		t.Errorf("expected 30s fetch timeout, got %v", cfg.Currency.FetchTimeout())
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Currency.FeedURL != DefaultFeedURL {
		t.Errorf("expected default feed URL, got %s", cfg.Currency.FeedURL)
	}
}

func TestLoadKeepsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"currency": {"max_age_seconds": 3600, "disable_downloads": true}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Currency.MaxAge() != time.Hour {
		t.Errorf("expected 1h, got %v", loaded.Currency.MaxAge())
	}
	if !loaded.Currency.DisableDownloads {
		t.Error("expected downloads to stay disabled")
	}
	if loaded.Currency.FeedURL != DefaultFeedURL || loaded.Currency.FetchTimeoutSeconds != 30 {
		t.Error("settings absent from the file must keep their defaults")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{currency"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.IsType(err, errors.TypeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantDisabled bool
		wantCache    string
		wantLevel    string
	}{
		{
			name:         "no overrides",
			env:          map[string]string{},
			wantDisabled: false,
			wantLevel:    "warn",
		},
		{
			name:         "empty no-download value disables",
			env:          map[string]string{EnvNoDownload: ""},
			wantDisabled: true,
			wantLevel:    "warn",
		},
		{
			name:         "explicit false keeps downloads",
			env:          map[string]string{EnvNoDownload: "false"},
			wantDisabled: false,
			wantLevel:    "warn",
		},
		{
			name:         "cache path and level",
			env:          map[string]string{EnvCachePath: "/var/cache/rates.xml", EnvLogLevel: "debug"},
			wantDisabled: false,
			wantCache:    "/var/cache/rates.xml",
			wantLevel:    "debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.applyEnv(func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			})

			if cfg.Currency.DisableDownloads != tt.wantDisabled {
				t.Errorf("DisableDownloads: expected %v, got %v", tt.wantDisabled, cfg.Currency.DisableDownloads)
			}
			if tt.wantCache != "" && cfg.Currency.CachePath != tt.wantCache {
				t.Errorf("CachePath: expected %s, got %s", tt.wantCache, cfg.Currency.CachePath)
			}
			if cfg.Logging.Level != tt.wantLevel {
				t.Errorf("Level: expected %s, got %s", tt.wantLevel, cfg.Logging.Level)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Currency.FetchTimeoutSeconds = 0
	if err := cfg.Validate(); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected config error for zero timeout, got %v", err)
	}

	cfg = Default()
	cfg.Currency.FeedURL = ""
	cfg.Currency.DisableDownloads = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("feed URL is optional with downloads disabled: %v", err)
	}

	cfg = Default()
	cfg.Currency.CacheBackend = "memory"
	cfg.Currency.CachePath = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory backend needs no path: %v", err)
	}

	cfg.Currency.CacheBackend = "redis"
	if err := cfg.Validate(); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected config error for unknown backend, got %v", err)
	}
}

func TestGetSet(t *testing.T) {
	previous := Get()
	t.Cleanup(func() { Set(previous) })

	custom := Default()
	custom.Currency.MaxAgeSeconds = 60
	Set(custom)
	if Get() != custom {
		t.Error("Get must return the configuration passed to Set")
	}
}
