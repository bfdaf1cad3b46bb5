// Package ratefeed fetches the daily exchange-rate reference document over HTTP.
package ratefeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"unitconvert/internal/config"
	"unitconvert/internal/errors"
	"unitconvert/internal/logging"
)

// Config configures the feed client
type Config struct {
	// URL of the rate document
	URL string `json:"url"`

	// Timeout for a whole request; the caller's context may be shorter
	Timeout time.Duration `json:"timeout"`

	// ProbeTimeout bounds the connectivity check
	ProbeTimeout time.Duration `json:"probe_timeout"`

	// MaxBytes caps the accepted document size
	MaxBytes int64 `json:"max_bytes"`

	// UserAgent sent with every request
	UserAgent string `json:"user_agent"`

	// Headers to include
	Headers map[string]string `json:"headers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		URL:          config.DefaultFeedURL,
		Timeout:      30 * time.Second,
		ProbeTimeout: 3 * time.Second,
		MaxBytes:     1 << 20,
		UserAgent:    "unitconvert/1.0",
		Headers:      make(map[string]string),
	}
}

// ConfigFrom derives the client configuration from the currency settings
func ConfigFrom(cc config.CurrencyConfig) *Config {
	cfg := DefaultConfig()
	if cc.FeedURL != "" {
		cfg.URL = cc.FeedURL
	}
	if timeout := cc.FetchTimeout(); timeout > 0 {
		cfg.Timeout = timeout
	}
	if cc.MaxDocumentBytes > 0 {
		cfg.MaxBytes = cc.MaxDocumentBytes
	}
	return cfg
}

// Adapter is the feed client
type Adapter struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a new feed client
func New(cfg *Config, logger *zap.Logger) *Adapter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Named("ratefeed")
	}
	return &Adapter{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With(zap.String("url", cfg.URL)),
	}
}

// URL returns the document location
func (a *Adapter) URL() string {
	return a.config.URL
}

// Fetch downloads the rate document. Any transport failure, non-200 status
// or oversized body is a network error; nothing is retried.
func (a *Adapter) Fetch(ctx context.Context) ([]byte, error) {
	req, err := a.newRequest(ctx, http.MethodGet)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, errors.Network("rate feed request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf(errors.TypeNetwork, "rate feed returned status %d", resp.StatusCode).
			WithContext("url", a.config.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.config.MaxBytes+1))
	if err != nil {
		return nil, errors.Network("failed to read rate feed", err)
	}
	if int64(len(body)) > a.config.MaxBytes {
		return nil, errors.Newf(errors.TypeNetwork, "rate feed exceeds %d bytes", a.config.MaxBytes)
	}

	a.logger.Debug("rate feed fetched",
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))
	return body, nil
}

// Reachable issues a HEAD request to the feed host and reports whether any
// HTTP response came back. It is the connectivity probe for the refresh
// policy.
func (a *Adapter) Reachable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.ProbeTimeout)
	defer cancel()

	req, err := a.newRequest(ctx, http.MethodHead)
	if err != nil {
		return false
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Debug("rate feed unreachable", zap.Error(err))
		return false
	}
	resp.Body.Close()
	return true
}

func (a *Adapter) newRequest(ctx context.Context, method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.config.URL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, fmt.Sprintf("invalid feed url %q", a.config.URL), err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")
	if a.config.UserAgent != "" {
		req.Header.Set("User-Agent", a.config.UserAgent)
	}
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
