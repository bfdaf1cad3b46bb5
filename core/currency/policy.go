package currency

import (
	"time"

	"unitconvert/internal/config"
)

// Policy decides when the rate table is refreshed.
type Policy struct {
	// MaxAge is the staleness threshold of the cached document
	MaxAge time.Duration

	// FetchTimeout bounds a single fetch; a timeout is an ordinary failure
	FetchTimeout time.Duration

	// DownloadsDisabled forbids all network access
	DownloadsDisabled bool

	// Online reports whether the network looks reachable. Nil means assume it is.
	Online func() bool
}

// DefaultPolicy refreshes daily and assumes connectivity.
func DefaultPolicy() Policy {
	return Policy{
		MaxAge:       24 * time.Hour,
		FetchTimeout: 30 * time.Second,
	}
}

// PolicyFromConfig builds a policy from configuration. The caller supplies
// the connectivity probe when AssumeOnline is off.
func PolicyFromConfig(cfg config.CurrencyConfig, probe func() bool) Policy {
	p := DefaultPolicy()
	if age := cfg.MaxAge(); age > 0 {
		p.MaxAge = age
	}
	if timeout := cfg.FetchTimeout(); timeout > 0 {
		p.FetchTimeout = timeout
	}
	p.DownloadsDisabled = cfg.DisableDownloads
	if !cfg.AssumeOnline {
		p.Online = probe
	}
	return p
}

func (p Policy) allowsDownload() bool {
	if p.DownloadsDisabled {
		return false
	}
	if p.Online != nil && !p.Online() {
		return false
	}
	return true
}
