// Package config holds the externally supplied configuration for the
// chainlens core: per-ledger backend URLs, the shared price-quote
// endpoint, and the cache/rate-limit/timeout knobs. The core consumes
// this configuration; it never produces or persists it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chainlens/chainlens/internal/ledger"
)

// Defaults for the knobs the adapters consume.
const (
	DefaultCacheTTL       = 60 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultMinDelay       = time.Second
)

// LedgerConfig configures one ledger backend.
type LedgerConfig struct {
	BaseURL string `yaml:"base_url"`

	// APIKey is required by metered backends (ethereum) and ignored
	// by the others.
	APIKey string `yaml:"api_key,omitempty"`

	// MinDelay is the minimum spacing between requests to one
	// endpoint of this backend.
	MinDelay time.Duration `yaml:"min_delay,omitempty"`
}

// Config is the root configuration.
type Config struct {
	Ledgers map[ledger.ID]LedgerConfig `yaml:"ledgers"`

	// PriceURL is the shared spot-price quote endpoint, keyed by
	// ledger price key. Empty disables price lookups.
	PriceURL string `yaml:"price_url"`

	CacheTTL       time.Duration `yaml:"cache_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the default configuration for all supported ledgers.
func Default() *Config {
	return &Config{
		Ledgers: map[ledger.ID]LedgerConfig{
			ledger.Bitcoin: {
				BaseURL:  "https://blockchain.info",
				MinDelay: DefaultMinDelay,
			},
			ledger.Ethereum: {
				BaseURL:  "https://api.etherscan.io/api",
				MinDelay: 250 * time.Millisecond,
			},
			ledger.Dogecoin: {
				BaseURL:  "https://doge1.trezor.io/api/v2",
				MinDelay: 500 * time.Millisecond,
			},
		},
		PriceURL:       "https://api.coingecko.com/api/v3/simple/price",
		CacheTTL:       DefaultCacheTTL,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Load reads a YAML config file, layering it over the defaults.
// A missing file returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// Ledger returns the config for one ledger.
func (c *Config) Ledger(id ledger.ID) (LedgerConfig, bool) {
	lc, ok := c.Ledgers[id]
	return lc, ok
}

// normalize fills zero-valued knobs with their defaults.
func (c *Config) normalize() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	for id, lc := range c.Ledgers {
		if lc.MinDelay <= 0 {
			lc.MinDelay = DefaultMinDelay
			c.Ledgers[id] = lc
		}
	}
}
