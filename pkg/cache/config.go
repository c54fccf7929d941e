package cache

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CacheConfig holds configuration for the read cache.
type CacheConfig struct {
	// Enabled controls whether caching is active. When false, read endpoints
	// are served uncached.
	Enabled bool

	// CatalogTTL is the TTL for attribute and component type listings.
	CatalogTTL time.Duration

	// RulesTTL is the TTL for rule listings.
	RulesTTL time.Duration

	// MaxSize is the maximum number of entries per cache instance.
	MaxSize int
}

// DefaultCacheConfig returns a CacheConfig with the default TTLs.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:    true,
		CatalogTTL: 5 * time.Minute,
		RulesTTL:   time.Minute,
		MaxSize:    500,
	}
}

// CacheConfigFromEnv reads cache configuration from environment variables,
// falling back to defaults for any unset variable.
//
// Environment variables:
//   - PCSHOP_CACHE_ENABLED: "true" or "false" (default: "true")
//   - PCSHOP_CACHE_CATALOG_TTL: seconds (default: 300)
//   - PCSHOP_CACHE_RULES_TTL: seconds (default: 60)
//   - PCSHOP_CACHE_MAX_SIZE: max entries per cache (default: 500)
func CacheConfigFromEnv() *CacheConfig {
	cfg := DefaultCacheConfig()

	if v := os.Getenv("PCSHOP_CACHE_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true") || v == "1"
	}

	if v := os.Getenv("PCSHOP_CACHE_CATALOG_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.CatalogTTL = time.Duration(secs) * time.Second
		}
	}

	if v := os.Getenv("PCSHOP_CACHE_RULES_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.RulesTTL = time.Duration(secs) * time.Second
		}
	}

	if v := os.Getenv("PCSHOP_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSize = n
		}
	}

	return cfg
}
