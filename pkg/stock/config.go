package stock

import (
	"os"
	"strconv"
	"time"
)

// Config controls when idle carts give their reservations back.
type Config struct {
	CartTTL         time.Duration // Idle time after which an open cart is abandoned. Default 1h.
	ReleaseInterval time.Duration // How often the release job is scheduled. Default 10m.
}

// DefaultConfig returns the default reservation configuration.
func DefaultConfig() Config {
	return Config{
		CartTTL:         time.Hour,
		ReleaseInterval: 10 * time.Minute,
	}
}

// ConfigFromEnv loads config from environment variables.
// PCSHOP_CART_TTL_MINUTES, PCSHOP_CART_RELEASE_INTERVAL_MINUTES
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("PCSHOP_CART_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CartTTL = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("PCSHOP_CART_RELEASE_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReleaseInterval = time.Duration(n) * time.Minute
		}
	}

	return cfg
}
