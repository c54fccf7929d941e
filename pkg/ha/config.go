// Package ha provides primitives for running several server replicas
// against one database: migration locking and lease-based leader election.
package ha

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// HAConfig holds configuration for high-availability features.
type HAConfig struct {
	// LeaderElectionEnabled controls whether replicas compete for the leader
	// lease. When false, the instance behaves as the sole leader.
	LeaderElectionEnabled bool

	// LeaseName is the row key of the lease in the leader_leases table.
	LeaseName string

	// LeaseDuration is how long a lease stays valid without renewal.
	LeaseDuration time.Duration

	// RetryPeriod is the interval between acquire or renew attempts.
	RetryPeriod time.Duration

	// MigrationLockEnabled controls whether AutoMigrate runs under the
	// migration lock.
	MigrationLockEnabled bool

	// Identity names this instance in lease and lock rows. Defaults to
	// POD_NAME or the hostname.
	Identity string
}

// DefaultHAConfig returns an HAConfig with the default lease timings.
func DefaultHAConfig() *HAConfig {
	return &HAConfig{
		LeaderElectionEnabled: false,
		LeaseName:             "pcshop-leader",
		LeaseDuration:         15 * time.Second,
		RetryPeriod:           2 * time.Second,
		MigrationLockEnabled:  true,
		Identity:              defaultIdentity(),
	}
}

// HAConfigFromEnv reads HA configuration from environment variables,
// falling back to defaults for any unset variable.
//
// Environment variables:
//   - PCSHOP_LEADER_ELECTION_ENABLED: "true" or "false" (default: "false")
//   - PCSHOP_LEADER_LEASE_NAME: lease row name (default: "pcshop-leader")
//   - PCSHOP_LEADER_LEASE_DURATION: seconds (default: 15)
//   - PCSHOP_LEADER_RETRY_PERIOD: seconds (default: 2)
//   - PCSHOP_MIGRATION_LOCK_ENABLED: "true" or "false" (default: "true")
//   - POD_NAME: instance identity
func HAConfigFromEnv() *HAConfig {
	cfg := DefaultHAConfig()

	if v := os.Getenv("PCSHOP_LEADER_ELECTION_ENABLED"); v != "" {
		cfg.LeaderElectionEnabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("PCSHOP_LEADER_LEASE_NAME"); v != "" {
		cfg.LeaseName = v
	}
	if v := os.Getenv("PCSHOP_LEADER_LEASE_DURATION"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.LeaseDuration = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("PCSHOP_LEADER_RETRY_PERIOD"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.RetryPeriod = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("PCSHOP_MIGRATION_LOCK_ENABLED"); v != "" {
		cfg.MigrationLockEnabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("POD_NAME"); v != "" {
		cfg.Identity = v
	}

	return cfg
}

func defaultIdentity() string {
	if v := os.Getenv("POD_NAME"); v != "" {
		return v
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
