package jobs

import (
	"testing"
	"time"
)

func TestJobConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := JobConfigFromEnv()
		want := DefaultJobConfig()
		if *cfg != *want {
			t.Fatalf("expected defaults %+v, got %+v", want, cfg)
		}
		if cfg.TriggerInterval != 30*time.Second {
			t.Fatalf("expected trigger interval 30s, got %v", cfg.TriggerInterval)
		}
	})

	t.Run("abandoned cart sweep tuning", func(t *testing.T) {
		t.Setenv("PCSHOP_JOB_CONCURRENCY", "4")
		t.Setenv("PCSHOP_JOB_POLL_INTERVAL_SECONDS", "1")
		t.Setenv("PCSHOP_JOB_CLAIM_TIMEOUT_MINUTES", "2")
		t.Setenv("PCSHOP_JOB_TRIGGER_INTERVAL_SECONDS", "120")
		t.Setenv("PCSHOP_JOB_RETENTION_DAYS", "3")

		cfg := JobConfigFromEnv()
		if cfg.Concurrency != 4 {
			t.Fatalf("expected concurrency 4, got %d", cfg.Concurrency)
		}
		if cfg.PollInterval != time.Second {
			t.Fatalf("expected poll interval 1s, got %v", cfg.PollInterval)
		}
		if cfg.ClaimTimeout != 2*time.Minute {
			t.Fatalf("expected claim timeout 2m, got %v", cfg.ClaimTimeout)
		}
		if cfg.TriggerInterval != 2*time.Minute {
			t.Fatalf("expected trigger interval 2m, got %v", cfg.TriggerInterval)
		}
		if cfg.RetentionDays != 3 {
			t.Fatalf("expected retention 3 days, got %d", cfg.RetentionDays)
		}
	})

	t.Run("zero retries allowed, zero concurrency is not", func(t *testing.T) {
		t.Setenv("PCSHOP_JOB_MAX_RETRIES", "0")
		t.Setenv("PCSHOP_JOB_CONCURRENCY", "0")

		cfg := JobConfigFromEnv()
		if cfg.MaxRetries != 0 {
			t.Fatalf("expected 0 retries, got %d", cfg.MaxRetries)
		}
		if cfg.Concurrency != 2 {
			t.Fatalf("expected default concurrency, got %d", cfg.Concurrency)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		t.Setenv("PCSHOP_JOB_ENABLED", "false")
		if JobConfigFromEnv().Enabled {
			t.Fatal("expected job system disabled")
		}
	})
}
