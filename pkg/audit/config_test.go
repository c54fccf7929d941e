package audit

import "testing"

func TestAuditConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := AuditConfigFromEnv()
		if !cfg.Enabled || !cfg.LogDenied || cfg.RetentionDays != 90 {
			t.Fatalf("unexpected defaults %+v", cfg)
		}
	})

	t.Run("shop keeps a short trail", func(t *testing.T) {
		t.Setenv("PCSHOP_AUDIT_RETENTION_DAYS", "14")
		t.Setenv("PCSHOP_AUDIT_LOG_DENIED", "0")

		cfg := AuditConfigFromEnv()
		if cfg.RetentionDays != 14 {
			t.Fatalf("expected 14 retention days, got %d", cfg.RetentionDays)
		}
		if cfg.LogDenied {
			t.Fatal("expected denied requests to be skipped")
		}
		if !cfg.Enabled {
			t.Fatal("audit should stay enabled when only retention changes")
		}
	})

	t.Run("unusable values keep defaults", func(t *testing.T) {
		for _, days := range []string{"ninety", "0", "-5"} {
			t.Setenv("PCSHOP_AUDIT_RETENTION_DAYS", days)
			if got := AuditConfigFromEnv().RetentionDays; got != 90 {
				t.Fatalf("retention %q: expected default 90, got %d", days, got)
			}
		}
	})

	t.Run("disabled", func(t *testing.T) {
		t.Setenv("PCSHOP_AUDIT_ENABLED", "false")
		if AuditConfigFromEnv().Enabled {
			t.Fatal("expected audit disabled")
		}
	})
}
