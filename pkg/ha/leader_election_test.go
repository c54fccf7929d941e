package ha

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLeaseConfig(identity string) *HAConfig {
	return &HAConfig{
		LeaderElectionEnabled: true,
		LeaseName:             "test-lease",
		LeaseDuration:         time.Minute,
		RetryPeriod:           10 * time.Millisecond,
		Identity:              identity,
	}
}

func newTestElector(t *testing.T, cfg *HAConfig) *LeaderElector {
	t.Helper()
	db := setupTestDB(t)
	le := NewLeaderElector(db, cfg, slog.Default())
	if err := le.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return le
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestLeaderElector_IsLeaderDefault(t *testing.T) {
	le := NewLeaderElector(nil, testLeaseConfig("a"), slog.Default())
	if le.IsLeader() {
		t.Error("IsLeader should return false initially")
	}
}

func TestNewLeaderElector_NilLogger(t *testing.T) {
	le := NewLeaderElector(nil, nil, nil)
	if le.logger == nil {
		t.Error("logger should default to slog.Default() when nil")
	}
	if le.config == nil {
		t.Error("config should default when nil")
	}
}

func TestTryAcquire_ExclusiveUntilExpiry(t *testing.T) {
	a := newTestElector(t, testLeaseConfig("replica-a"))
	b := NewLeaderElector(a.db, testLeaseConfig("replica-b"), nil)
	ctx := context.Background()

	held, err := a.TryAcquire(ctx)
	if err != nil || !held {
		t.Fatalf("a.TryAcquire = %v, %v; want true, nil", held, err)
	}

	held, err = b.TryAcquire(ctx)
	if err != nil || held {
		t.Fatalf("b.TryAcquire = %v, %v; want false, nil", held, err)
	}

	// Renewal by the holder succeeds.
	held, err = a.TryAcquire(ctx)
	if err != nil || !held {
		t.Fatalf("a renew = %v, %v; want true, nil", held, err)
	}

	// Once a's lease has run out b takes over.
	b.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	held, err = b.TryAcquire(ctx)
	if err != nil || !held {
		t.Fatalf("b takeover = %v, %v; want true, nil", held, err)
	}

	var row leaseRecord
	if err := a.db.First(&row, "name = ?", "test-lease").Error; err != nil {
		t.Fatalf("read lease: %v", err)
	}
	if row.Holder != "replica-b" {
		t.Errorf("Holder = %q, want replica-b", row.Holder)
	}
}

func TestRelease_OnlyByHolder(t *testing.T) {
	a := newTestElector(t, testLeaseConfig("replica-a"))
	b := NewLeaderElector(a.db, testLeaseConfig("replica-b"), nil)
	ctx := context.Background()

	if _, err := a.TryAcquire(ctx); err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if err := b.Release(ctx); err != nil {
		t.Fatalf("b.Release: %v", err)
	}
	if held, _ := b.TryAcquire(ctx); held {
		t.Fatal("release by a non-holder must not free the lease")
	}

	if err := a.Release(ctx); err != nil {
		t.Fatalf("a.Release: %v", err)
	}
	if held, err := b.TryAcquire(ctx); err != nil || !held {
		t.Fatalf("b.TryAcquire after release = %v, %v; want true, nil", held, err)
	}
}

func TestRun_ElectionDisabledLeadsImmediately(t *testing.T) {
	cfg := testLeaseConfig("solo")
	cfg.LeaderElectionEnabled = false
	le := NewLeaderElector(nil, cfg, nil)

	var started, stopped atomic.Bool
	le.OnStartLeading(func(ctx context.Context) {
		started.Store(true)
		<-ctx.Done()
	})
	le.OnStopLeading(func() { stopped.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		le.Run(ctx)
		close(done)
	}()

	waitFor(t, started.Load)
	if !le.IsLeader() {
		t.Error("expected IsLeader while running with election disabled")
	}

	cancel()
	<-done
	if !stopped.Load() {
		t.Error("OnStopLeading was not called")
	}
	if le.IsLeader() {
		t.Error("expected IsLeader=false after Run returns")
	}
}

func TestRun_SingleLeaderAndHandover(t *testing.T) {
	a := newTestElector(t, testLeaseConfig("replica-a"))
	b := NewLeaderElector(a.db, testLeaseConfig("replica-b"), nil)

	var aLeading, bLeading atomic.Int32
	a.OnStartLeading(func(ctx context.Context) {
		aLeading.Add(1)
		<-ctx.Done()
	})
	b.OnStartLeading(func(ctx context.Context) {
		bLeading.Add(1)
		<-ctx.Done()
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan struct{})
	go func() {
		a.Run(ctxA)
		close(doneA)
	}()
	waitFor(t, a.IsLeader)

	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()
	doneB := make(chan struct{})
	go func() {
		b.Run(ctxB)
		close(doneB)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.IsLeader() {
		t.Fatal("two replicas lead at once")
	}

	// Stopping a releases the lease so b takes over without waiting for
	// expiry.
	cancelA()
	<-doneA
	waitFor(t, b.IsLeader)

	if aLeading.Load() != 1 || bLeading.Load() != 1 {
		t.Errorf("start callbacks a=%d b=%d, want 1 each", aLeading.Load(), bLeading.Load())
	}

	cancelB()
	<-doneB
}
