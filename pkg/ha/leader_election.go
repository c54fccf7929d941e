package ha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// leaseRecord is one named lease. A replica holds it while ExpiresAt is in
// the future and keeps it by renewing before then.
type leaseRecord struct {
	Name      string    `gorm:"primaryKey;column:name;size:128"`
	Holder    string    `gorm:"column:holder;size:255;not null"`
	RenewedAt time.Time `gorm:"column:renewed_at"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
}

func (leaseRecord) TableName() string { return "leader_leases" }

// LeaderElector elects one replica to run singleton background loops such
// as the job scheduler and audit retention.
type LeaderElector struct {
	db       *gorm.DB
	config   *HAConfig
	identity string
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	isLeader bool
	onStart  func(ctx context.Context)
	onStop   func()
}

// NewLeaderElector creates a LeaderElector using cfg.Identity as this
// replica's identity.
func NewLeaderElector(db *gorm.DB, cfg *HAConfig, logger *slog.Logger) *LeaderElector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultHAConfig()
	}
	return &LeaderElector{
		db:       db,
		config:   cfg,
		identity: cfg.Identity,
		logger:   logger,
		now:      time.Now,
	}
}

// AutoMigrate creates the lease table.
func (le *LeaderElector) AutoMigrate() error {
	if err := le.db.AutoMigrate(&leaseRecord{}); err != nil {
		return fmt.Errorf("auto-migrate leader_leases: %w", err)
	}
	return nil
}

// OnStartLeading registers a callback invoked when this instance becomes
// leader. Its context is cancelled when leadership is lost.
func (le *LeaderElector) OnStartLeading(fn func(ctx context.Context)) {
	le.onStart = fn
}

// OnStopLeading registers a callback invoked when this instance loses
// leadership.
func (le *LeaderElector) OnStopLeading(fn func()) {
	le.onStop = fn
}

// IsLeader returns true if this instance is the current leader.
func (le *LeaderElector) IsLeader() bool {
	le.mu.RLock()
	defer le.mu.RUnlock()
	return le.isLeader
}

// TryAcquire takes or renews the lease. It reports whether this instance
// holds the lease afterwards.
func (le *LeaderElector) TryAcquire(ctx context.Context) (bool, error) {
	db := le.db.WithContext(ctx)
	now := le.now()
	expires := now.Add(le.config.LeaseDuration)

	res := db.Model(&leaseRecord{}).
		Where("name = ? AND (holder = ? OR expires_at < ?)", le.config.LeaseName, le.identity, now).
		Updates(map[string]any{"holder": le.identity, "renewed_at": now, "expires_at": expires})
	if res.Error != nil {
		return false, fmt.Errorf("renew lease: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	createErr := db.Create(&leaseRecord{
		Name:      le.config.LeaseName,
		Holder:    le.identity,
		RenewedAt: now,
		ExpiresAt: expires,
	}).Error
	if createErr == nil {
		return true, nil
	}

	// The insert fails when another replica holds a live lease.
	var current leaseRecord
	err := db.First(&current, "name = ?", le.config.LeaseName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("create lease: %w", createErr)
	}
	if err != nil {
		return false, fmt.Errorf("read lease: %w", err)
	}
	return false, nil
}

// Release gives the lease up if this instance holds it.
func (le *LeaderElector) Release(ctx context.Context) error {
	err := le.db.WithContext(ctx).
		Where("name = ? AND holder = ?", le.config.LeaseName, le.identity).
		Delete(&leaseRecord{}).Error
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// Run participates in leader election until ctx is cancelled. With election
// disabled the instance leads immediately.
func (le *LeaderElector) Run(ctx context.Context) {
	if !le.config.LeaderElectionEnabled || le.db == nil {
		le.logger.Info("leader election disabled, running as leader", "identity", le.identity)
		stop := le.startLeading(ctx)
		<-ctx.Done()
		stop()
		return
	}

	le.logger.Info("starting leader election",
		"identity", le.identity,
		"lease", le.config.LeaseName,
		"leaseDuration", le.config.LeaseDuration,
		"retryPeriod", le.config.RetryPeriod,
	)

	var (
		stop      func()
		lastRenew time.Time
	)
	tick := func() {
		held, err := le.TryAcquire(ctx)
		if err != nil {
			if ctx.Err() == nil {
				le.logger.Error("leader lease attempt failed", "error", err)
			}
			// Keep leading until the lease we last renewed has run out.
			if stop != nil && le.now().After(lastRenew.Add(le.config.LeaseDuration)) {
				stop()
				stop = nil
			}
			return
		}
		switch {
		case held:
			lastRenew = le.now()
			if stop == nil {
				stop = le.startLeading(ctx)
			}
		case stop != nil:
			stop()
			stop = nil
		}
	}

	ticker := time.NewTicker(le.config.RetryPeriod)
	defer ticker.Stop()
	tick()
	for {
		select {
		case <-ctx.Done():
			if stop != nil {
				stop()
				if err := le.Release(context.WithoutCancel(ctx)); err != nil {
					le.logger.Error("failed to release leader lease", "error", err)
				}
			}
			return
		case <-ticker.C:
			tick()
		}
	}
}

// startLeading marks this instance leader and runs the start callback. The
// returned function ends leadership and waits for the callback to return.
func (le *LeaderElector) startLeading(parent context.Context) func() {
	le.mu.Lock()
	le.isLeader = true
	le.mu.Unlock()
	le.logger.Info("elected as leader", "identity", le.identity)

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if le.onStart != nil {
			le.onStart(ctx)
		}
	}()

	return func() {
		cancel()
		<-done
		le.mu.Lock()
		le.isLeader = false
		le.mu.Unlock()
		le.logger.Info("lost leadership", "identity", le.identity)
		if le.onStop != nil {
			le.onStop()
		}
	}
}
