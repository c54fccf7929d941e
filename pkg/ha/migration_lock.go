package ha

import (
	"context"
	"fmt"
	"hash/crc32"
	"time"

	"gorm.io/gorm"
)

// migrationLockName keys both the advisory lock and the fallback lock row.
const migrationLockName = "pcshop-migration"

// MigrationLocker serializes AutoMigrate across replicas.
type MigrationLocker interface {
	// WithLock runs fn while holding the migration lock. It blocks until
	// the lock is acquired and releases it after fn returns.
	WithLock(ctx context.Context, fn func() error) error
}

// NewMigrationLocker returns a locker for the database dialect: PostgreSQL
// uses a session advisory lock, everything else a lock row in
// migration_lock. holder is recorded in the lock row.
func NewMigrationLocker(db *gorm.DB, holder string) MigrationLocker {
	if db == nil {
		return noopMigrationLock{}
	}
	if db.Dialector.Name() == "postgres" {
		return &pgAdvisoryLock{
			db:     db,
			lockID: int64(crc32.ChecksumIEEE([]byte(migrationLockName))),
		}
	}
	if holder == "" {
		holder = defaultIdentity()
	}
	// Create the lock table up front so concurrent first callers never see
	// a missing table.
	_ = db.AutoMigrate(&migrationLockRecord{})
	return &tableMigrationLock{
		db:            db,
		holder:        holder,
		maxAttempts:   30,
		retryInterval: time.Second,
		staleAfter:    5 * time.Minute,
	}
}

type noopMigrationLock struct{}

func (noopMigrationLock) WithLock(_ context.Context, fn func() error) error {
	return fn()
}

type pgAdvisoryLock struct {
	db     *gorm.DB
	lockID int64
}

func (l *pgAdvisoryLock) WithLock(ctx context.Context, fn func() error) error {
	// Advisory locks belong to a session, so lock and unlock must share
	// one connection.
	conn, err := l.db.DB()
	if err != nil {
		return fmt.Errorf("migration lock: %w", err)
	}
	sess, err := conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migration lock connection: %w", err)
	}
	defer sess.Close()

	if _, err := sess.ExecContext(ctx, "SELECT pg_advisory_lock($1)", l.lockID); err != nil {
		return fmt.Errorf("acquire migration advisory lock: %w", err)
	}
	defer func() {
		_, _ = sess.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", l.lockID)
	}()

	return fn()
}

// migrationLockRecord is the lock row for databases without advisory locks.
type migrationLockRecord struct {
	ID       string    `gorm:"primaryKey;column:id;size:64"`
	LockedAt time.Time `gorm:"column:locked_at"`
	LockedBy string    `gorm:"column:locked_by;size:255"`
}

func (migrationLockRecord) TableName() string { return "migration_lock" }

// tableMigrationLock takes the lock by inserting the lock row; the primary
// key makes a second insert fail. Rows older than staleAfter are treated as
// left behind by a crashed holder.
type tableMigrationLock struct {
	db            *gorm.DB
	holder        string
	maxAttempts   int
	retryInterval time.Duration
	staleAfter    time.Duration
}

func (l *tableMigrationLock) WithLock(ctx context.Context, fn func() error) error {
	db := l.db.WithContext(ctx)
	var lastErr error
	for attempt := 1; ; attempt++ {
		db.Where("id = ? AND locked_at < ?", migrationLockName, time.Now().Add(-l.staleAfter)).
			Delete(&migrationLockRecord{})

		row := migrationLockRecord{ID: migrationLockName, LockedAt: time.Now(), LockedBy: l.holder}
		lastErr = db.Create(&row).Error
		if lastErr == nil {
			break
		}
		if attempt >= l.maxAttempts {
			return fmt.Errorf("acquire migration lock after %d attempts: %w", attempt, lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}

	defer l.db.Where("id = ? AND locked_by = ?", migrationLockName, l.holder).Delete(&migrationLockRecord{})

	return fn()
}
