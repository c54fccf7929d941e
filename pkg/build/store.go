package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBuildNotFound is returned when a build does not exist or belongs to
// another user.
var ErrBuildNotFound = errors.New("build not found")

// Store provides persistence for builds and their components.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the build tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Build{}); err != nil {
		return fmt.Errorf("auto-migrate builds: %w", err)
	}
	if err := s.db.AutoMigrate(&BuildComponent{}); err != nil {
		return fmt.Errorf("auto-migrate build_components: %w", err)
	}
	return nil
}

// Create inserts a build and its components in one transaction.
func (s *Store) Create(ctx context.Context, b *Build) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("create build: %w", err)
		}
		return nil
	})
}

// Get returns a build with its components, or nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Build, error) {
	var b Build
	err := s.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get build: %w", err)
	}
	return &b, nil
}

// ListByUser returns a user's builds, most recently updated first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Build, error) {
	var builds []Build
	err := s.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("updated_at DESC").Order("id ASC").
		Find(&builds).Error
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	return builds, nil
}

// Delete removes a build and its components. It reports whether the build existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("build_id = ?", id).Delete(&BuildComponent{}).Error; err != nil {
			return fmt.Errorf("delete build components: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&Build{})
		if res.Error != nil {
			return fmt.Errorf("delete build: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// InsertComponent adds a component row and stores the new total.
func (s *Store) InsertComponent(ctx context.Context, c *BuildComponent, total decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &DuplicateSlotError{TypeID: c.ComponentTypeID}
			}
			return fmt.Errorf("insert build component: %w", err)
		}
		return setTotal(tx, c.BuildID, total)
	})
}

// UpdateComponent puts a product into a slot, filling or replacing it, and
// stores the new total.
func (s *Store) UpdateComponent(ctx context.Context, c *BuildComponent, total decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "build_id"}, {Name: "component_type_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_id", "selected_options"}),
		}).Create(c).Error
		if err != nil {
			return fmt.Errorf("upsert build component: %w", err)
		}
		return setTotal(tx, c.BuildID, total)
	})
}

// DeleteComponent empties a slot and stores the new total.
func (s *Store) DeleteComponent(ctx context.Context, buildID string, typeID uint, total decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("build_id = ? AND component_type_id = ?", buildID, typeID).Delete(&BuildComponent{}).Error; err != nil {
			return fmt.Errorf("delete build component: %w", err)
		}
		return setTotal(tx, buildID, total)
	})
}

func setTotal(tx *gorm.DB, buildID string, total decimal.Decimal) error {
	err := tx.Model(&Build{}).Where("id = ?", buildID).
		Updates(map[string]any{"total_price": total, "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("update build total: %w", err)
	}
	return nil
}
