package rules

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pcshop/configurator/pkg/catalog"
)

// Store provides persistence for compatibility rules.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the compatibility_rules table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&CompatibilityRule{}); err != nil {
		return fmt.Errorf("auto-migrate compatibility_rules: %w", err)
	}
	return nil
}

// Create validates and stores a rule. Self-referential rules, rules that
// reference missing component types or attributes, and duplicates of an
// existing (source type, source attribute, target type, target attribute)
// tuple are rejected with a *catalog.ValidationError.
func (s *Store) Create(ctx context.Context, rule *CompatibilityRule) error {
	if !rule.RuleType.Valid() {
		return &catalog.ValidationError{
			Code:     catalog.CodeInvalidDefinition,
			Field:    "ruleType",
			Expected: "required or incompatible",
			Message:  fmt.Sprintf("unknown rule type %q", rule.RuleType),
		}
	}
	if rule.SourceTypeID == rule.TargetTypeID {
		return &catalog.ValidationError{
			Code:    catalog.CodeSelfReference,
			Field:   "targetTypeId",
			Message: "source and target component types must differ",
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkType(tx, rule.SourceTypeID, "source component type"); err != nil {
			return err
		}
		if err := checkType(tx, rule.TargetTypeID, "target component type"); err != nil {
			return err
		}
		src, err := loadAttribute(tx, rule.SourceAttributeID, "source attribute")
		if err != nil {
			return err
		}
		dst, err := loadAttribute(tx, rule.TargetAttributeID, "target attribute")
		if err != nil {
			return err
		}
		if rule.SourceValue != "" {
			if _, err := catalog.Validate(src, rule.SourceValue); err != nil {
				return err
			}
		}
		if rule.TargetValue != "" {
			if _, err := catalog.Validate(dst, rule.TargetValue); err != nil {
				return err
			}
		}

		var count int64
		err = tx.Model(&CompatibilityRule{}).
			Where("source_type_id = ? AND source_attribute_id = ? AND target_type_id = ? AND target_attribute_id = ?",
				rule.SourceTypeID, rule.SourceAttributeID, rule.TargetTypeID, rule.TargetAttributeID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("check duplicate rule: %w", err)
		}
		if count > 0 {
			return &catalog.ValidationError{
				Code:    catalog.CodeDuplicate,
				Field:   "rule",
				Message: "a rule for this source/target attribute pair already exists",
			}
		}

		if err := tx.Create(rule).Error; err != nil {
			return fmt.Errorf("create rule: %w", err)
		}
		return nil
	})
}

func checkType(tx *gorm.DB, id uint, label string) error {
	var count int64
	if err := tx.Model(&catalog.ComponentType{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check %s: %w", label, err)
	}
	if count == 0 {
		return catalog.UnknownReference(label, id)
	}
	return nil
}

func loadAttribute(tx *gorm.DB, id uint, label string) (*catalog.Attribute, error) {
	var attr catalog.Attribute
	if err := tx.First(&attr, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.UnknownReference(label, id)
		}
		return nil, fmt.Errorf("load %s: %w", label, err)
	}
	return &attr, nil
}

// Get returns the rule with the given id, or nil, nil.
func (s *Store) Get(ctx context.Context, id uint) (*CompatibilityRule, error) {
	var rule CompatibilityRule
	err := s.db.WithContext(ctx).First(&rule, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return &rule, nil
}

// List returns every rule in insertion order.
func (s *Store) List(ctx context.Context) ([]CompatibilityRule, error) {
	var rules []CompatibilityRule
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// Delete removes a rule. It reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&CompatibilityRule{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete rule: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RuleSet loads a snapshot of every rule.
func (s *Store) RuleSet(ctx context.Context) (*RuleSet, error) {
	rules, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return NewRuleSet(rules), nil
}
