package rules

import (
	"time"

	"github.com/pcshop/configurator/pkg/catalog"
)

// RuleType is the kind of constraint a rule expresses.
type RuleType string

const (
	// Required means the target attribute must equal the expected value.
	Required RuleType = "required"
	// Incompatible means the target attribute must not equal the forbidden value.
	Incompatible RuleType = "incompatible"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	return t == Required || t == Incompatible
}

// CompatibilityRule is a directional constraint between an attribute of a
// source component type and an attribute of a target component type.
type CompatibilityRule struct {
	ID                uint      `gorm:"primaryKey;column:id" json:"id"`
	SourceTypeID      uint      `gorm:"column:source_type_id;uniqueIndex:idx_rule_pair,priority:1;not null" json:"sourceTypeId"`
	SourceAttributeID uint      `gorm:"column:source_attribute_id;uniqueIndex:idx_rule_pair,priority:2;not null" json:"sourceAttributeId"`
	TargetTypeID      uint      `gorm:"column:target_type_id;uniqueIndex:idx_rule_pair,priority:3;not null" json:"targetTypeId"`
	TargetAttributeID uint      `gorm:"column:target_attribute_id;uniqueIndex:idx_rule_pair,priority:4;not null" json:"targetAttributeId"`
	RuleType          RuleType  `gorm:"column:rule_type;size:20;not null" json:"ruleType"`
	SourceValue       string    `gorm:"column:source_value;size:255" json:"sourceValue,omitempty"`
	TargetValue       string    `gorm:"column:target_value;size:255" json:"targetValue,omitempty"`
	Description       string    `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (CompatibilityRule) TableName() string { return "compatibility_rules" }

// Applies reports whether the rule fires for the given source value. A rule
// without a source value applies to every source value.
func (r *CompatibilityRule) Applies(source catalog.Value) bool {
	if r.SourceValue == "" {
		return true
	}
	return catalog.Equal(source, catalog.StringValue(r.SourceValue))
}

// Expected returns the value the target attribute is compared against: the
// explicit target value when set, otherwise the source value itself.
func (r *CompatibilityRule) Expected(source catalog.Value) catalog.Value {
	if r.TargetValue != "" {
		return catalog.StringValue(r.TargetValue)
	}
	return source
}
