package build

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Build is a user's saved selection of components.
type Build struct {
	ID          string           `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	UserID      string           `gorm:"column:user_id;size:255;index:idx_build_user;not null" json:"userId"`
	Name        string           `gorm:"column:name;size:255;not null" json:"name"`
	Description string           `gorm:"column:description;type:text" json:"description,omitempty"`
	TotalPrice  decimal.Decimal  `gorm:"column:total_price;type:decimal(12,2);not null" json:"totalPrice"`
	Components  []BuildComponent `gorm:"foreignKey:BuildID;constraint:OnDelete:CASCADE" json:"components"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (Build) TableName() string { return "builds" }

// BuildComponent fills one component type slot of a build.
type BuildComponent struct {
	ID              uint           `gorm:"primaryKey;column:id" json:"id"`
	BuildID         string         `gorm:"column:build_id;type:varchar(36);uniqueIndex:idx_build_slot,priority:1;not null" json:"buildId"`
	ComponentTypeID uint           `gorm:"column:component_type_id;uniqueIndex:idx_build_slot,priority:2;not null" json:"componentTypeId"`
	ProductID       uint           `gorm:"column:product_id;index;not null" json:"productId"`
	SelectedOptions datatypes.JSON `gorm:"column:selected_options" json:"selectedOptions,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName returns the GORM table name.
func (BuildComponent) TableName() string { return "build_components" }

// ComponentInput is one entry of a build submission.
type ComponentInput struct {
	ComponentTypeID uint           `json:"component_type_id" yaml:"component_type_id"`
	ProductID       uint           `json:"product_id" yaml:"product_id"`
	Options         datatypes.JSON `json:"options,omitempty" yaml:"-"`
}

// SubmitRequest is the build submission payload.
type SubmitRequest struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Components  []ComponentInput `json:"components" yaml:"components"`
}
