package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Attribute is a typed, named property that products of some component
// types carry (socket, TDP, memory type...).
type Attribute struct {
	ID                    uint            `gorm:"primaryKey;column:id" json:"id"`
	Name                  string          `gorm:"column:name;size:255;uniqueIndex:idx_attribute_name;not null" json:"name"`
	DataType              DataType        `gorm:"column:data_type;size:10;index:idx_attribute_type_required,priority:1;not null" json:"dataType"`
	Unit                  string          `gorm:"column:unit;size:20" json:"unit,omitempty"`
	IsRequired            bool            `gorm:"column:is_required;index:idx_attribute_type_required,priority:2;default:false" json:"isRequired"`
	CompatibilityCritical bool            `gorm:"column:compatibility_critical;default:false" json:"compatibilityCritical"`
	ValidationRegex       string          `gorm:"column:validation_regex;size:255" json:"validationRegex,omitempty"`
	EnumOptions           JSONStringSlice `gorm:"column:enum_options;type:text" json:"enumOptions,omitempty"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (Attribute) TableName() string { return "attributes" }

// Options returns the enum options as a set.
func (a *Attribute) Options() mapset.Set[string] {
	return mapset.NewThreadUnsafeSet([]string(a.EnumOptions)...)
}

// AttributeIndex maps attribute ids to attributes.
type AttributeIndex map[uint]Attribute

// NewAttributeIndex indexes attrs by id.
func NewAttributeIndex(attrs []Attribute) AttributeIndex {
	idx := make(AttributeIndex, len(attrs))
	for _, a := range attrs {
		idx[a.ID] = a
	}
	return idx
}

// ByName returns the attribute with the given name.
func (idx AttributeIndex) ByName(name string) (Attribute, bool) {
	for _, a := range idx {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// ComponentType is a build slot ("Processor", "Power supply"). Required
// slots must be filled for a build to be complete.
type ComponentType struct {
	ID                      uint        `gorm:"primaryKey;column:id" json:"id"`
	Name                    string      `gorm:"column:name;size:255;not null" json:"name"`
	Slug                    string      `gorm:"column:slug;size:255;uniqueIndex:idx_component_type_slug;not null" json:"slug"`
	Required                bool        `gorm:"column:required;default:false" json:"required"`
	Order                   int         `gorm:"column:sort_order;default:0" json:"order"`
	CompatibilityAttributes []Attribute `gorm:"many2many:component_type_attributes;" json:"compatibilityAttributes,omitempty"`
	CreatedAt               time.Time   `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt               time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (ComponentType) TableName() string { return "component_types" }

// AttributeIDs returns the ids of the type's compatibility attributes.
func (c *ComponentType) AttributeIDs() mapset.Set[uint] {
	ids := mapset.NewThreadUnsafeSet[uint]()
	for _, a := range c.CompatibilityAttributes {
		ids.Add(a.ID)
	}
	return ids
}

// Product is a sellable part together with its typed attribute values.
type Product struct {
	ID              uint             `gorm:"primaryKey;column:id" json:"id"`
	Name            string           `gorm:"column:name;size:255;not null" json:"name"`
	Slug            string           `gorm:"column:slug;size:255;uniqueIndex:idx_product_slug;not null" json:"slug"`
	ComponentTypeID *uint            `gorm:"column:component_type_id;index:idx_product_type_available,priority:1" json:"componentTypeId,omitempty"`
	Price           decimal.Decimal  `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	Quantity        int              `gorm:"column:quantity;not null;default:0" json:"quantity"`
	IsAvailable     bool             `gorm:"column:is_available;index:idx_product_type_available,priority:2;default:false" json:"isAvailable"`
	Values          []AttributeValue `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName returns the GORM table name.
func (Product) TableName() string { return "products" }

// BeforeSave keeps availability in step with the stock level.
func (p *Product) BeforeSave(*gorm.DB) error {
	p.IsAvailable = p.Quantity > 0
	return nil
}

// Attributes returns the product's decoded attribute values keyed by
// attribute id. Rows that fail to decode are left out.
func (p *Product) Attributes() map[uint]Value {
	out := make(map[uint]Value, len(p.Values))
	for _, v := range p.Values {
		if tv, err := v.Typed(); err == nil {
			out[v.AttributeID] = tv
		}
	}
	return out
}

// Value returns the product's value for attrID.
func (p *Product) Value(attrID uint) (Value, bool) {
	for _, v := range p.Values {
		if v.AttributeID != attrID {
			continue
		}
		tv, err := v.Typed()
		if err != nil {
			return nil, false
		}
		return tv, true
	}
	return nil, false
}

// AttributeIDs returns the ids of every attribute the product carries, sorted.
func (p *Product) AttributeIDs() []uint {
	ids := make([]uint, 0, len(p.Values))
	for _, v := range p.Values {
		ids = append(ids, v.AttributeID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AttributeValue is the stored form of one product's value for one
// attribute. Exactly one of the typed columns is populated, selected by Kind.
type AttributeValue struct {
	ID          uint                `gorm:"primaryKey;column:id" json:"id"`
	ProductID   uint                `gorm:"column:product_id;uniqueIndex:idx_product_attribute,priority:1;not null" json:"productId"`
	AttributeID uint                `gorm:"column:attribute_id;uniqueIndex:idx_product_attribute,priority:2;index;not null" json:"attributeId"`
	Kind        DataType            `gorm:"column:kind;size:10;not null" json:"kind"`
	Text        string              `gorm:"column:text_value" json:"text,omitempty"`
	Number      decimal.NullDecimal `gorm:"column:number_value;type:decimal(20,6)" json:"number,omitempty"`
	Flag        *bool               `gorm:"column:bool_value" json:"flag,omitempty"`
}

// TableName returns the GORM table name.
func (AttributeValue) TableName() string { return "attribute_values" }

// Typed decodes the stored row into a Value.
func (v AttributeValue) Typed() (Value, error) {
	switch v.Kind {
	case TypeString:
		return StringValue(v.Text), nil
	case TypeEnum:
		return EnumValue(v.Text), nil
	case TypeNumber:
		if !v.Number.Valid {
			return nil, fmt.Errorf("attribute value %d: number column is null", v.ID)
		}
		return Number(v.Number.Decimal), nil
	case TypeBoolean:
		if v.Flag == nil {
			return nil, fmt.Errorf("attribute value %d: boolean column is null", v.ID)
		}
		return BoolValue(*v.Flag), nil
	}
	return nil, fmt.Errorf("attribute value %d: unknown kind %q", v.ID, v.Kind)
}

// NewAttributeValue encodes val into its stored form.
func NewAttributeValue(productID, attributeID uint, val Value) AttributeValue {
	row := AttributeValue{
		ProductID:   productID,
		AttributeID: attributeID,
		Kind:        val.Type(),
	}
	switch tv := val.(type) {
	case StringValue:
		row.Text = string(tv)
	case EnumValue:
		row.Text = string(tv)
	case NumberValue:
		row.Number = decimal.NullDecimal{Decimal: tv.Amount, Valid: true}
	case BoolValue:
		b := bool(tv)
		row.Flag = &b
	}
	return row
}
