package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductLookup resolves products together with their attribute values.
// GetProduct returns nil, nil when the product does not exist.
type ProductLookup interface {
	GetProduct(ctx context.Context, id uint) (*Product, error)
}

// Store provides persistence for attributes, component types and products.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

// AutoMigrate creates or updates the catalog tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Attribute{}); err != nil {
		return fmt.Errorf("auto-migrate attributes: %w", err)
	}
	if err := s.db.AutoMigrate(&ComponentType{}); err != nil {
		return fmt.Errorf("auto-migrate component_types: %w", err)
	}
	if err := s.db.AutoMigrate(&Product{}); err != nil {
		return fmt.Errorf("auto-migrate products: %w", err)
	}
	if err := s.db.AutoMigrate(&AttributeValue{}); err != nil {
		return fmt.Errorf("auto-migrate attribute_values: %w", err)
	}
	return nil
}

// CreateAttribute validates and stores a new attribute.
func (s *Store) CreateAttribute(ctx context.Context, attr *Attribute) error {
	if attr.Name == "" {
		return &ValidationError{Code: CodeInvalidDefinition, Field: "name", Message: "name is required"}
	}
	if !attr.DataType.Valid() {
		return &ValidationError{
			Code:     CodeInvalidDefinition,
			Field:    "dataType",
			Expected: "string, number, boolean or enum",
			Message:  fmt.Sprintf("unsupported data type %q", attr.DataType),
		}
	}
	if attr.DataType != TypeEnum && len(attr.EnumOptions) > 0 {
		return &ValidationError{
			Code:    CodeInvalidDefinition,
			Field:   "enumOptions",
			Message: "enum options are only allowed on enum attributes",
		}
	}
	attr.EnumOptions = dedupe(attr.EnumOptions)

	existing, err := s.AttributeByName(ctx, attr.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return &ValidationError{
			Code:    CodeDuplicate,
			Field:   "name",
			Message: fmt.Sprintf("attribute %q already exists", attr.Name),
		}
	}
	if err := s.db.WithContext(ctx).Create(attr).Error; err != nil {
		return fmt.Errorf("create attribute: %w", err)
	}
	return nil
}

// AddEnumOption appends option to an enum attribute. Adding an option that
// already exists is a no-op.
func (s *Store) AddEnumOption(ctx context.Context, attrID uint, option string) (*Attribute, error) {
	attr, err := s.GetAttribute(ctx, attrID)
	if err != nil {
		return nil, err
	}
	if attr == nil {
		return nil, UnknownReference("attribute", attrID)
	}
	if attr.DataType != TypeEnum {
		return nil, &ValidationError{
			Code:    CodeInvalidDefinition,
			Field:   attr.Name,
			Message: "enum options are only allowed on enum attributes",
		}
	}
	if option == "" {
		return nil, &ValidationError{Code: CodeInvalidValue, Field: attr.Name, Message: "option must not be empty"}
	}
	if attr.Options().Contains(option) {
		return attr, nil
	}
	attr.EnumOptions = append(attr.EnumOptions, option)
	if err := s.db.WithContext(ctx).Model(attr).Update("enum_options", attr.EnumOptions).Error; err != nil {
		return nil, fmt.Errorf("add enum option: %w", err)
	}
	return attr, nil
}

// GetAttribute returns the attribute with the given id, or nil, nil.
func (s *Store) GetAttribute(ctx context.Context, id uint) (*Attribute, error) {
	var attr Attribute
	err := s.db.WithContext(ctx).First(&attr, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attribute: %w", err)
	}
	return &attr, nil
}

// AttributeByName returns the attribute with the given name, or nil, nil.
func (s *Store) AttributeByName(ctx context.Context, name string) (*Attribute, error) {
	var attr Attribute
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&attr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attribute by name: %w", err)
	}
	return &attr, nil
}

// ListAttributes returns every attribute ordered by id.
func (s *Store) ListAttributes(ctx context.Context) ([]Attribute, error) {
	var attrs []Attribute
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&attrs).Error; err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	return attrs, nil
}

// CreateComponentType stores a component type and links it to the given
// compatibility attributes. Every attribute id must exist.
func (s *Store) CreateComponentType(ctx context.Context, ct *ComponentType, attrIDs []uint) error {
	if ct.Name == "" || ct.Slug == "" {
		return &ValidationError{Code: CodeInvalidDefinition, Field: "slug", Message: "name and slug are required"}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ComponentType{}).Where("slug = ?", ct.Slug).Count(&count).Error; err != nil {
			return fmt.Errorf("check component type slug: %w", err)
		}
		if count > 0 {
			return &ValidationError{
				Code:    CodeDuplicate,
				Field:   "slug",
				Message: fmt.Sprintf("component type %q already exists", ct.Slug),
			}
		}

		attrs, err := loadAttributes(tx, attrIDs)
		if err != nil {
			return err
		}
		ct.CompatibilityAttributes = attrs
		if err := tx.Omit("CompatibilityAttributes.*").Create(ct).Error; err != nil {
			return fmt.Errorf("create component type: %w", err)
		}
		return nil
	})
}

func loadAttributes(tx *gorm.DB, ids []uint) ([]Attribute, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var attrs []Attribute
	if err := tx.Where("id IN ?", ids).Find(&attrs).Error; err != nil {
		return nil, fmt.Errorf("load attributes: %w", err)
	}
	if len(attrs) != len(ids) {
		found := NewAttributeIndex(attrs)
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, UnknownReference("attribute", id)
			}
		}
	}
	return attrs, nil
}

// GetComponentType returns the component type with its compatibility
// attributes, or nil, nil.
func (s *Store) GetComponentType(ctx context.Context, id uint) (*ComponentType, error) {
	var ct ComponentType
	err := s.db.WithContext(ctx).Preload("CompatibilityAttributes").First(&ct, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get component type: %w", err)
	}
	return &ct, nil
}

// ComponentTypeBySlug returns the component type with the given slug, or nil, nil.
func (s *Store) ComponentTypeBySlug(ctx context.Context, slug string) (*ComponentType, error) {
	var ct ComponentType
	err := s.db.WithContext(ctx).Preload("CompatibilityAttributes").Where("slug = ?", slug).First(&ct).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get component type by slug: %w", err)
	}
	return &ct, nil
}

// ListComponentTypes returns every component type in (order, id) order.
func (s *Store) ListComponentTypes(ctx context.Context) ([]ComponentType, error) {
	var types []ComponentType
	err := s.db.WithContext(ctx).
		Preload("CompatibilityAttributes").
		Order("sort_order ASC").Order("id ASC").
		Find(&types).Error
	if err != nil {
		return nil, fmt.Errorf("list component types: %w", err)
	}
	return types, nil
}

// Registry loads a registry snapshot of all component types.
func (s *Store) Registry(ctx context.Context) (*Registry, error) {
	types, err := s.ListComponentTypes(ctx)
	if err != nil {
		return nil, err
	}
	return NewRegistry(types), nil
}

// AttributeIndex loads every attribute keyed by id.
func (s *Store) AttributeIndex(ctx context.Context) (AttributeIndex, error) {
	attrs, err := s.ListAttributes(ctx)
	if err != nil {
		return nil, err
	}
	return NewAttributeIndex(attrs), nil
}

// CreateProduct validates raw attribute values and stores the product and
// its values in one transaction. raw is keyed by attribute id.
func (s *Store) CreateProduct(ctx context.Context, p *Product, raw map[uint]any) error {
	if p.Name == "" || p.Slug == "" {
		return &ValidationError{Code: CodeInvalidDefinition, Field: "slug", Message: "name and slug are required"}
	}
	if err := ValidatePrice(p.Price); err != nil {
		return err
	}
	if p.Quantity < 0 {
		return &ValidationError{Code: CodeInvalidValue, Field: "quantity", Message: "quantity must not be negative"}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.ComponentTypeID != nil {
			var count int64
			if err := tx.Model(&ComponentType{}).Where("id = ?", *p.ComponentTypeID).Count(&count).Error; err != nil {
				return fmt.Errorf("check component type: %w", err)
			}
			if count == 0 {
				return UnknownReference("component type", *p.ComponentTypeID)
			}
		}

		ids := make([]uint, 0, len(raw))
		for id := range raw {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		attrs, err := loadAttributes(tx, ids)
		if err != nil {
			return err
		}
		idx := NewAttributeIndex(attrs)

		values := make([]AttributeValue, 0, len(ids))
		for _, id := range ids {
			attr := idx[id]
			val, err := Validate(&attr, raw[id])
			if err != nil {
				return err
			}
			values = append(values, NewAttributeValue(0, id, val))
		}

		p.Values = nil
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		for i := range values {
			values[i].ProductID = p.ID
		}
		if len(values) > 0 {
			if err := tx.Create(&values).Error; err != nil {
				return fmt.Errorf("create attribute values: %w", err)
			}
		}
		p.Values = values
		return nil
	})
}

// SetProductValue validates raw and stores it as the product's value for
// the attribute, replacing any previous value.
func (s *Store) SetProductValue(ctx context.Context, productID, attrID uint, raw any) (Value, error) {
	attr, err := s.GetAttribute(ctx, attrID)
	if err != nil {
		return nil, err
	}
	if attr == nil {
		return nil, UnknownReference("attribute", attrID)
	}
	val, err := Validate(attr, raw)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if count == 0 {
		return nil, UnknownReference("product", productID)
	}

	row := NewAttributeValue(productID, attrID, val)
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "attribute_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "text_value", "number_value", "bool_value"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("set product value: %w", err)
	}
	return val, nil
}

// GetProduct returns the product with its attribute values, or nil, nil.
func (s *Store) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	err := s.db.WithContext(ctx).Preload("Values").First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetProducts returns the products with the given ids keyed by id. Missing
// ids are absent from the result.
func (s *Store) GetProducts(ctx context.Context, ids []uint) (map[uint]*Product, error) {
	out := make(map[uint]*Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []Product
	if err := s.db.WithContext(ctx).Preload("Values").Where("id IN ?", dedupe(ids)).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// ProductBySlug returns the product with the given slug, or nil, nil.
func (s *Store) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var p Product
	err := s.db.WithContext(ctx).Preload("Values").Where("slug = ?", slug).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return &p, nil
}

func dedupe[T comparable](in []T) []T {
	if len(in) == 0 {
		return in
	}
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
