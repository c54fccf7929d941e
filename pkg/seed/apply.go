package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/rules"
)

// Result counts what Apply created and what already existed.
type Result struct {
	AttributesCreated     int `json:"attributesCreated"`
	ComponentTypesCreated int `json:"componentTypesCreated"`
	RulesCreated          int `json:"rulesCreated"`
	ProductsCreated       int `json:"productsCreated"`
	Skipped               int `json:"skipped"`
}

// Apply validates f and writes it to the stores. Entries that already
// exist (attributes by name, component types and products by slug, rules
// by attribute pair) are left untouched, so applying the same file twice
// is a no-op.
func Apply(ctx context.Context, f *File, cat *catalog.Store, rs *rules.Store, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	attrIDs := make(map[string]uint, len(f.Attributes))
	for _, spec := range f.Attributes {
		existing, err := cat.AttributeByName(ctx, spec.Name)
		if err != nil {
			return res, err
		}
		if existing != nil {
			attrIDs[spec.Name] = existing.ID
			res.Skipped++
			continue
		}
		attr := spec.model()
		if err := cat.CreateAttribute(ctx, &attr); err != nil {
			return res, fmt.Errorf("attribute %q: %w", spec.Name, err)
		}
		attrIDs[spec.Name] = attr.ID
		res.AttributesCreated++
	}

	typeIDs := make(map[string]uint, len(f.ComponentTypes))
	for _, spec := range f.ComponentTypes {
		existing, err := cat.ComponentTypeBySlug(ctx, spec.Slug)
		if err != nil {
			return res, err
		}
		if existing != nil {
			typeIDs[spec.Slug] = existing.ID
			res.Skipped++
			continue
		}
		ids := make([]uint, 0, len(spec.Attributes))
		for _, name := range spec.Attributes {
			id, err := resolveAttribute(ctx, cat, attrIDs, name)
			if err != nil {
				return res, err
			}
			ids = append(ids, id)
		}
		ct := catalog.ComponentType{Name: spec.Name, Slug: spec.Slug, Required: spec.Required, Order: spec.Order}
		if err := cat.CreateComponentType(ctx, &ct, ids); err != nil {
			return res, fmt.Errorf("component type %q: %w", spec.Slug, err)
		}
		typeIDs[spec.Slug] = ct.ID
		res.ComponentTypesCreated++
	}

	for _, spec := range f.Rules {
		expr, err := ParseRule(spec.Expr)
		if err != nil {
			return res, err
		}
		rule := rules.CompatibilityRule{
			RuleType:    expr.RuleType(),
			SourceValue: expr.SourceValue(),
			TargetValue: expr.TargetValue(),
			Description: spec.Description,
		}
		if rule.SourceTypeID, err = resolveType(ctx, cat, typeIDs, expr.Source.Type); err != nil {
			return res, err
		}
		if rule.TargetTypeID, err = resolveType(ctx, cat, typeIDs, expr.Target.Type); err != nil {
			return res, err
		}
		if rule.SourceAttributeID, err = resolveAttribute(ctx, cat, attrIDs, expr.Source.Attribute); err != nil {
			return res, err
		}
		if rule.TargetAttributeID, err = resolveAttribute(ctx, cat, attrIDs, expr.Target.Attribute); err != nil {
			return res, err
		}
		if err := rs.Create(ctx, &rule); err != nil {
			var verr *catalog.ValidationError
			if errors.As(err, &verr) && verr.Code == catalog.CodeDuplicate {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("rule %q: %w", expr, err)
		}
		res.RulesCreated++
	}

	for _, spec := range f.Products {
		existing, err := cat.ProductBySlug(ctx, spec.Slug)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Skipped++
			continue
		}
		price, err := decimal.NewFromString(spec.Price)
		if err != nil {
			return res, fmt.Errorf("product %q: price: %w", spec.Slug, err)
		}
		p := catalog.Product{Name: spec.Name, Slug: spec.Slug, Price: price, Quantity: spec.Quantity}
		if spec.Type != "" {
			id, err := resolveType(ctx, cat, typeIDs, spec.Type)
			if err != nil {
				return res, err
			}
			p.ComponentTypeID = &id
		}
		raw := make(map[uint]any, len(spec.Values))
		for name, v := range spec.Values {
			id, err := resolveAttribute(ctx, cat, attrIDs, name)
			if err != nil {
				return res, err
			}
			raw[id] = v
		}
		if err := cat.CreateProduct(ctx, &p, raw); err != nil {
			return res, fmt.Errorf("product %q: %w", spec.Slug, err)
		}
		res.ProductsCreated++
	}

	logger.Info("seed applied",
		"attributes", res.AttributesCreated,
		"componentTypes", res.ComponentTypesCreated,
		"rules", res.RulesCreated,
		"products", res.ProductsCreated,
		"skipped", res.Skipped)
	return res, nil
}

// resolveAttribute looks name up in ids first, then in the store.
func resolveAttribute(ctx context.Context, cat *catalog.Store, ids map[string]uint, name string) (uint, error) {
	if id, ok := ids[name]; ok {
		return id, nil
	}
	attr, err := cat.AttributeByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if attr == nil {
		return 0, catalog.UnknownReference("attribute", name)
	}
	ids[name] = attr.ID
	return attr.ID, nil
}

func resolveType(ctx context.Context, cat *catalog.Store, ids map[string]uint, slug string) (uint, error) {
	if id, ok := ids[slug]; ok {
		return id, nil
	}
	ct, err := cat.ComponentTypeBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}
	if ct == nil {
		return 0, catalog.UnknownReference("component type", slug)
	}
	ids[slug] = ct.ID
	return ct.ID, nil
}
