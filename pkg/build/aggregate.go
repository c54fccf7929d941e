// Package build holds a user's selection of products, one per component
// type slot, and keeps its total price and compatibility report current.
package build

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/compat"
)

// MissingAttributeError is returned when a product lacks a compatibility
// attribute its slot requires.
type MissingAttributeError struct {
	TypeName  string
	ProductID uint
	Missing   []string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("product %d cannot fill slot %s: missing attributes %s",
		e.ProductID, e.TypeName, strings.Join(e.Missing, ", "))
}

// DuplicateSlotError is returned when a component is added to a slot that
// is already filled.
type DuplicateSlotError struct {
	TypeID   uint
	TypeName string
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("slot %s is already filled", e.TypeName)
}

// Slot is one filled position of a build.
type Slot struct {
	Product *catalog.Product
	Options datatypes.JSON
}

// Aggregate is the in-memory form of a build. It enforces one product per
// slot and the compatibility attribute requirement on insertion.
type Aggregate struct {
	registry *catalog.Registry
	slots    map[uint]Slot
	total    decimal.Decimal
}

// NewAggregate creates an empty build over the given registry.
func NewAggregate(registry *catalog.Registry) *Aggregate {
	return &Aggregate{
		registry: registry,
		slots:    make(map[uint]Slot),
		total:    decimal.Zero,
	}
}

// AddComponent fills the empty slot typeID with p. The aggregate is left
// unchanged on error.
func (a *Aggregate) AddComponent(typeID uint, p *catalog.Product, options datatypes.JSON) error {
	ct, err := a.checkFit(typeID, p)
	if err != nil {
		return err
	}
	if _, filled := a.slots[typeID]; filled {
		return &DuplicateSlotError{TypeID: typeID, TypeName: ct.Name}
	}
	a.slots[typeID] = Slot{Product: p, Options: options}
	a.recompute()
	return nil
}

// ReplaceComponent puts p into slot typeID whether or not it is filled.
func (a *Aggregate) ReplaceComponent(typeID uint, p *catalog.Product, options datatypes.JSON) error {
	if _, err := a.checkFit(typeID, p); err != nil {
		return err
	}
	a.slots[typeID] = Slot{Product: p, Options: options}
	a.recompute()
	return nil
}

// RemoveComponent empties slot typeID. Removing an empty slot is a no-op.
// It reports whether a component was removed.
func (a *Aggregate) RemoveComponent(typeID uint) bool {
	if _, ok := a.slots[typeID]; !ok {
		return false
	}
	delete(a.slots, typeID)
	a.recompute()
	return true
}

// Slot returns the component in slot typeID.
func (a *Aggregate) Slot(typeID uint) (Slot, bool) {
	s, ok := a.slots[typeID]
	return s, ok
}

// FilledTypes returns the filled slot ids in registry order.
func (a *Aggregate) FilledTypes() []uint {
	var out []uint
	for _, t := range a.registry.Types() {
		if _, ok := a.slots[t.ID]; ok {
			out = append(out, t.ID)
		}
	}
	return out
}

// Len returns the number of filled slots.
func (a *Aggregate) Len() int { return len(a.slots) }

// TotalPrice returns the sum of the prices of the filled slots.
func (a *Aggregate) TotalPrice() decimal.Decimal { return a.total }

// Slots returns the filled slots for evaluation.
func (a *Aggregate) Slots() compat.Slots {
	out := make(compat.Slots, len(a.slots))
	for id, s := range a.slots {
		out[id] = s.Product
	}
	return out
}

// CheckCompatibility evaluates the current selection. It does not modify
// the aggregate.
func (a *Aggregate) CheckCompatibility(ev *compat.Evaluator) (compat.Report, error) {
	return ev.Evaluate(a.Slots())
}

// restore puts a stored component back into its slot without the insertion
// checks; the catalog may have changed since the component was saved.
func (a *Aggregate) restore(typeID uint, p *catalog.Product, options datatypes.JSON) error {
	if _, ok := a.registry.Type(typeID); !ok {
		return &catalog.IntegrityError{
			Entity:  "component type",
			ID:      typeID,
			Message: "stored build component references a missing component type",
		}
	}
	a.slots[typeID] = Slot{Product: p, Options: options}
	a.recompute()
	return nil
}

func (a *Aggregate) checkFit(typeID uint, p *catalog.Product) (catalog.ComponentType, error) {
	ct, ok := a.registry.Type(typeID)
	if !ok {
		return ct, catalog.UnknownReference("component type", typeID)
	}
	if p == nil {
		return ct, &catalog.ValidationError{Code: catalog.CodeInvalidValue, Field: "product_id", Message: "product is required"}
	}
	if p.ComponentTypeID != nil && *p.ComponentTypeID != typeID {
		return ct, &catalog.ValidationError{
			Code:    catalog.CodeInvalidValue,
			Field:   "product_id",
			Message: fmt.Sprintf("product %d does not belong to slot %s", p.ID, ct.Name),
		}
	}
	critical, _ := a.registry.CriticalAttributesFor(typeID)
	var missing []string
	for _, attr := range critical {
		if _, ok := p.Value(attr.ID); !ok {
			missing = append(missing, attr.Name)
		}
	}
	if len(missing) > 0 {
		return ct, &MissingAttributeError{TypeName: ct.Name, ProductID: p.ID, Missing: missing}
	}
	return ct, nil
}

func (a *Aggregate) recompute() {
	total := decimal.Zero
	for _, s := range a.slots {
		total = total.Add(s.Product.Price)
	}
	a.total = total
}
