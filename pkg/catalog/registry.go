package catalog

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Registry is an immutable snapshot of the component types, ordered by
// (Order, ID).
type Registry struct {
	types []ComponentType
	byID  map[uint]int
}

// NewRegistry builds a registry from types. The input slice is not retained.
func NewRegistry(types []ComponentType) *Registry {
	sorted := make([]ComponentType, len(types))
	copy(sorted, types)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].ID < sorted[j].ID
	})
	byID := make(map[uint]int, len(sorted))
	for i, t := range sorted {
		byID[t.ID] = i
	}
	return &Registry{types: sorted, byID: byID}
}

// Types returns every component type in registry order.
func (r *Registry) Types() []ComponentType {
	out := make([]ComponentType, len(r.types))
	copy(out, r.types)
	return out
}

// Type returns the component type with the given id.
func (r *Registry) Type(id uint) (ComponentType, bool) {
	i, ok := r.byID[id]
	if !ok {
		return ComponentType{}, false
	}
	return r.types[i], true
}

// BySlug returns the component type with the given slug.
func (r *Registry) BySlug(slug string) (ComponentType, bool) {
	for _, t := range r.types {
		if t.Slug == slug {
			return t, true
		}
	}
	return ComponentType{}, false
}

// RequiredTypes returns the required component types in registry order.
func (r *Registry) RequiredTypes() []ComponentType {
	var out []ComponentType
	for _, t := range r.types {
		if t.Required {
			out = append(out, t)
		}
	}
	return out
}

// RequiredIDs returns the ids of the required component types.
func (r *Registry) RequiredIDs() mapset.Set[uint] {
	ids := mapset.NewThreadUnsafeSet[uint]()
	for _, t := range r.types {
		if t.Required {
			ids.Add(t.ID)
		}
	}
	return ids
}

// CriticalAttributesFor returns the compatibility attributes a product must
// carry to fill the slot of the given type. The bool is false for an
// unknown type.
func (r *Registry) CriticalAttributesFor(typeID uint) ([]Attribute, bool) {
	t, ok := r.Type(typeID)
	if !ok {
		return nil, false
	}
	out := make([]Attribute, len(t.CompatibilityAttributes))
	copy(out, t.CompatibilityAttributes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, true
}

// Len returns the number of registered types.
func (r *Registry) Len() int { return len(r.types) }
