package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ListAttributesHandler handles GET /attributes
func ListAttributesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attrs, err := store.ListAttributes(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list attributes: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attributes": attrs, "size": len(attrs)})
	}
}

type createAttributeRequest struct {
	Name                  string   `json:"name"`
	DataType              DataType `json:"dataType"`
	Unit                  string   `json:"unit"`
	IsRequired            bool     `json:"isRequired"`
	CompatibilityCritical bool     `json:"compatibilityCritical"`
	ValidationRegex       string   `json:"validationRegex"`
	EnumOptions           []string `json:"enumOptions"`
}

// CreateAttributeHandler handles POST /attributes
func CreateAttributeHandler(store *Store, onChange func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAttributeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		attr := &Attribute{
			Name:                  req.Name,
			DataType:              req.DataType,
			Unit:                  req.Unit,
			IsRequired:            req.IsRequired,
			CompatibilityCritical: req.CompatibilityCritical,
			ValidationRegex:       req.ValidationRegex,
			EnumOptions:           req.EnumOptions,
		}
		if err := store.CreateAttribute(r.Context(), attr); err != nil {
			writeStoreError(w, err)
			return
		}
		notify(onChange)
		writeJSON(w, http.StatusCreated, attr)
	}
}

// AddEnumOptionHandler handles POST /attributes/{attributeId}/options
func AddEnumOptionHandler(store *Store, onChange func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uintParam(w, r, "attributeId")
		if !ok {
			return
		}
		var req struct {
			Option string `json:"option"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		attr, err := store.AddEnumOption(r.Context(), id, req.Option)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		notify(onChange)
		writeJSON(w, http.StatusOK, attr)
	}
}

// ListComponentTypesHandler handles GET /component-types
func ListComponentTypesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := store.ListComponentTypes(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list component types: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"componentTypes": types, "size": len(types)})
	}
}

// GetComponentTypeHandler handles GET /component-types/{typeId}
func GetComponentTypeHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uintParam(w, r, "typeId")
		if !ok {
			return
		}
		ct, err := store.GetComponentType(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get component type: %v", err))
			return
		}
		if ct == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("component type %d not found", id))
			return
		}
		writeJSON(w, http.StatusOK, ct)
	}
}

type createComponentTypeRequest struct {
	Name                    string `json:"name"`
	Slug                    string `json:"slug"`
	Required                bool   `json:"required"`
	Order                   int    `json:"order"`
	CompatibilityAttributes []uint `json:"compatibilityAttributes"`
}

// CreateComponentTypeHandler handles POST /component-types
func CreateComponentTypeHandler(store *Store, onChange func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createComponentTypeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		ct := &ComponentType{Name: req.Name, Slug: req.Slug, Required: req.Required, Order: req.Order}
		if err := store.CreateComponentType(r.Context(), ct, req.CompatibilityAttributes); err != nil {
			writeStoreError(w, err)
			return
		}
		notify(onChange)
		writeJSON(w, http.StatusCreated, ct)
	}
}

// productResponse exposes a product with its decoded attribute values keyed
// by attribute name.
type productResponse struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	ComponentTypeID *uint           `json:"componentTypeId,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	IsAvailable     bool            `json:"isAvailable"`
	Attributes      map[string]any  `json:"attributes"`
}

func toProductResponse(p *Product, attrs AttributeIndex) productResponse {
	out := productResponse{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		ComponentTypeID: p.ComponentTypeID,
		Price:           p.Price,
		Quantity:        p.Quantity,
		IsAvailable:     p.IsAvailable,
		Attributes:      make(map[string]any, len(p.Values)),
	}
	for id, v := range p.Attributes() {
		name := strconv.FormatUint(uint64(id), 10)
		if a, ok := attrs[id]; ok {
			name = a.Name
		}
		out.Attributes[name] = jsonValue(v)
	}
	return out
}

func jsonValue(v Value) any {
	switch tv := v.(type) {
	case NumberValue:
		return tv.Amount
	case BoolValue:
		return bool(tv)
	}
	return v.String()
}

// GetProductHandler handles GET /products/{productId}
func GetProductHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uintParam(w, r, "productId")
		if !ok {
			return
		}
		p, err := store.GetProduct(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get product: %v", err))
			return
		}
		if p == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("product %d not found", id))
			return
		}
		attrs, err := store.AttributeIndex(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load attributes: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(p, attrs))
	}
}

type createProductRequest struct {
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	ComponentTypeID *uint           `json:"componentTypeId"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	Attributes      map[string]any  `json:"attributes"`
}

// CreateProductHandler handles POST /products. Attribute values are keyed
// by attribute name.
func CreateProductHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var req createProductRequest
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		raw := make(map[uint]any, len(req.Attributes))
		for name, v := range req.Attributes {
			attr, err := store.AttributeByName(r.Context(), name)
			if err != nil {
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to resolve attribute: %v", err))
				return
			}
			if attr == nil {
				writeStoreError(w, UnknownReference("attribute", name))
				return
			}
			raw[attr.ID] = v
		}
		p := &Product{
			Name:            req.Name,
			Slug:            req.Slug,
			ComponentTypeID: req.ComponentTypeID,
			Price:           req.Price,
			Quantity:        req.Quantity,
		}
		if err := store.CreateProduct(r.Context(), p, raw); err != nil {
			writeStoreError(w, err)
			return
		}
		attrs, err := store.AttributeIndex(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load attributes: %v", err))
			return
		}
		writeJSON(w, http.StatusCreated, toProductResponse(p, attrs))
	}
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}

func uintParam(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return uint(id), true
}

func writeStoreError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]any{"error": verr.Error(), "code": verr.Code, "field": verr.Field, "expected": verr.Expected})
		return
	}
	slog.Error("catalog request failed", "error", err)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
