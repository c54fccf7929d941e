package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the catalog administration API.
// onChange is called after every successful mutation; pass nil to skip.
// readMiddleware wraps the read endpoints (for example a response cache).
func Router(store *Store, onChange func(), readMiddleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(readMiddleware...)
		r.Get("/attributes", ListAttributesHandler(store))
		r.Get("/component-types", ListComponentTypesHandler(store))
		r.Get("/component-types/{typeId}", GetComponentTypeHandler(store))
	})

	r.Post("/attributes", CreateAttributeHandler(store, onChange))
	r.Post("/attributes/{attributeId}/options", AddEnumOptionHandler(store, onChange))
	r.Post("/component-types", CreateComponentTypeHandler(store, onChange))
	r.Get("/products/{productId}", GetProductHandler(store))
	r.Post("/products", CreateProductHandler(store))

	return r
}
