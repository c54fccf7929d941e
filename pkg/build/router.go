package build

import (
	"github.com/go-chi/chi/v5"

	"github.com/pcshop/configurator/pkg/authz"
)

// Router creates a chi.Router for the build API. Every route requires an
// identified user; builds are only visible to their owner.
func Router(svc *Service) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireUser())

	r.Get("/", ListHandler(svc))
	r.Post("/", SubmitHandler(svc))
	r.Get("/{buildId}", GetHandler(svc))
	r.Delete("/{buildId}", DeleteHandler(svc))
	r.Get("/{buildId}/compatibility", CompatibilityHandler(svc))
	r.Post("/{buildId}/components", AddComponentHandler(svc))
	r.Put("/{buildId}/components/{typeId}", ReplaceComponentHandler(svc))
	r.Delete("/{buildId}/components/{typeId}", RemoveComponentHandler(svc))

	return r
}
