package rules

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router creates a chi.Router for the compatibility rule API.
// onChange is called after a rule is created or deleted.
func Router(store *Store, onChange func(), readMiddleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(readMiddleware...)
		r.Get("/", ListRulesHandler(store))
		r.Get("/{ruleId}", GetRuleHandler(store))
	})
	r.Post("/", CreateRuleHandler(store, onChange))
	r.Delete("/{ruleId}", DeleteRuleHandler(store, onChange))

	return r
}
