package stock

import (
	"github.com/go-chi/chi/v5"

	"github.com/pcshop/configurator/pkg/authz"
)

// Router creates a chi.Router for the cart API. Carts are private to the
// user that opened them.
func Router(store *Store, builds BuildSource) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireUser())

	r.Post("/", CreateCartHandler(store))
	r.Get("/{cartId}", GetCartHandler(store))
	r.Post("/{cartId}:checkout", CheckoutHandler(store))
	r.Post("/{cartId}/items", ReserveHandler(store))
	r.Delete("/{cartId}/items/{productId}", ReleaseHandler(store))
	if builds != nil {
		r.Post("/{cartId}/builds/{buildId}", ReserveBuildHandler(store, builds))
	}

	return r
}
