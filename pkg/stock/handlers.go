package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pcshop/configurator/pkg/authz"
	"github.com/pcshop/configurator/pkg/build"
	"github.com/pcshop/configurator/pkg/catalog"
)

// BuildSource returns a build owned by a user.
type BuildSource interface {
	Get(ctx context.Context, userID, buildID string) (*build.Result, error)
}

// CreateCartHandler handles POST /carts
func CreateCartHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionKey string `json:"sessionKey"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		cart, err := store.CreateCart(r.Context(), authz.UserFromContext(r.Context()), req.SessionKey)
		if err != nil {
			writeStockError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, cart)
	}
}

// GetCartHandler handles GET /carts/{cartId}
func GetCartHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, ok := ownedCart(w, r, store)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cart": cart, "total": cart.Total()})
	}
}

// ReserveHandler handles POST /carts/{cartId}/items
func ReserveHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, ok := ownedCart(w, r, store)
		if !ok {
			return
		}
		var req struct {
			ProductID uint `json:"product_id"`
			Quantity  int  `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		if err := store.Reserve(r.Context(), cart.ID, req.ProductID, req.Quantity); err != nil {
			writeStockError(w, err)
			return
		}
		respondCart(w, r, store, cart.ID, http.StatusCreated)
	}
}

// ReleaseHandler handles DELETE /carts/{cartId}/items/{productId}
func ReleaseHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, ok := ownedCart(w, r, store)
		if !ok {
			return
		}
		raw := chi.URLParam(r, "productId")
		productID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || productID == 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid product ID %q", raw))
			return
		}
		released, err := store.Release(r.Context(), cart.ID, uint(productID))
		if err != nil {
			writeStockError(w, err)
			return
		}
		if !released {
			writeError(w, http.StatusNotFound, fmt.Sprintf("product %d is not in cart %s", productID, cart.ID))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReserveBuildHandler handles POST /carts/{cartId}/builds/{buildId}. It
// reserves one unit of every component of a saved build.
func ReserveBuildHandler(store *Store, builds BuildSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, ok := ownedCart(w, r, store)
		if !ok {
			return
		}
		res, err := builds.Get(r.Context(), authz.UserFromContext(r.Context()), chi.URLParam(r, "buildId"))
		if err != nil {
			writeStockError(w, err)
			return
		}
		ids := make([]uint, 0, len(res.Build.Components))
		for _, c := range res.Build.Components {
			ids = append(ids, c.ProductID)
		}
		if err := store.ReserveProducts(r.Context(), cart.ID, ids); err != nil {
			writeStockError(w, err)
			return
		}
		respondCart(w, r, store, cart.ID, http.StatusCreated)
	}
}

// CheckoutHandler handles POST /carts/{cartId}:checkout
func CheckoutHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, ok := ownedCart(w, r, store)
		if !ok {
			return
		}
		if err := store.MarkConverted(r.Context(), cart.ID); err != nil {
			writeStockError(w, err)
			return
		}
		respondCart(w, r, store, cart.ID, http.StatusOK)
	}
}

func ownedCart(w http.ResponseWriter, r *http.Request, store *Store) (*Cart, bool) {
	cart, err := store.GetCart(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		writeStockError(w, err)
		return nil, false
	}
	if cart == nil || cart.UserID != authz.UserFromContext(r.Context()) {
		writeStockError(w, ErrCartNotFound)
		return nil, false
	}
	return cart, true
}

func respondCart(w http.ResponseWriter, r *http.Request, store *Store, cartID string, status int) {
	cart, err := store.GetCart(r.Context(), cartID)
	if err != nil {
		writeStockError(w, err)
		return
	}
	if cart == nil {
		writeStockError(w, ErrCartNotFound)
		return
	}
	writeJSON(w, status, map[string]any{"cart": cart, "total": cart.Total()})
}

// StatusCode maps a reservation error to an HTTP status.
func StatusCode(err error) int {
	var verr *catalog.ValidationError
	switch {
	case errors.Is(err, ErrCartNotFound), errors.Is(err, build.ErrBuildNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrCartConverted):
		return http.StatusConflict
	case errors.As(err, &verr):
		return catalog.StatusCode(verr)
	}
	return http.StatusInternalServerError
}

func writeStockError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error("cart request failed", "error", err)
	}
	var short *InsufficientStockError
	if errors.As(err, &short) {
		writeJSON(w, status, map[string]any{
			"error":     short.Error(),
			"productId": short.ProductID,
			"requested": short.Requested,
			"available": short.Available,
		})
		return
	}
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
