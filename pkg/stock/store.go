package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pcshop/configurator/pkg/catalog"
)

// Store reserves product stock into carts. Every stock change locks the
// product row first so concurrent reservations cannot oversell.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// AutoMigrate creates or updates the cart tables.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Cart{}); err != nil {
		return fmt.Errorf("auto-migrate carts: %w", err)
	}
	if err := s.db.AutoMigrate(&CartItem{}); err != nil {
		return fmt.Errorf("auto-migrate cart_items: %w", err)
	}
	return nil
}

// CreateCart opens an empty cart for userID.
func (s *Store) CreateCart(ctx context.Context, userID, sessionKey string) (*Cart, error) {
	cart := &Cart{ID: uuid.New().String(), UserID: userID, SessionKey: sessionKey, Items: []CartItem{}}
	if err := s.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

// GetCart returns a cart with its items, or nil, nil.
func (s *Store) GetCart(ctx context.Context, id string) (*Cart, error) {
	var cart Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC") }).
		Where("id = ?", id).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &cart, nil
}

// Reserve takes qty units of a product into a cart. Reserving a product
// already in the cart adds to its quantity.
func (s *Store) Reserve(ctx context.Context, cartID string, productID uint, qty int) error {
	if qty <= 0 {
		return &catalog.ValidationError{Code: catalog.CodeInvalidValue, Field: "quantity", Expected: "positive integer",
			Message: fmt.Sprintf("quantity must be positive, got %d", qty)}
	}
	return s.reserve(ctx, cartID, map[uint]int{productID: qty})
}

// ReserveProducts takes one unit of every listed product into a cart. Either
// all units are reserved or none are.
func (s *Store) ReserveProducts(ctx context.Context, cartID string, productIDs []uint) error {
	want := make(map[uint]int, len(productIDs))
	for _, id := range productIDs {
		want[id]++
	}
	if len(want) == 0 {
		return nil
	}
	return s.reserve(ctx, cartID, want)
}

func (s *Store) reserve(ctx context.Context, cartID string, want map[uint]int) error {
	ids := make([]uint, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	// Lock in id order so two carts never wait on each other.
	slices.Sort(ids)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := openCart(tx, cartID); err != nil {
			return err
		}
		for _, id := range ids {
			qty := want[id]
			p, err := lockProduct(tx, id)
			if err != nil {
				return err
			}
			if p.Quantity < qty {
				return &InsufficientStockError{ProductID: id, Requested: qty, Available: p.Quantity}
			}
			if err := setQuantity(tx, id, p.Quantity-qty); err != nil {
				return err
			}
			if err := addItem(tx, cartID, p, qty); err != nil {
				return err
			}
		}
		return touch(tx, cartID)
	})
}

// Release gives the reserved units of a product back to stock and removes
// the item from the cart. It reports whether the cart held the product.
func (s *Store) Release(ctx context.Context, cartID string, productID uint) (bool, error) {
	var released bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := openCart(tx, cartID); err != nil {
			return err
		}
		var item CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load cart item: %w", err)
		}
		n, err := restock(tx, []CartItem{item})
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		released = true
		return touch(tx, cartID)
	})
	return released, err
}

// MarkConverted checks a cart out. Its reservations become final.
func (s *Store) MarkConverted(ctx context.Context, cartID string) error {
	res := s.db.WithContext(ctx).Model(&Cart{}).
		Where("id = ? AND converted_at IS NULL", cartID).
		UpdateColumn("converted_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("convert cart: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return err
	}
	if cart == nil {
		return ErrCartNotFound
	}
	return ErrCartConverted
}

// ReleaseAbandoned releases every item of open carts that have not been
// touched for ttl. It returns the number of items given back to stock.
func (s *Store) ReleaseAbandoned(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	var ids []string
	err := s.db.WithContext(ctx).Model(&Cart{}).
		Where("converted_at IS NULL AND updated_at < ?", cutoff).
		Order("updated_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("find abandoned carts: %w", err)
	}

	total := 0
	for _, id := range ids {
		n, err := s.releaseCart(ctx, id, cutoff)
		if err != nil {
			return total, err
		}
		if n > 0 {
			s.logger.Info("released abandoned cart", "cart", id, "items", n)
		}
		total += n
	}
	return total, nil
}

func (s *Store) releaseCart(ctx context.Context, cartID string, cutoff time.Time) (int, error) {
	var n int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The cart may have been used since it was selected.
		var cart Cart
		err := forUpdate(tx).Where("id = ? AND converted_at IS NULL AND updated_at < ?", cartID, cutoff).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		var items []CartItem
		if err := tx.Where("cart_id = ?", cartID).Order("product_id ASC").Find(&items).Error; err != nil {
			return fmt.Errorf("load cart items: %w", err)
		}
		restored, err := restock(tx, items)
		if err != nil {
			return err
		}
		n = restored
		return nil
	})
	return n, err
}

// openCart locks a cart row for the rest of the transaction. Every change to
// a cart's items goes through it, so item rows read afterwards are current.
func openCart(tx *gorm.DB, cartID string) (*Cart, error) {
	var cart Cart
	err := forUpdate(tx).Where("id = ?", cartID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.Converted() {
		return nil, ErrCartConverted
	}
	return &cart, nil
}

// forUpdate adds SELECT ... FOR UPDATE to a query. SQLite has no row locks
// and serializes writers already.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockProduct reads a product row under a row lock.
func lockProduct(tx *gorm.DB, id uint) (*catalog.Product, error) {
	var p catalog.Product
	err := forUpdate(tx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.UnknownReference("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock product %d: %w", id, err)
	}
	return &p, nil
}

func setQuantity(tx *gorm.DB, productID uint, qty int) error {
	err := tx.Model(&catalog.Product{}).Where("id = ?", productID).
		UpdateColumns(map[string]any{"quantity": qty, "is_available": qty > 0}).Error
	if err != nil {
		return fmt.Errorf("update stock of product %d: %w", productID, err)
	}
	return nil
}

func addItem(tx *gorm.DB, cartID string, p *catalog.Product, qty int) error {
	var item CartItem
	err := tx.Where("cart_id = ? AND product_id = ?", cartID, p.ID).First(&item).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = CartItem{CartID: cartID, ProductID: p.ID, Quantity: qty, UnitPrice: p.Price}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("create cart item: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load cart item: %w", err)
	}
	err = tx.Model(&item).Updates(map[string]any{"quantity": item.Quantity + qty, "unit_price": p.Price}).Error
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

// restock deletes items and returns their units to stock. An item that is
// already gone was restocked by someone else and is skipped. It returns the
// number of items restocked.
func restock(tx *gorm.DB, items []CartItem) (int, error) {
	n := 0
	for _, it := range items {
		p, err := lockProduct(tx, it.ProductID)
		if err != nil {
			return n, err
		}
		res := tx.Delete(&CartItem{}, it.ID)
		if res.Error != nil {
			return n, fmt.Errorf("delete cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		if err := setQuantity(tx, it.ProductID, p.Quantity+it.Quantity); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func touch(tx *gorm.DB, cartID string) error {
	if err := tx.Model(&Cart{}).Where("id = ?", cartID).UpdateColumn("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
