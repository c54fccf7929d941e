package stock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/catalog/catalogtest"
)

func newTestStore(t *testing.T) (*Store, *catalogtest.Fixture) {
	t.Helper()
	db := catalogtest.OpenDB(t)
	fx := catalogtest.Seed(t, db)
	store := NewStore(db, nil)
	require.NoError(t, store.AutoMigrate())
	return store, fx
}

func quantity(t *testing.T, fx *catalogtest.Fixture, id uint) (int, bool) {
	t.Helper()
	p, err := fx.Store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity, p.IsAvailable
}

func TestStore_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	store, fx := newTestStore(t)

	cart, err := store.CreateCart(ctx, "alice", "sess-1")
	require.NoError(t, err)

	require.NoError(t, store.Reserve(ctx, cart.ID, fx.PSU400.ID, 1))
	qty, available := quantity(t, fx, fx.PSU400.ID)
	assert.Equal(t, 0, qty)
	assert.False(t, available)

	err = store.Reserve(ctx, cart.ID, fx.PSU400.ID, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var short *InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 0, short.Available)
	assert.Equal(t, 1, short.Requested)

	require.NoError(t, store.Reserve(ctx, cart.ID, fx.DDR5Kit.ID, 2))
	require.NoError(t, store.Reserve(ctx, cart.ID, fx.DDR5Kit.ID, 3))
	qty, _ = quantity(t, fx, fx.DDR5Kit.ID)
	assert.Equal(t, 5, qty)

	got, err := store.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 5, got.Items[0].Quantity)
	assert.Equal(t, "640", got.Total().String())

	released, err := store.Release(ctx, cart.ID, fx.PSU400.ID)
	require.NoError(t, err)
	assert.True(t, released)
	qty, available = quantity(t, fx, fx.PSU400.ID)
	assert.Equal(t, 1, qty)
	assert.True(t, available)

	released, err = store.Release(ctx, cart.ID, fx.PSU400.ID)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestStore_ReserveValidation(t *testing.T) {
	ctx := context.Background()
	store, fx := newTestStore(t)
	cart, err := store.CreateCart(ctx, "alice", "")
	require.NoError(t, err)

	var verr *catalog.ValidationError
	require.True(t, errors.As(store.Reserve(ctx, cart.ID, fx.DDR5Kit.ID, 0), &verr))
	assert.Equal(t, catalog.CodeInvalidValue, verr.Code)

	require.True(t, errors.As(store.Reserve(ctx, cart.ID, 4242, 1), &verr))
	assert.Equal(t, catalog.CodeUnknownReference, verr.Code)

	assert.ErrorIs(t, store.Reserve(ctx, "missing", fx.DDR5Kit.ID, 1), ErrCartNotFound)
}

func TestStore_ReserveProductsIsAtomic(t *testing.T) {
	ctx := context.Background()
	store, fx := newTestStore(t)
	cart, err := store.CreateCart(ctx, "alice", "")
	require.NoError(t, err)

	err = store.ReserveProducts(ctx, cart.ID, []uint{fx.RyzenAM5.ID, fx.PSU400.ID, fx.PSU400.ID})
	require.ErrorIs(t, err, ErrInsufficientStock)

	qty, _ := quantity(t, fx, fx.RyzenAM5.ID)
	assert.Equal(t, 5, qty, "no unit is taken when one product is short")
	got, err := store.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)

	require.NoError(t, store.ReserveProducts(ctx, cart.ID, []uint{fx.RyzenAM5.ID, fx.BoardAM5.ID}))
	qty, _ = quantity(t, fx, fx.BoardAM5.ID)
	assert.Equal(t, 2, qty)
}

func TestStore_MarkConverted(t *testing.T) {
	ctx := context.Background()
	store, fx := newTestStore(t)
	cart, err := store.CreateCart(ctx, "alice", "")
	require.NoError(t, err)
	require.NoError(t, store.Reserve(ctx, cart.ID, fx.GPU320.ID, 1))

	require.NoError(t, store.MarkConverted(ctx, cart.ID))
	assert.ErrorIs(t, store.MarkConverted(ctx, cart.ID), ErrCartConverted)
	assert.ErrorIs(t, store.MarkConverted(ctx, "missing"), ErrCartNotFound)
	assert.ErrorIs(t, store.Reserve(ctx, cart.ID, fx.GPU320.ID, 1), ErrCartConverted)
	_, err = store.Release(ctx, cart.ID, fx.GPU320.ID)
	assert.ErrorIs(t, err, ErrCartConverted)

	qty, _ := quantity(t, fx, fx.GPU320.ID)
	assert.Equal(t, 1, qty)
}

func TestStore_ReleaseAbandoned(t *testing.T) {
	ctx := context.Background()
	store, fx := newTestStore(t)
	old := time.Now().Add(-2 * time.Hour)

	abandoned, err := store.CreateCart(ctx, "alice", "")
	require.NoError(t, err)
	require.NoError(t, store.Reserve(ctx, abandoned.ID, fx.DDR4Kit.ID, 4))
	require.NoError(t, store.Reserve(ctx, abandoned.ID, fx.PSU450.ID, 1))

	fresh, err := store.CreateCart(ctx, "bob", "")
	require.NoError(t, err)
	require.NoError(t, store.Reserve(ctx, fresh.ID, fx.DDR4Kit.ID, 1))

	sold, err := store.CreateCart(ctx, "carol", "")
	require.NoError(t, err)
	require.NoError(t, store.Reserve(ctx, sold.ID, fx.DDR4Kit.ID, 2))
	require.NoError(t, store.MarkConverted(ctx, sold.ID))

	for _, id := range []string{abandoned.ID, sold.ID} {
		require.NoError(t, store.db.Model(&Cart{}).Where("id = ?", id).UpdateColumn("updated_at", old).Error)
	}

	n, err := store.ReleaseAbandoned(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	qty, _ := quantity(t, fx, fx.DDR4Kit.ID)
	assert.Equal(t, 7, qty, "10 in stock minus the fresh and converted reservations")
	qty, _ = quantity(t, fx, fx.PSU450.ID)
	assert.Equal(t, 4, qty)

	got, err := store.GetCart(ctx, abandoned.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)

	n, err = store.ReleaseAbandoned(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RestockSkipsReleasedItem(t *testing.T) {
	ctx := context.Background()
	store, fx := newTestStore(t)
	cart, err := store.CreateCart(ctx, "alice", "")
	require.NoError(t, err)
	require.NoError(t, store.Reserve(ctx, cart.ID, fx.PSU400.ID, 1))

	// A second release that read the item before the first one committed.
	var stale CartItem
	require.NoError(t, store.db.Where("cart_id = ? AND product_id = ?", cart.ID, fx.PSU400.ID).First(&stale).Error)

	released, err := store.Release(ctx, cart.ID, fx.PSU400.ID)
	require.NoError(t, err)
	require.True(t, released)

	var restored int
	err = store.db.Transaction(func(tx *gorm.DB) error {
		var err error
		restored, err = restock(tx, []CartItem{stale})
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, restored)

	qty, available := quantity(t, fx, fx.PSU400.ID)
	assert.Equal(t, 1, qty, "one reserved unit comes back once")
	assert.True(t, available)
}
