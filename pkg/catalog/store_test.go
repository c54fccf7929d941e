package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore creates an in-memory SQLite store with the catalog tables migrated.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	store := NewStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %T: %v", err, err)
	assert.Equal(t, code, verr.Code)
}

func TestStore_Attributes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	socket := &Attribute{Name: "socket", DataType: TypeEnum, EnumOptions: JSONStringSlice{"AM4", "AM4", "AM5"}}
	require.NoError(t, store.CreateAttribute(ctx, socket))
	assert.NotZero(t, socket.ID)

	got, err := store.GetAttribute(ctx, socket.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, JSONStringSlice{"AM4", "AM5"}, got.EnumOptions)

	byName, err := store.AttributeByName(ctx, "socket")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, socket.ID, byName.ID)

	missing, err := store.GetAttribute(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	requireCode(t, store.CreateAttribute(ctx, &Attribute{Name: "socket", DataType: TypeString}), CodeDuplicate)
	requireCode(t, store.CreateAttribute(ctx, &Attribute{Name: "blob", DataType: "blob"}), CodeInvalidDefinition)
	requireCode(t, store.CreateAttribute(ctx, &Attribute{Name: "tdp", DataType: TypeNumber, EnumOptions: JSONStringSlice{"x"}}), CodeInvalidDefinition)

	attrs, err := store.ListAttributes(ctx)
	require.NoError(t, err)
	assert.Len(t, attrs, 1)
}

func TestStore_AddEnumOption(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ff := &Attribute{Name: "form_factor", DataType: TypeEnum}
	require.NoError(t, store.CreateAttribute(ctx, ff))

	_, err := Validate(ff, "ATX")
	require.Error(t, err, "enum without options must reject values")

	updated, err := store.AddEnumOption(ctx, ff.ID, "ATX")
	require.NoError(t, err)
	assert.True(t, updated.Options().Contains("ATX"))

	again, err := store.AddEnumOption(ctx, ff.ID, "ATX")
	require.NoError(t, err)
	assert.Len(t, again.EnumOptions, 1)

	reloaded, err := store.GetAttribute(ctx, ff.ID)
	require.NoError(t, err)
	val, err := Validate(reloaded, "ATX")
	require.NoError(t, err)
	assert.Equal(t, EnumValue("ATX"), val)

	tdp := &Attribute{Name: "tdp", DataType: TypeNumber}
	require.NoError(t, store.CreateAttribute(ctx, tdp))
	_, err = store.AddEnumOption(ctx, tdp.ID, "x")
	requireCode(t, err, CodeInvalidDefinition)

	_, err = store.AddEnumOption(ctx, 999, "x")
	requireCode(t, err, CodeUnknownReference)
}

func TestStore_ComponentTypes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	socket := &Attribute{Name: "socket", DataType: TypeString}
	require.NoError(t, store.CreateAttribute(ctx, socket))

	psu := &ComponentType{Name: "Power supply", Slug: "psu", Order: 5, Required: true}
	require.NoError(t, store.CreateComponentType(ctx, psu, nil))
	cpu := &ComponentType{Name: "Processor", Slug: "cpu", Order: 1, Required: true}
	require.NoError(t, store.CreateComponentType(ctx, cpu, []uint{socket.ID}))

	got, err := store.GetComponentType(ctx, cpu.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.CompatibilityAttributes, 1)
	assert.Equal(t, "socket", got.CompatibilityAttributes[0].Name)
	assert.True(t, got.AttributeIDs().Contains(socket.ID))

	bySlug, err := store.ComponentTypeBySlug(ctx, "psu")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.Equal(t, psu.ID, bySlug.ID)

	requireCode(t, store.CreateComponentType(ctx, &ComponentType{Name: "CPU", Slug: "cpu"}, nil), CodeDuplicate)
	requireCode(t, store.CreateComponentType(ctx, &ComponentType{Name: "GPU", Slug: "gpu"}, []uint{42}), CodeUnknownReference)

	reg, err := store.Registry(ctx)
	require.NoError(t, err)
	types := reg.Types()
	require.Len(t, types, 2)
	assert.Equal(t, "cpu", types[0].Slug)
	assert.Equal(t, "psu", types[1].Slug)
}

func TestStore_Products(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	socket := &Attribute{Name: "socket", DataType: TypeEnum, EnumOptions: JSONStringSlice{"AM4", "AM5"}}
	tdp := &Attribute{Name: "tdp", DataType: TypeNumber, Unit: "W"}
	ecc := &Attribute{Name: "ecc", DataType: TypeBoolean}
	require.NoError(t, store.CreateAttribute(ctx, socket))
	require.NoError(t, store.CreateAttribute(ctx, tdp))
	require.NoError(t, store.CreateAttribute(ctx, ecc))
	cpu := &ComponentType{Name: "Processor", Slug: "cpu"}
	require.NoError(t, store.CreateComponentType(ctx, cpu, []uint{socket.ID}))

	p := &Product{Name: "Ryzen 7 7700", Slug: "ryzen-7-7700", ComponentTypeID: &cpu.ID,
		Price: decimal.RequireFromString("299.90"), Quantity: 2}
	require.NoError(t, store.CreateProduct(ctx, p, map[uint]any{socket.ID: "AM5", tdp.ID: "65", ecc.ID: "yes"}))
	assert.True(t, p.IsAvailable)

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("299.90")))
	attrs := got.Attributes()
	require.Len(t, attrs, 3)
	assert.Equal(t, EnumValue("AM5"), attrs[socket.ID])
	assert.True(t, Equal(Int(65), attrs[tdp.ID]))
	assert.Equal(t, BoolValue(true), attrs[ecc.ID])

	val, err := store.SetProductValue(ctx, p.ID, socket.ID, "AM4")
	require.NoError(t, err)
	assert.Equal(t, EnumValue("AM4"), val)
	got, err = store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	v, ok := got.Value(socket.ID)
	require.True(t, ok)
	assert.Equal(t, EnumValue("AM4"), v)
	assert.Len(t, got.Values, 3)

	_, err = store.SetProductValue(ctx, p.ID, socket.ID, "LGA1700")
	requireCode(t, err, CodeInvalidValue)
	_, err = store.SetProductValue(ctx, 999, socket.ID, "AM4")
	requireCode(t, err, CodeUnknownReference)

	// Invalid values abort the whole product insert.
	bad := &Product{Name: "Broken", Slug: "broken", Price: decimal.NewFromInt(1)}
	requireCode(t, store.CreateProduct(ctx, bad, map[uint]any{tdp.ID: "lots"}), CodeInvalidValue)
	missing, err := store.ProductBySlug(ctx, "broken")
	require.NoError(t, err)
	assert.Nil(t, missing)

	empty := &Product{Name: "Sold out", Slug: "sold-out", Price: decimal.NewFromInt(10)}
	require.NoError(t, store.CreateProduct(ctx, empty, nil))
	assert.False(t, empty.IsAvailable)

	byIDs, err := store.GetProducts(ctx, []uint{p.ID, empty.ID, 999})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)
}

func TestStore_ProductPriceAndValueRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	tdp := &Attribute{Name: "tdp", DataType: TypeNumber, Unit: "W"}
	require.NoError(t, store.CreateAttribute(ctx, tdp))

	for _, price := range []string{"-1", "19.999", "100000000", "1e50000000", "1e-50000000"} {
		p := &Product{Name: "PSU " + price, Slug: "psu-" + price, Price: decimal.RequireFromString(price)}
		requireCode(t, store.CreateProduct(ctx, p, nil), CodeInvalidValue)
	}

	p := &Product{Name: "Overclocked", Slug: "overclocked", Price: decimal.NewFromInt(99)}
	err := store.CreateProduct(ctx, p, map[uint]any{tdp.ID: "1e50000000"})
	requireCode(t, err, CodeInvalidValue)
	assert.Contains(t, err.Error(), "out of range")
	assert.Less(t, len(err.Error()), 200)

	ok := &Product{Name: "Budget", Slug: "budget", Price: decimal.RequireFromString("99999999.99")}
	require.NoError(t, store.CreateProduct(ctx, ok, map[uint]any{tdp.ID: "65"}))
}
