// Package catalogtest provides an in-memory database and a small PC parts
// catalog for tests in other packages.
package catalogtest

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pcshop/configurator/pkg/catalog"
)

// OpenDB returns an in-memory SQLite database private to the test. The
// connection pool is pinned to one connection so every query sees the same
// in-memory database.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Fixture holds the ids of the standard test catalog.
type Fixture struct {
	Store *catalog.Store

	Socket, MemoryType, TDP, Power, FormFactor catalog.Attribute

	CPU, Motherboard, RAM, GPU, PSU catalog.ComponentType

	RyzenAM5    *catalog.Product // socket AM5, 125 W, 349.99
	RyzenAM4    *catalog.Product // socket AM4, 65 W, 129.50
	BoardAM5    *catalog.Product // socket AM5, DDR5, 189.90
	BoardAM4    *catalog.Product // socket AM4, DDR4, 99.99
	DDR5Kit     *catalog.Product // DDR5, 119.00
	DDR4Kit     *catalog.Product // DDR4, 59.90
	GPU320      *catalog.Product // 320 W, 799.00
	PSU450      *catalog.Product // 450 W, 64.99
	PSU400      *catalog.Product // 400 W, 45.00
	BareProduct *catalog.Product // no attributes
}

// Seed migrates the catalog tables into db and creates the standard catalog:
// required slots cpu, motherboard, ram and psu, and an optional gpu slot.
func Seed(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	store := catalog.NewStore(db)
	require.NoError(t, store.AutoMigrate())

	f := &Fixture{Store: store}
	f.Socket = attr(t, store, catalog.Attribute{Name: "socket", DataType: catalog.TypeEnum, CompatibilityCritical: true,
		EnumOptions: catalog.JSONStringSlice{"AM4", "AM5", "LGA1700"}})
	f.MemoryType = attr(t, store, catalog.Attribute{Name: "memory_type", DataType: catalog.TypeEnum, CompatibilityCritical: true,
		EnumOptions: catalog.JSONStringSlice{"DDR4", "DDR5"}})
	f.TDP = attr(t, store, catalog.Attribute{Name: "tdp", DataType: catalog.TypeNumber, Unit: "W"})
	f.Power = attr(t, store, catalog.Attribute{Name: "power", DataType: catalog.TypeNumber, Unit: "W", CompatibilityCritical: true})
	f.FormFactor = attr(t, store, catalog.Attribute{Name: "form_factor", DataType: catalog.TypeEnum,
		EnumOptions: catalog.JSONStringSlice{"ATX", "mATX"}})

	f.CPU = ctype(t, store, catalog.ComponentType{Name: "Processor", Slug: "cpu", Required: true, Order: 0}, f.Socket.ID, f.TDP.ID)
	f.Motherboard = ctype(t, store, catalog.ComponentType{Name: "Motherboard", Slug: "motherboard", Required: true, Order: 1}, f.Socket.ID, f.MemoryType.ID)
	f.RAM = ctype(t, store, catalog.ComponentType{Name: "Memory", Slug: "ram", Required: true, Order: 2}, f.MemoryType.ID)
	f.GPU = ctype(t, store, catalog.ComponentType{Name: "Graphics card", Slug: "gpu", Order: 3}, f.TDP.ID)
	f.PSU = ctype(t, store, catalog.ComponentType{Name: "Power supply", Slug: "psu", Required: true, Order: 4}, f.Power.ID)

	f.RyzenAM5 = product(t, store, "Ryzen 9 7900", "ryzen-9-7900", &f.CPU, "349.99", 5,
		map[uint]any{f.Socket.ID: "AM5", f.TDP.ID: 125})
	f.RyzenAM4 = product(t, store, "Ryzen 5 5600", "ryzen-5-5600", &f.CPU, "129.50", 5,
		map[uint]any{f.Socket.ID: "AM4", f.TDP.ID: 65})
	f.BoardAM5 = product(t, store, "B650 Tomahawk", "b650-tomahawk", &f.Motherboard, "189.90", 3,
		map[uint]any{f.Socket.ID: "AM5", f.MemoryType.ID: "DDR5", f.FormFactor.ID: "ATX"})
	f.BoardAM4 = product(t, store, "B550 Pro", "b550-pro", &f.Motherboard, "99.99", 3,
		map[uint]any{f.Socket.ID: "AM4", f.MemoryType.ID: "DDR4", f.FormFactor.ID: "mATX"})
	f.DDR5Kit = product(t, store, "32GB DDR5-6000", "ddr5-32", &f.RAM, "119.00", 10,
		map[uint]any{f.MemoryType.ID: "DDR5"})
	f.DDR4Kit = product(t, store, "16GB DDR4-3200", "ddr4-16", &f.RAM, "59.90", 10,
		map[uint]any{f.MemoryType.ID: "DDR4"})
	f.GPU320 = product(t, store, "RTX 4080", "rtx-4080", &f.GPU, "799.00", 2,
		map[uint]any{f.TDP.ID: 320})
	f.PSU450 = product(t, store, "Core 450", "core-450", &f.PSU, "64.99", 4,
		map[uint]any{f.Power.ID: 450})
	f.PSU400 = product(t, store, "Core 400", "core-400", &f.PSU, "45.00", 1,
		map[uint]any{f.Power.ID: 400})
	f.BareProduct = product(t, store, "Thermal paste", "thermal-paste", nil, "7.49", 50, nil)

	return f
}

// Registry returns a fresh registry snapshot.
func (f *Fixture) Registry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := f.Store.Registry(context.Background())
	require.NoError(t, err)
	return reg
}

// Attributes returns a fresh attribute index.
func (f *Fixture) Attributes(t *testing.T) catalog.AttributeIndex {
	t.Helper()
	idx, err := f.Store.AttributeIndex(context.Background())
	require.NoError(t, err)
	return idx
}

func attr(t *testing.T, store *catalog.Store, a catalog.Attribute) catalog.Attribute {
	t.Helper()
	require.NoError(t, store.CreateAttribute(context.Background(), &a))
	return a
}

func ctype(t *testing.T, store *catalog.Store, ct catalog.ComponentType, attrIDs ...uint) catalog.ComponentType {
	t.Helper()
	require.NoError(t, store.CreateComponentType(context.Background(), &ct, attrIDs))
	got, err := store.GetComponentType(context.Background(), ct.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return *got
}

func product(t *testing.T, store *catalog.Store, name, slug string, ct *catalog.ComponentType, price string, qty int, raw map[uint]any) *catalog.Product {
	t.Helper()
	p := &catalog.Product{
		Name:     name,
		Slug:     slug,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	}
	if ct != nil {
		id := ct.ID
		p.ComponentTypeID = &id
	}
	require.NoError(t, store.CreateProduct(context.Background(), p, raw))
	got, err := store.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}
