package cache

import (
	"net/http"
	"testing"
	"time"
)

func TestCacheManager(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{"NewCacheManagerDisabled", testNewCacheManagerDisabled},
		{"NewCacheManagerNilConfig", testNewCacheManagerNilConfig},
		{"InvalidateRulesLeavesCatalog", testInvalidateRulesLeavesCatalog},
		{"InvalidateCatalogLeavesRules", testInvalidateCatalogLeavesRules},
		{"InvalidateAllClearsBothCaches", testInvalidateAllClearsBothCaches},
		{"NilCacheManagerSafe", testNilCacheManagerSafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func testManager() *CacheManager {
	return NewCacheManager(&CacheConfig{
		Enabled:    true,
		CatalogTTL: 5 * time.Second,
		RulesTTL:   5 * time.Second,
		MaxSize:    100,
	})
}

func populate(cm *CacheManager) (catalogCalls, rulesCalls *int) {
	catalogCalls, rulesCalls = new(int), new(int)
	serveGET(cm.CatalogMiddleware()(countingHandler(catalogCalls, http.StatusOK, `{}`)), "/attributes")
	serveGET(cm.RulesMiddleware()(countingHandler(rulesCalls, http.StatusOK, `{}`)), "/rules")
	return
}

func testNewCacheManagerDisabled(t *testing.T) {
	if cm := NewCacheManager(&CacheConfig{Enabled: false}); cm != nil {
		t.Fatal("expected nil CacheManager when disabled")
	}
}

func testNewCacheManagerNilConfig(t *testing.T) {
	if cm := NewCacheManager(nil); cm != nil {
		t.Fatal("expected nil CacheManager for nil config")
	}
}

func testInvalidateRulesLeavesCatalog(t *testing.T) {
	cm := testManager()
	populate(cm)

	cm.InvalidateRules()

	if cm.rules.Size() != 0 {
		t.Fatalf("expected rules cache cleared, size %d", cm.rules.Size())
	}
	if cm.catalog.Size() != 1 {
		t.Fatalf("expected catalog cache untouched, size %d", cm.catalog.Size())
	}
}

func testInvalidateCatalogLeavesRules(t *testing.T) {
	cm := testManager()
	populate(cm)

	cm.InvalidateCatalog()

	if cm.catalog.Size() != 0 {
		t.Fatalf("expected catalog cache cleared, size %d", cm.catalog.Size())
	}
	if cm.rules.Size() != 1 {
		t.Fatalf("expected rules cache untouched, size %d", cm.rules.Size())
	}
}

func testInvalidateAllClearsBothCaches(t *testing.T) {
	cm := testManager()
	populate(cm)

	cm.InvalidateAll()

	if cm.catalog.Size() != 0 || cm.rules.Size() != 0 {
		t.Fatal("expected both caches cleared")
	}
}

func testNilCacheManagerSafe(t *testing.T) {
	var cm *CacheManager
	cm.InvalidateCatalog()
	cm.InvalidateRules()
	cm.InvalidateAll()

	calls := 0
	h := cm.CatalogMiddleware()(countingHandler(&calls, http.StatusOK, `{}`))
	serveGET(h, "/attributes")
	rec := serveGET(h, "/attributes")
	if calls != 2 {
		t.Fatalf("nil manager must not cache, got %d calls", calls)
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Fatal("nil manager must not set X-Cache")
	}
}
