package cache

import (
	"net/http"
)

// CacheManager holds the catalog and rule caches. Catalog mutations clear
// the catalog cache; rule mutations clear the rule cache. A nil
// *CacheManager is valid and caches nothing.
type CacheManager struct {
	catalog *LRUCache
	rules   *LRUCache
}

// NewCacheManager creates a CacheManager from the given configuration.
// If cfg is nil or disabled, it returns nil.
func NewCacheManager(cfg *CacheConfig) *CacheManager {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &CacheManager{
		catalog: NewLRUCache(cfg.MaxSize, cfg.CatalogTTL),
		rules:   NewLRUCache(cfg.MaxSize, cfg.RulesTTL),
	}
}

// InvalidateCatalog clears cached attribute and component type listings.
func (cm *CacheManager) InvalidateCatalog() {
	if cm == nil {
		return
	}
	cm.catalog.InvalidateAll()
}

// InvalidateRules clears cached rule listings.
func (cm *CacheManager) InvalidateRules() {
	if cm == nil {
		return
	}
	cm.rules.InvalidateAll()
}

// InvalidateAll clears both caches.
func (cm *CacheManager) InvalidateAll() {
	cm.InvalidateCatalog()
	cm.InvalidateRules()
}

// CatalogMiddleware caches catalog read responses.
func (cm *CacheManager) CatalogMiddleware() func(http.Handler) http.Handler {
	if cm == nil {
		return passthrough
	}
	return CacheMiddleware(cm.catalog)
}

// RulesMiddleware caches rule read responses.
func (cm *CacheManager) RulesMiddleware() func(http.Handler) http.Handler {
	if cm == nil {
		return passthrough
	}
	return CacheMiddleware(cm.rules)
}

func passthrough(next http.Handler) http.Handler { return next }
