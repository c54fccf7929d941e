package server

import (
	"net/http"

	"github.com/pcshop/configurator/pkg/audit"
	"github.com/pcshop/configurator/pkg/authz"
	"github.com/pcshop/configurator/pkg/cache"
	"github.com/pcshop/configurator/pkg/compat"
	"github.com/pcshop/configurator/pkg/ha"
	"github.com/pcshop/configurator/pkg/jobs"
	"github.com/pcshop/configurator/pkg/stock"
)

// Option configures a Server.
type Option func(*Server)

// WithAuthorizer sets the authorizer used by the authorization middleware.
func WithAuthorizer(a authz.Authorizer) Option {
	return func(s *Server) {
		s.authorizer = a
	}
}

// WithIdentityMiddleware sets how the caller identity is read. The default
// trusts the X-Remote-User and X-Remote-Group headers.
func WithIdentityMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.identity = mw
	}
}

// WithCacheConfig enables the response cache on catalog and rule reads.
func WithCacheConfig(cfg *cache.CacheConfig) Option {
	return func(s *Server) {
		s.cacheConfig = cfg
	}
}

// WithAuditConfig sets the audit trail configuration.
func WithAuditConfig(cfg *audit.AuditConfig) Option {
	return func(s *Server) {
		s.auditConfig = cfg
	}
}

// WithJobConfig sets the background job configuration.
func WithJobConfig(cfg *jobs.JobConfig) Option {
	return func(s *Server) {
		s.jobConfig = cfg
	}
}

// WithStockConfig sets the cart expiry configuration.
func WithStockConfig(cfg stock.Config) Option {
	return func(s *Server) {
		s.stockConfig = cfg
	}
}

// WithPowerBudget sets which slot and attributes the power check uses.
func WithPowerBudget(cfg compat.PowerBudgetConfig) Option {
	return func(s *Server) {
		s.powerConfig = cfg
	}
}

// WithHAConfig sets migration locking and leader election.
func WithHAConfig(cfg *ha.HAConfig) Option {
	return func(s *Server) {
		s.haConfig = cfg
	}
}

// WithCORSOrigins sets the origins allowed by the CORS middleware.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}
