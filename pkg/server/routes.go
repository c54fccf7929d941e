package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pcshop/configurator/pkg/audit"
	"github.com/pcshop/configurator/pkg/authz"
	"github.com/pcshop/configurator/pkg/build"
	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/jobs"
	"github.com/pcshop/configurator/pkg/rules"
	"github.com/pcshop/configurator/pkg/stock"
)

// APIPrefix is the base path of every API route.
const APIPrefix = "/api/v1"

// MountRoutes builds the HTTP router.
func (s *Server) MountRoutes() chi.Router {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", authz.UserHeader, authz.GroupHeader},
		ExposedHeaders:   []string{"Link", "X-Cache"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Identity first so audit and authorization both see the caller. Audit
	// wraps authorization so denied requests are recorded too.
	r.Use(s.identity)
	if s.auditConfig != nil && s.auditConfig.Enabled {
		r.Use(audit.AuditMiddleware(s.audit, s.auditConfig, s.logger.With("component", "audit")))
		s.logger.Info("audit middleware enabled",
			"logDenied", s.auditConfig.LogDenied,
			"retentionDays", s.auditConfig.RetentionDays)
	}
	r.Use(authz.AuthzMiddleware(s.authorizer))

	r.Get("/healthz", s.healthHandler)
	r.Get("/livez", s.healthHandler)
	r.Get("/readyz", s.readyHandler)

	r.Route(APIPrefix, func(api chi.Router) {
		catalogRouter := catalog.Router(s.catalog, s.cache.InvalidateCatalog, s.cache.CatalogMiddleware())
		catalogRouter.Mount("/rules", rules.Router(s.rules, s.cache.InvalidateRules, s.cache.RulesMiddleware()))
		api.Mount("/catalog", catalogRouter)

		api.Post("/compatibility:check", build.CheckHandler(s.builds))
		api.Mount("/builds", build.Router(s.builds))
		api.Mount("/carts", stock.Router(s.stock, s.builds))
		api.Mount("/jobs", jobs.Router(s.jobs, s.jobKinds(), jobs.NewTriggerLimiter(s.jobConfig.TriggerInterval)))
		api.Mount("/audit", audit.Router(s.audit))
	})

	s.router = r
	return r
}

// Router returns the router built by MountRoutes.
func (s *Server) Router() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.router
}
