// Package server wires the stores, services and background workers into
// one HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/pcshop/configurator/pkg/audit"
	"github.com/pcshop/configurator/pkg/authz"
	"github.com/pcshop/configurator/pkg/build"
	"github.com/pcshop/configurator/pkg/cache"
	"github.com/pcshop/configurator/pkg/catalog"
	"github.com/pcshop/configurator/pkg/compat"
	"github.com/pcshop/configurator/pkg/ha"
	"github.com/pcshop/configurator/pkg/jobs"
	"github.com/pcshop/configurator/pkg/rules"
	"github.com/pcshop/configurator/pkg/seed"
	"github.com/pcshop/configurator/pkg/stock"
)

// Server owns the stores and background workers of one replica.
type Server struct {
	db     *gorm.DB
	logger *slog.Logger
	router chi.Router

	authorizer  authz.Authorizer
	identity    func(http.Handler) http.Handler
	cacheConfig *cache.CacheConfig
	auditConfig *audit.AuditConfig
	jobConfig   *jobs.JobConfig
	stockConfig stock.Config
	powerConfig compat.PowerBudgetConfig
	haConfig    *ha.HAConfig
	corsOrigins []string

	catalog *catalog.Store
	rules   *rules.Store
	builds  *build.Service
	stock   *stock.Store
	jobs    *jobs.JobStore
	audit   *audit.Store
	cache   *cache.CacheManager
	elector *ha.LeaderElector

	startedAt       time.Time
	initialLoadDone bool
	mu              sync.RWMutex
	wg              sync.WaitGroup
}

// New creates a Server. Call Init before MountRoutes or Start.
func New(db *gorm.DB, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		db:          db,
		logger:      logger,
		authorizer:  &authz.NoopAuthorizer{},
		identity:    authz.IdentityMiddleware(),
		auditConfig: audit.DefaultAuditConfig(),
		jobConfig:   jobs.DefaultJobConfig(),
		stockConfig: stock.DefaultConfig(),
		powerConfig: compat.DefaultPowerBudgetConfig(),
		haConfig:    ha.DefaultHAConfig(),
		corsOrigins: []string{"https://*", "http://*"},
		startedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.catalog = catalog.NewStore(db)
	s.rules = rules.NewStore(db)
	loader := compat.NewLoader(s.catalog, s.rules, s.powerConfig, logger.With("component", "compat"))
	s.builds = build.NewService(build.NewStore(db), s.catalog, loader, logger.With("component", "build"))
	s.stock = stock.NewStore(db, logger.With("component", "stock"))
	s.jobs = jobs.NewJobStore(db)
	s.audit = audit.NewStore(db)
	if s.cacheConfig != nil && s.cacheConfig.Enabled {
		s.cache = cache.NewCacheManager(s.cacheConfig)
	}
	s.elector = ha.NewLeaderElector(db, s.haConfig, logger.With("component", "leader"))
	return s
}

// Init migrates every table. With migration locking enabled the migrations
// run under the cross-replica lock.
func (s *Server) Init(ctx context.Context) error {
	migrate := func() error {
		steps := []struct {
			name string
			fn   func() error
		}{
			{"catalog", s.catalog.AutoMigrate},
			{"rules", s.rules.AutoMigrate},
			{"builds", build.NewStore(s.db).AutoMigrate},
			{"stock", s.stock.AutoMigrate},
			{"jobs", s.jobs.AutoMigrate},
			{"audit", s.audit.AutoMigrate},
			{"leader lease", s.elector.AutoMigrate},
		}
		for _, step := range steps {
			if err := step.fn(); err != nil {
				return fmt.Errorf("migrate %s: %w", step.name, err)
			}
		}
		return nil
	}

	if s.haConfig.MigrationLockEnabled {
		s.logger.Info("running migrations with lock")
		if err := ha.NewMigrationLocker(s.db, s.haConfig.Identity).WithLock(ctx, migrate); err != nil {
			return err
		}
	} else if err := migrate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.initialLoadDone = true
	s.mu.Unlock()
	return nil
}

// Seed applies a seed file and drops cached catalog responses.
func (s *Server) Seed(ctx context.Context, f *seed.File) (*seed.Result, error) {
	res, err := seed.Apply(ctx, f, s.catalog, s.rules, s.logger.With("component", "seed"))
	if err != nil {
		return res, err
	}
	s.cache.InvalidateAll()
	return res, nil
}

// Start launches the job worker pool on this replica and joins leader
// election. The leader alone runs the job scheduler and audit retention.
// Everything stops when ctx is cancelled; Stop waits for it.
func (s *Server) Start(ctx context.Context) error {
	s.mu.RLock()
	ready := s.initialLoadDone
	s.mu.RUnlock()
	if !ready {
		return fmt.Errorf("server not initialized")
	}

	pool := jobs.NewWorkerPool(s.jobs, s.jobHandlers(), s.jobConfig, s.logger.With("component", "jobs"))
	s.goRun(func() { pool.Run(ctx) })

	s.elector.OnStartLeading(s.runLeaderLoops)
	s.elector.OnStopLeading(func() {
		s.logger.Info("stopped leader-only loops")
	})
	s.goRun(func() { s.elector.Run(ctx) })
	return nil
}

// Stop waits for the background goroutines started by Start to finish.
// The caller cancels the context passed to Start first.
func (s *Server) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background workers: %w", ctx.Err())
	}
}

// IsLeader reports whether this replica currently runs the leader loops.
func (s *Server) IsLeader() bool {
	return s.elector.IsLeader()
}

func (s *Server) jobHandlers() map[string]jobs.Handler {
	return map[string]jobs.Handler{
		stock.ReleaseAbandonedKind: stock.ReleaseAbandonedJob(s.stock, s.stockConfig.CartTTL),
	}
}

func (s *Server) jobKinds() []string {
	kinds := make([]string, 0, len(s.jobHandlers()))
	for kind := range s.jobHandlers() {
		kinds = append(kinds, kind)
	}
	return kinds
}

func (s *Server) runLeaderLoops(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if !s.jobConfig.Enabled {
			return
		}
		jobs.NewScheduler(s.jobs, s.logger.With("component", "scheduler"),
			jobs.Schedule{Kind: stock.ReleaseAbandonedKind, Interval: s.stockConfig.ReleaseInterval},
		).Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if s.auditConfig == nil || !s.auditConfig.Enabled {
			return
		}
		audit.NewRetentionWorker(s.audit, s.auditConfig.RetentionDays, s.logger.With("component", "audit")).Run(ctx)
	}()
	wg.Wait()
}

func (s *Server) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}
