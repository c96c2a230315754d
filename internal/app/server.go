package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/manara-erp/manara/internal/accounting"
	"github.com/manara-erp/manara/internal/analytics"
	analytichttp "github.com/manara-erp/manara/internal/analytics/http"
	"github.com/manara-erp/manara/internal/assistant"
	"github.com/manara-erp/manara/internal/auth"
	"github.com/manara-erp/manara/internal/observability"
	"github.com/manara-erp/manara/internal/payroll"
	"github.com/manara-erp/manara/internal/rbac"
	"github.com/manara-erp/manara/internal/shared"
	"github.com/manara-erp/manara/internal/store"
	storehttp "github.com/manara-erp/manara/internal/store/http"
	"github.com/manara-erp/manara/jobs"
)

// Deps are the external resources a server is assembled from.
type Deps struct {
	Repository store.Repository
	Redis      *redis.Client
	// Pool enables the database audit trail when set.
	Pool *pgxpool.Pool
	// Assistant may be nil; questions then receive the fallback reply.
	Assistant assistant.Client
	Jobs      jobs.Enqueuer
	Queue     jobs.QueueInspector
}

// Server is the assembled API process.
type Server struct {
	Store     *store.Store
	Analytics *analytics.Service
	Cache     *analytics.Cache
	Metrics   *observability.Metrics
	Handler   http.Handler
}

// NewServer loads the ledger, seeds the built-in accounts when the registry
// has none, registers the store hooks and builds the router.
func NewServer(ctx context.Context, cfg *Config, logger *slog.Logger, deps Deps) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Redis == nil {
		return nil, errors.New("app: redis client required")
	}

	st := store.New(deps.Repository, logger)
	if err := st.Load(ctx); err != nil {
		return nil, err
	}
	if err := seedUsers(ctx, cfg, logger, st); err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	cache := analytics.NewCache(deps.Redis, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(st, cache, logger)

	audit := shared.NewAuditLogger(deps.Pool, logger)
	if err := audit.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("app: migrate audit log: %w", err)
	}

	st.OnAppend(analyticsService.HandleAppend)
	st.OnAppend(audit.RecordAppend)
	st.OnAppend(metrics.RecordAppend)
	st.OnEntityChange(analyticsService.HandleEntityChange)
	st.OnEntityChange(metrics.RecordEntityChange)

	guard := rbac.Middleware{Checker: rbac.DefaultPolicy()}
	authService := auth.NewService(st, auth.NewSessions(deps.Redis, cfg.SessionTTL))
	assistantService := assistant.NewService(deps.Assistant, st, cfg.AssistantTimeout, logger)

	router := NewRouter(RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       auth.NewHandler(logger, authService),
		StoreHandler:      storehttp.NewHandler(logger, st, guard),
		AccountingHandler: accounting.NewHandler(logger, accounting.NewService(st), guard),
		PayrollHandler:    payroll.NewHandler(logger, payroll.NewService(st), guard),
		AnalyticsHandler:  analytichttp.NewHandler(logger, analyticsService, guard),
		AssistantHandler:  assistant.NewHandler(logger, assistantService, guard),
		JobHandler:        jobs.NewHandler(deps.Queue, deps.Jobs, guard, logger),
		Metrics:           metrics,
	})

	return &Server{
		Store:     st,
		Analytics: analyticsService,
		Cache:     cache,
		Metrics:   metrics,
		Handler:   router,
	}, nil
}

func seedUsers(ctx context.Context, cfg *Config, logger *slog.Logger, st *store.Store) error {
	if cfg.SeedAdminPassword == "" || cfg.SeedUserPassword == "" {
		logger.Warn("seed passwords not configured; built-in accounts not created")
		return nil
	}
	n, err := auth.SeedUsers(ctx, st, auth.SeedPasswords{Admin: cfg.SeedAdminPassword, Staff: cfg.SeedUserPassword})
	if err != nil {
		return fmt.Errorf("app: seed users: %w", err)
	}
	if n > 0 {
		logger.Info("seeded built-in accounts", slog.Int("count", n))
	}
	return nil
}
