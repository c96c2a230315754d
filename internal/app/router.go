package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/manara-erp/manara/internal/accounting"
	analytichttp "github.com/manara-erp/manara/internal/analytics/http"
	"github.com/manara-erp/manara/internal/assistant"
	"github.com/manara-erp/manara/internal/auth"
	"github.com/manara-erp/manara/internal/observability"
	"github.com/manara-erp/manara/internal/payroll"
	storehttp "github.com/manara-erp/manara/internal/store/http"
	"github.com/manara-erp/manara/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthHandler       *auth.Handler
	StoreHandler      *storehttp.Handler
	AccountingHandler *accounting.Handler
	PayrollHandler    *payroll.Handler
	AnalyticsHandler  *analytichttp.Handler
	AssistantHandler  *assistant.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Manara defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	var authMiddleware func(http.Handler) http.Handler
	if params.AuthHandler != nil {
		authMiddleware = params.AuthHandler.Middleware
	}
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Auth:    authMiddleware,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}
	if params.StoreHandler != nil {
		params.StoreHandler.MountRoutes(r)
	}
	if params.AccountingHandler != nil {
		params.AccountingHandler.MountRoutes(r)
	}
	if params.PayrollHandler != nil {
		params.PayrollHandler.MountRoutes(r)
	}
	if params.AnalyticsHandler != nil {
		params.AnalyticsHandler.MountRoutes(r)
	}
	if params.AssistantHandler != nil {
		params.AssistantHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		params.JobHandler.MountRoutes(r)
	}
	return r
}
