package analytichttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/manara-erp/manara/internal/rbac"
	"github.com/manara-erp/manara/internal/shared"
)

// MountRoutes registers analytics endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.With(h.rbac.Require(rbac.ActionView, rbac.ViewDashboard)).Get("/api/dashboard", h.handleDashboard)
	r.With(h.rbac.Require(rbac.ActionViewAlerts, rbac.ViewDashboard)).Get("/api/alerts/low-stock", h.handleLowStock)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.With(h.rbac.Require(rbac.ActionView, rbac.ViewReports)).Get("/api/reports", h.handleReport)
		gr.With(h.rbac.Require(rbac.ActionView, rbac.ViewRegistry)).Get("/api/transactions", h.handleTransactions)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := shared.ActorFromContext(r.Context()); actor != nil {
		if user := strings.TrimSpace(actor.UserID); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
