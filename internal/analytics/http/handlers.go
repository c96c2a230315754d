package analytichttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/manara-erp/manara/internal/analytics"
	"github.com/manara-erp/manara/internal/analytics/export"
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/platform/httpx"
	"github.com/manara-erp/manara/internal/rbac"
)

const requestTimeout = 2 * time.Second

var errBadDate = errors.New("analytics: dates must be YYYY-MM-DD")

// AnalyticsService defines the data contract used by the handler.
type AnalyticsService interface {
	Report(ctx context.Context, f analytics.Filter) (analytics.Report, error)
	Dashboard(ctx context.Context) (analytics.Dashboard, error)
	LowStock(ctx context.Context) []analytics.LowStockItem
	Transactions(f analytics.Filter) []ledger.Transaction
}

// Handler serves reports, the dashboard, stock alerts and the transaction
// registry.
type Handler struct {
	logger  *slog.Logger
	service AnalyticsService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: guard, now: time.Now}
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Report(ctx, filter)
	if err != nil {
		h.logger.Error("report build failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	report = report.Redact(h.can(r, rbac.ActionViewCosts), h.can(r, rbac.ActionViewProfitLoss))
	if format := r.URL.Query().Get("format"); format != "" {
		h.download(w, r, format, rbac.ViewReports, "report", export.ReportTable(report))
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.service.Dashboard(ctx)
	if err != nil {
		h.logger.Error("dashboard build failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	dash = dash.Redact(h.can(r, rbac.ActionViewCosts), h.can(r, rbac.ActionViewProfitLoss))
	if !h.rbac.Allowed(r, rbac.ActionViewAlerts, rbac.ViewDashboard) && !h.rbac.Allowed(r, rbac.ActionViewAlerts, rbac.ViewNone) {
		dash.LowStock = []analytics.LowStockItem{}
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.LowStock(r.Context()))
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	txs := h.service.Transactions(filter)
	if format := r.URL.Query().Get("format"); format != "" {
		h.download(w, r, format, rbac.ViewRegistry, "transactions", export.TransactionsTable(txs))
		return
	}
	httpx.JSON(w, http.StatusOK, txs)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, raw string, view rbac.View, base string, table export.Table) {
	format, err := export.ParseFormat(raw)
	if err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	if !h.rbac.Allowed(r, rbac.ActionExport, view) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	filename := format.Filename(fmt.Sprintf("%s-%s", base, h.now().Format("20060102")))
	httpx.Attachment(w, format.ContentType(), filename)
	if format == export.FormatXLSX {
		err = export.WriteXLSX(w, table)
	} else {
		err = export.WriteCSV(w, table)
	}
	if err != nil {
		h.logger.Error("export failed", slog.String("format", string(format)), slog.Any("error", err))
	}
}

// can reports whether the actor holds a figure-level grant, either directly
// through user permissions or through the role's reports view.
func (h *Handler) can(r *http.Request, action rbac.Action) bool {
	return h.rbac.Allowed(r, action, rbac.ViewNone) || h.rbac.Allowed(r, action, rbac.ViewReports)
}

func parseFilter(r *http.Request) (analytics.Filter, error) {
	q := r.URL.Query()
	f := analytics.Filter{
		From:     strings.TrimSpace(q.Get("from")),
		To:       strings.TrimSpace(q.Get("to")),
		BranchID: strings.TrimSpace(q.Get("branch_id")),
		Search:   q.Get("q"),
	}
	for _, v := range []string{f.From, f.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return analytics.Filter{}, errBadDate
		}
	}
	return f, nil
}
