package accounting

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/accounting/statement"
	"github.com/manara-erp/manara/internal/analytics/export"
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/platform/httpx"
	"github.com/manara-erp/manara/internal/rbac"
	"github.com/manara-erp/manara/internal/store"
)

var errBadDate = errors.New("accounting: dates must be YYYY-MM-DD")

var errorRules = []httpx.Rule{
	{Domain: errBadDate, HTTP: httpx.ErrValidation},
	{Domain: ledger.ErrInvalidEntry, HTTP: httpx.ErrValidation},
	{Domain: statement.ErrUnknownKind, HTTP: httpx.ErrNotFound},
	{Domain: statement.ErrSettlementUnsupported, HTTP: httpx.ErrValidation},
	{Domain: statement.ErrSafeRequired, HTTP: httpx.ErrValidation},
	{Domain: statement.ErrNothingToSettle, HTTP: httpx.ErrValidation},
	{Domain: ErrAccountNotFound, HTTP: httpx.ErrNotFound},
	{Domain: store.ErrDuplicateTransaction, HTTP: httpx.ErrDuplicate},
}

// Handler wires accounting endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: guard, validator: httpx.NewValidator()}
}

// MountRoutes registers HTTP routes for entries and statements.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.ActionView, rbac.ViewAccounting)).Get("/api/accounting-entries", h.handleListEntries)
	r.With(h.rbac.Require(rbac.ActionCreate, rbac.ViewAccounting)).Post("/api/accounting-entries", h.handleCreateEntry)
	r.With(h.rbac.Require(rbac.ActionView, rbac.ViewStatements)).Get("/api/statements/{kind}/{id}", h.handleStatement)
	r.With(h.rbac.Require(rbac.ActionCreate, rbac.ViewStatements)).Post("/api/statements/{kind}/{id}/settle", h.handleSettle)
}

type entryRequest struct {
	ID         string          `json:"id" validate:"omitempty,max=64"`
	Date       string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Type       string          `json:"type" validate:"required,oneof=revenue expense"`
	Category   string          `json:"category" validate:"required,max=128"`
	Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
	SafeID     string          `json:"safeId" validate:"required"`
	Note       string          `json:"note" validate:"max=512"`
	BranchID   string          `json:"branchId"`
	EntityID   string          `json:"entityId"`
	EntityType string          `json:"entityType" validate:"omitempty,oneof=customer supplier"`
}

func (req entryRequest) entry() ledger.AccountingEntry {
	return ledger.AccountingEntry{
		ID:         req.ID,
		Date:       req.Date,
		Type:       ledger.EntryType(req.Type),
		Category:   strings.TrimSpace(req.Category),
		Amount:     req.Amount,
		SafeID:     req.SafeID,
		Note:       strings.TrimSpace(req.Note),
		BranchID:   req.BranchID,
		EntityID:   req.EntityID,
		EntityType: req.EntityType,
	}
}

type settleRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	SafeID   string           `json:"safeId" validate:"required"`
	BranchID string           `json:"branchId"`
	Date     string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Note     string           `json:"note" validate:"max=512"`
}

func (h *Handler) handleListEntries(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Entries())
}

func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	outcome, err := h.service.RecordEntry(r.Context(), req.entry())
	if err != nil {
		h.fail(w, "record accounting entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, outcome)
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	q, err := statementQuery(r)
	if err != nil {
		h.fail(w, "statement query", err)
		return
	}
	st := h.service.Statement(r.Context(), q)

	raw := r.URL.Query().Get("format")
	if raw == "" {
		httpx.JSON(w, http.StatusOK, st)
		return
	}
	format, err := export.ParseFormat(raw)
	if err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	if !h.rbac.Allowed(r, rbac.ActionExport, rbac.ViewStatements) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	httpx.Attachment(w, format.ContentType(), format.Filename(fmt.Sprintf("statement-%s-%s", q.Kind, q.AccountID)))
	table := export.StatementTable(st)
	if format == export.FormatXLSX {
		err = export.WriteXLSX(w, table)
	} else {
		err = export.WriteCSV(w, table)
	}
	if err != nil {
		h.logger.Error("statement export", slog.Any("error", err))
	}
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	q, err := statementQuery(r)
	if err != nil {
		h.fail(w, "settle query", err)
		return
	}
	q.From, q.To = "", ""

	var req settleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	outcome, err := h.service.Settle(r.Context(), q, statement.SettleInput{
		Amount:   req.Amount,
		SafeID:   req.SafeID,
		BranchID: req.BranchID,
		Date:     req.Date,
		Note:     strings.TrimSpace(req.Note),
	})
	if err != nil {
		h.fail(w, "settle account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, outcome)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	for _, rule := range errorRules {
		if errors.Is(err, rule.Domain) {
			httpx.RespondError(w, httpx.Classify(err, rule))
			return
		}
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func statementQuery(r *http.Request) (statement.Query, error) {
	kind, err := statement.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return statement.Query{}, err
	}
	q := statement.Query{
		Kind:      kind,
		AccountID: chi.URLParam(r, "id"),
		From:      strings.TrimSpace(r.URL.Query().Get("from")),
		To:        strings.TrimSpace(r.URL.Query().Get("to")),
	}
	for _, v := range []string{q.From, q.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return statement.Query{}, errBadDate
		}
	}
	return q, nil
}
