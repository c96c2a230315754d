package payroll

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/platform/httpx"
	"github.com/manara-erp/manara/internal/rbac"
)

// Handler exposes payroll endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a payroll handler.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: guard, validator: httpx.NewValidator()}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.ActionView, rbac.ViewEmployees)).Get("/api/payroll/payments", h.handleList)
	r.With(h.rbac.Require(rbac.ActionCreate, rbac.ViewEmployees)).Post("/api/payroll/payments", h.handlePay)
}

type payRequest struct {
	EmployeeID string          `json:"employeeId" validate:"required"`
	Month      int             `json:"month" validate:"min=1,max=12"`
	Year       int             `json:"year" validate:"min=2000,max=2100"`
	Bonus      decimal.Decimal `json:"bonus" validate:"gte=0"`
	Deduction  decimal.Decimal `json:"deduction" validate:"gte=0"`
	SafeID     string          `json:"safeId" validate:"required"`
	Date       string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	BranchID   string          `json:"branchId"`
}

type payResponse struct {
	Payment  ledger.SalaryPayment `json:"payment"`
	Warnings []ledger.Warning     `json:"warnings,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Payments())
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	payment, outcome, err := h.service.Pay(r.Context(), PaymentInput{
		EmployeeID: req.EmployeeID,
		Month:      req.Month,
		Year:       req.Year,
		Bonus:      req.Bonus,
		Deduction:  req.Deduction,
		SafeID:     req.SafeID,
		Date:       req.Date,
		BranchID:   req.BranchID,
	})
	switch {
	case errors.Is(err, ErrEmployeeNotFound):
		httpx.RespondError(w, httpx.Classify(err, httpx.Rule{Domain: ErrEmployeeNotFound, HTTP: httpx.ErrNotFound}))
		return
	case errors.Is(err, ErrInvalidPeriod):
		httpx.RespondError(w, httpx.Classify(err, httpx.Rule{Domain: ErrInvalidPeriod, HTTP: httpx.ErrValidation}))
		return
	case err != nil:
		h.logger.Error("pay salary", slog.String("employee_id", req.EmployeeID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payResponse{Payment: payment, Warnings: outcome.Warnings})
}
