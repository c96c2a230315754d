package assistant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/manara-erp/manara/internal/platform/httpx"
	"github.com/manara-erp/manara/internal/rbac"
)

// Handler exposes the assistant endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs the assistant handler.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: guard, validator: httpx.NewValidator()}
}

// MountRoutes registers the assistant route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.ActionView, rbac.ViewDashboard)).Post("/api/assistant", h.handleAsk)
}

type askRequest struct {
	Mode     string `json:"mode" validate:"omitempty,oneof=basic think search"`
	Question string `json:"question" validate:"required,max=4000"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	reply, err := h.service.Ask(r.Context(), mode, req.Question)
	if errors.Is(err, ErrInvalidQuestion) {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	if err != nil {
		h.logger.Error("assistant ask", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reply)
}
