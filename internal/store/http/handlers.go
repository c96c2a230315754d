package storehttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/auth"
	"github.com/manara-erp/manara/internal/inventory"
	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
	"github.com/manara-erp/manara/internal/platform/httpx"
	"github.com/manara-erp/manara/internal/rbac"
	"github.com/manara-erp/manara/internal/shared"
	"github.com/manara-erp/manara/internal/store"
)

var errorRules = []httpx.Rule{
	{Domain: masterdata.ErrNotFound, HTTP: httpx.ErrNotFound},
	{Domain: masterdata.ErrDuplicateID, HTTP: httpx.ErrDuplicate},
	{Domain: masterdata.ErrInvalidEntity, HTTP: httpx.ErrValidation},
	{Domain: ledger.ErrInvalidTransaction, HTTP: httpx.ErrValidation},
	{Domain: store.ErrDuplicateTransaction, HTTP: httpx.ErrDuplicate},
	{Domain: store.ErrAccountingViaEntry, HTTP: httpx.ErrValidation},
	{Domain: store.ErrReferencedID, HTTP: httpx.ErrDuplicate},
	{Domain: inventory.ErrProductRequired, HTTP: httpx.ErrValidation},
	{Domain: inventory.ErrWarehouseRequired, HTTP: httpx.ErrValidation},
}

var errPasswordRequired = errors.New("password required for new users")

// Handler exposes the entity registry, transaction recording and stock
// cards over HTTP.
type Handler struct {
	logger    *slog.Logger
	store     *store.Store
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs the store HTTP handler.
func NewHandler(logger *slog.Logger, s *store.Store, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: s, rbac: guard, validator: httpx.NewValidator()}
}

// MountRoutes registers registry and transaction endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/entities/{kind}", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
	r.With(h.rbac.Require(rbac.ActionCreate, rbac.ViewOperations)).Post("/api/transactions", h.handleAppend)
	r.With(h.rbac.Require(rbac.ActionView, rbac.ViewRegistry)).Get("/api/transactions/{id}", h.handleTransaction)
	r.With(h.rbac.Require(rbac.ActionView, rbac.ViewSources)).Get("/api/products/{id}/stock-card", h.handleStockCard)
}

// viewFor maps a collection onto the functional area that guards it.
func viewFor(kind masterdata.Kind) rbac.View {
	switch kind {
	case masterdata.KindUser:
		return rbac.ViewUsersManagement
	case masterdata.KindEmployee:
		return rbac.ViewEmployees
	}
	return rbac.ViewSources
}

// authorize resolves the kind path parameter and checks action on its view.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action rbac.Action) (masterdata.Kind, bool) {
	kind := masterdata.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httpx.RespondError(w, httpx.Classify(masterdata.ErrInvalidEntity, httpx.Rule{Domain: masterdata.ErrInvalidEntity, HTTP: httpx.ErrNotFound}))
		return "", false
	}
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return "", false
	}
	if !h.rbac.Allowed(r, action, viewFor(kind)) {
		h.logger.Warn("rbac denied",
			slog.String("user_id", actor.UserID),
			slog.String("action", string(action)),
			slog.String("kind", string(kind)))
		httpx.RespondError(w, httpx.ErrForbidden)
		return "", false
	}
	return kind, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.authorize(w, r, rbac.ActionView)
	if !ok {
		return
	}
	items := h.store.Entities(kind)
	for i, e := range items {
		items[i] = present(e)
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.authorize(w, r, rbac.ActionView)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	e, found := h.store.Entity(kind, id)
	if !found {
		h.fail(w, "get entity", masterdata.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, present(e))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.authorize(w, r, rbac.ActionCreate)
	if !ok {
		return
	}
	e, err := h.decodeEntity(r, kind, true)
	if err != nil {
		h.fail(w, "decode entity", err)
		return
	}
	created, err := h.store.AddEntity(r.Context(), e)
	if err != nil {
		h.fail(w, "add entity", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, present(created))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.authorize(w, r, rbac.ActionUpdate)
	if !ok {
		return
	}
	e, err := h.decodeEntity(r, kind, false)
	if err != nil {
		h.fail(w, "decode entity", err)
		return
	}
	e = masterdata.WithID(e, chi.URLParam(r, "id"))
	updated, err := h.store.UpdateEntity(r.Context(), e)
	if err != nil {
		h.fail(w, "update entity", err)
		return
	}
	httpx.JSON(w, http.StatusOK, present(updated))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.authorize(w, r, rbac.ActionDelete)
	if !ok {
		return
	}
	if err := h.store.RemoveEntity(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "remove entity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userPayload struct {
	masterdata.User
	Password string `json:"password" validate:"omitempty,min=8,max=128"`
}

// decodeEntity reads the request body into the record type of kind. User
// payloads carry a plain password that is hashed here; client supplied
// hashes are ignored.
func (h *Handler) decodeEntity(r *http.Request, kind masterdata.Kind, creating bool) (masterdata.Entity, error) {
	if kind == masterdata.KindUser {
		var payload userPayload
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			return nil, err
		}
		if err := h.validator.Struct(payload); err != nil {
			return nil, httpx.Invalid(err)
		}
		for _, p := range payload.Permissions {
			if !rbac.ValidAction(p) {
				return nil, httpx.Invalid(errors.New("unknown permission " + p))
			}
		}
		user := payload.User
		user.PasswordHash = ""
		if payload.Password == "" && creating {
			return nil, httpx.Invalid(errPasswordRequired)
		}
		if payload.Password != "" {
			hash, err := auth.HashPassword(payload.Password)
			if err != nil {
				return nil, err
			}
			user.PasswordHash = hash
		}
		return user, nil
	}

	target, err := masterdata.New(kind)
	if err != nil {
		return nil, err
	}
	if err := httpx.DecodeJSON(r, target); err != nil {
		return nil, err
	}
	if err := h.validator.Struct(target); err != nil {
		return nil, httpx.Invalid(err)
	}
	return masterdata.Deref(target), nil
}

// present strips credentials before a record leaves the process.
func present(e masterdata.Entity) masterdata.Entity {
	if u, ok := e.(masterdata.User); ok {
		u.PasswordHash = ""
		return u
	}
	return e
}

type itemRequest struct {
	ProductID     string           `json:"productId" validate:"required"`
	ProductName   string           `json:"productName"`
	Quantity      int              `json:"quantity" validate:"min=0"`
	BoxQuantity   int              `json:"boxQuantity" validate:"min=0"`
	PieceQuantity int              `json:"pieceQuantity" validate:"min=0"`
	Price         *decimal.Decimal `json:"price"`
	Cost          *decimal.Decimal `json:"cost"`
	LossQuantity  int              `json:"lossQuantity" validate:"min=0"`
}

type transactionRequest struct {
	ID              string           `json:"id" validate:"omitempty,max=64"`
	Date            string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Type            string           `json:"type" validate:"required,oneof=sale purchase loss transfer"`
	Items           []itemRequest    `json:"items" validate:"required,min=1,dive"`
	TotalAmount     *decimal.Decimal `json:"totalAmount"`
	EntityID        string           `json:"entityId"`
	EntityName      string           `json:"entityName"`
	WarehouseID     string           `json:"warehouseId" validate:"required_unless=Type transfer"`
	FromWarehouseID string           `json:"fromWarehouseId"`
	ToWarehouseID   string           `json:"toWarehouseId"`
	SafeID          string           `json:"safeId"`
	BranchID        string           `json:"branchId"`
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.Invalid(err))
		return
	}
	outcome, err := h.store.Append(r.Context(), h.buildTransaction(req))
	if err != nil {
		h.fail(w, "append transaction", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, outcome)
}

// buildTransaction fills the snapshots a client may omit from the registry:
// product names, prices, costs, box conversions, the counterparty name and
// the invoice total.
func (h *Handler) buildTransaction(req transactionRequest) ledger.Transaction {
	tx := ledger.Transaction{
		ID:              req.ID,
		Date:            req.Date,
		Type:            ledger.TransactionType(req.Type),
		Items:           make([]ledger.TransactionItem, 0, len(req.Items)),
		EntityID:        req.EntityID,
		EntityName:      strings.TrimSpace(req.EntityName),
		WarehouseID:     req.WarehouseID,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		SafeID:          req.SafeID,
		BranchID:        req.BranchID,
	}
	total, totalCost := decimal.Zero, decimal.Zero
	for _, in := range req.Items {
		item := ledger.TransactionItem{
			ProductID:     in.ProductID,
			ProductName:   in.ProductName,
			Quantity:      in.Quantity,
			BoxQuantity:   in.BoxQuantity,
			PieceQuantity: in.PieceQuantity,
			LossQuantity:  in.LossQuantity,
			Price:         decimal.Zero,
			Cost:          decimal.Zero,
		}
		product, known := store.Get[masterdata.Product](h.store, in.ProductID)
		if known {
			if item.ProductName == "" {
				item.ProductName = product.Name
			}
			if item.Quantity == 0 && (in.BoxQuantity > 0 || in.PieceQuantity > 0) {
				item.Quantity = product.QuantityFromPacks(in.BoxQuantity, in.PieceQuantity)
			}
			item.Price = product.Price
			if product.Cost != nil {
				item.Cost = *product.Cost
				if tx.Type == ledger.TypePurchase {
					item.Price = *product.Cost
				}
			}
			item.Unit = product.Unit
			item.Packaging = product.Packaging
		}
		if in.Price != nil {
			item.Price = *in.Price
		}
		if in.Cost != nil {
			item.Cost = *in.Cost
		}
		total = total.Add(item.LineTotal())
		totalCost = totalCost.Add(item.LineCost())
		tx.Items = append(tx.Items, item)
	}
	tx.TotalAmount = total
	if req.TotalAmount != nil {
		tx.TotalAmount = *req.TotalAmount
	}
	tx.TotalCost = totalCost
	if tx.EntityName == "" && tx.EntityID != "" {
		kind := masterdata.KindCustomer
		if tx.Type == ledger.TypePurchase {
			kind = masterdata.KindSupplier
		}
		if e, ok := h.store.Entity(kind, tx.EntityID); ok {
			tx.EntityName = masterdata.DisplayName(e)
		}
	}
	return tx
}

func (h *Handler) handleTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.store.Transaction(chi.URLParam(r, "id"))
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

func (h *Handler) handleStockCard(w http.ResponseWriter, r *http.Request) {
	product, ok := store.Get[masterdata.Product](h.store, chi.URLParam(r, "id"))
	if !ok {
		h.fail(w, "stock card", masterdata.ErrNotFound)
		return
	}
	card, err := inventory.BuildStockCard(h.store.Transactions(), product, r.URL.Query().Get("warehouse_id"))
	if err != nil {
		h.fail(w, "stock card", err)
		return
	}
	httpx.JSON(w, http.StatusOK, card)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	for _, rule := range errorRules {
		if errors.Is(err, rule.Domain) {
			httpx.RespondError(w, httpx.Classify(err, rule))
			return
		}
	}
	if errors.Is(err, httpx.ErrValidation) {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
