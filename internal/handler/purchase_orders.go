package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/enum"
	"github.com/mbg-dapur/api/internal/middleware"
	"github.com/mbg-dapur/api/internal/service"
	"github.com/mbg-dapur/api/internal/workflow"
)

const purchaseOrderListLimit = 100

// PurchaseOrderStore defines the read-side database methods needed by
// purchase order handlers. Satisfied by *database.Queries.
type PurchaseOrderStore interface {
	ListPurchaseOrdersByDapur(ctx context.Context, arg database.ListPurchaseOrdersByDapurParams) ([]database.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error)
	ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error)
	ListPOWorkflowSteps(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PoWorkflowStep, error)
	ListPOWorkflowStepsByOrders(ctx context.Context, purchaseOrderIds []uuid.UUID) ([]database.PoWorkflowStep, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// PurchaseOrderService is the write side. Satisfied by *service.PurchaseService.
type PurchaseOrderService interface {
	Create(ctx context.Context, req service.CreatePurchaseOrderRequest) (*service.PurchaseOrderResult, error)
	UpdateStep(ctx context.Context, req service.UpdateStepRequest) (*service.PurchaseOrderResult, error)
	Policy() workflow.ProgressPolicy
}

// PurchaseOrderHandler handles purchase orders and their workflow steps.
type PurchaseOrderHandler struct {
	store   PurchaseOrderStore
	service PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler.
func NewPurchaseOrderHandler(store PurchaseOrderStore, svc PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{store: store, service: svc}
}

// RegisterRoutes registers purchase order endpoints on the given Chi router.
// Expected to be mounted inside a dapur-scoped subrouter:
// /dapurs/{dapurId}/purchase-orders
func (h *PurchaseOrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleOwner, enum.UserRoleAdmin, enum.UserRoleAkuntan))
		r.Post("/", h.Create)
		r.Patch("/{id}/steps/{stepId}", h.UpdateStep)
	})
}

// --- Request / Response types ---

type createPurchaseOrderRequest struct {
	SupplierName string                     `json:"supplier_name"`
	Notes        string                     `json:"notes"`
	Items        []createPurchaseItemRequest `json:"items"`
}

type createPurchaseItemRequest struct {
	Name      string      `json:"name"`
	Quantity  json.Number `json:"quantity"`
	Unit      string      `json:"unit"`
	UnitPrice json.Number `json:"unit_price"`
}

type updateStepRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type purchaseOrderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Quantity  string    `json:"quantity"`
	Unit      string    `json:"unit"`
	UnitPrice string    `json:"unit_price"`
	Subtotal  string    `json:"subtotal"`
}

type purchaseOrderResponse struct {
	ID           uuid.UUID                   `json:"id"`
	DapurID      int64                       `json:"dapur_id"`
	PONumber     string                      `json:"po_number"`
	SupplierName string                      `json:"supplier_name"`
	Status       string                      `json:"status"`
	TotalAmount  string                      `json:"total_amount"`
	Notes        *string                     `json:"notes"`
	CreatedBy    uuid.UUID                   `json:"created_by"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	CompletedAt  *time.Time                  `json:"completed_at"`
	Summary      workflow.Summary            `json:"summary"`
	Items        []purchaseOrderItemResponse `json:"items,omitempty"`
	Workflow     *workflow.View              `json:"workflow,omitempty"`
}

func toPurchaseOrderResponse(o database.PurchaseOrder, wf *workflow.Workflow, policy workflow.ProgressPolicy) purchaseOrderResponse {
	resp := purchaseOrderResponse{
		ID:           o.ID,
		DapurID:      o.DapurID,
		PONumber:     o.PoNumber,
		SupplierName: o.SupplierName,
		Status:       o.Status,
		TotalAmount:  numericString(o.TotalAmount),
		Notes:        textPtr(o.Notes),
		CreatedBy:    o.CreatedBy,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Summary:      workflow.Summarize(wf, policy),
	}
	if o.CompletedAt.Valid {
		t := o.CompletedAt.Time
		resp.CompletedAt = &t
	}
	return resp
}

func withDetail(resp purchaseOrderResponse, items []database.PurchaseOrderItem, wf *workflow.Workflow, policy workflow.ProgressPolicy) purchaseOrderResponse {
	resp.Items = make([]purchaseOrderItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = purchaseOrderItemResponse{
			ID:        it.ID,
			Name:      it.Name,
			Quantity:  numericString(it.Quantity),
			Unit:      it.Unit,
			UnitPrice: numericString(it.UnitPrice),
			Subtotal:  numericString(it.Subtotal),
		}
	}
	view := workflow.Render(wf, policy)
	resp.Workflow = &view
	return resp
}

// --- Handlers ---

// List returns the dapur's most recent purchase orders with a workflow
// summary each.
func (h *PurchaseOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	dapurID, ok := dapurIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, service.CodeInvalidDapurID, "invalid dapur ID")
		return
	}

	orders, err := h.store.ListPurchaseOrdersByDapur(r.Context(), database.ListPurchaseOrdersByDapurParams{
		DapurID: dapurID,
		Limit:   purchaseOrderListLimit,
	})
	if err != nil {
		writeInternal(w, "list purchase orders", err)
		return
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	stepsByOrder := make(map[uuid.UUID][]database.PoWorkflowStep, len(orders))
	if len(ids) > 0 {
		steps, err := h.store.ListPOWorkflowStepsByOrders(r.Context(), ids)
		if err != nil {
			writeInternal(w, "list workflow steps", err)
			return
		}
		for _, s := range steps {
			stepsByOrder[s.PurchaseOrderID] = append(stepsByOrder[s.PurchaseOrderID], s)
		}
	}

	policy := h.service.Policy()
	resp := make([]purchaseOrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toPurchaseOrderResponse(o, service.WorkflowFromRows(stepsByOrder[o.ID]), policy)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one purchase order with its items and full workflow view.
func (h *PurchaseOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	dapurID, ok := dapurIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, service.CodeInvalidDapurID, "invalid dapur ID")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid purchase order ID")
		return
	}

	order, err := h.store.GetPurchaseOrder(r.Context(), database.GetPurchaseOrderParams{ID: orderID, DapurID: dapurID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "purchase order not found")
			return
		}
		writeInternal(w, "get purchase order", err)
		return
	}

	items, err := h.store.ListPurchaseOrderItems(r.Context(), order.ID)
	if err != nil {
		writeInternal(w, "list purchase order items", err)
		return
	}

	steps, err := h.store.ListPOWorkflowSteps(r.Context(), order.ID)
	if err != nil {
		writeInternal(w, "list workflow steps", err)
		return
	}

	policy := h.service.Policy()
	wf := service.WorkflowFromRows(steps)
	writeJSON(w, http.StatusOK, withDetail(toPurchaseOrderResponse(order, wf, policy), items, wf, policy))
}

// Create opens a new purchase order with all ten workflow steps.
func (h *PurchaseOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	dapurID, ok := dapurIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, service.CodeInvalidDapurID, "invalid dapur ID")
		return
	}

	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	var req createPurchaseOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	items := make([]service.PurchaseItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.PurchaseItemRequest{
			Name:      it.Name,
			Quantity:  it.Quantity.String(),
			Unit:      it.Unit,
			UnitPrice: it.UnitPrice.String(),
		}
	}

	result, err := h.service.Create(r.Context(), service.CreatePurchaseOrderRequest{
		DapurID:      dapurID,
		CreatedBy:    session.UserID,
		SupplierName: req.SupplierName,
		Notes:        req.Notes,
		Items:        items,
	})
	if err != nil {
		if verr, ok := asValidation(err); ok {
			writeValidation(w, verr)
			return
		}
		if service.IsForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, service.CodeInvalidDapurID, "dapur not found")
			return
		}
		writeInternal(w, "create purchase order", err)
		return
	}

	policy := h.service.Policy()
	writeJSON(w, http.StatusCreated, withDetail(toPurchaseOrderResponse(result.Order, result.Workflow, policy), result.Items, result.Workflow, policy))
}

// UpdateStep transitions one workflow step and returns the updated order
// with its rendered workflow.
func (h *PurchaseOrderHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	dapurID, ok := dapurIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, service.CodeInvalidDapurID, "invalid dapur ID")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid purchase order ID")
		return
	}

	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	var req updateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "MISSING_STATUS", "status is required")
		return
	}

	actor, err := h.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "user not found")
			return
		}
		writeInternal(w, "get acting user", err)
		return
	}

	result, err := h.service.UpdateStep(r.Context(), service.UpdateStepRequest{
		DapurID: dapurID,
		OrderID: orderID,
		StepID:  chi.URLParam(r, "stepId"),
		Status:  req.Status,
		Notes:   req.Notes,
		Actor:   actor.FullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			writeError(w, http.StatusNotFound, codeNotFound, "purchase order not found")
		case errors.Is(err, workflow.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
		default:
			if verr, ok := asValidation(err); ok {
				writeValidation(w, verr)
				return
			}
			writeInternal(w, "update workflow step", err)
		}
		return
	}

	policy := h.service.Policy()
	resp := toPurchaseOrderResponse(result.Order, result.Workflow, policy)
	view := workflow.Render(result.Workflow, policy)
	resp.Workflow = &view
	writeJSON(w, http.StatusOK, resp)
}
