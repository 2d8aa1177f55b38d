package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/enum"
	"github.com/mbg-dapur/api/internal/handler"
	"github.com/mbg-dapur/api/internal/middleware"
	"github.com/mbg-dapur/api/internal/service"
	"github.com/mbg-dapur/api/internal/workflow"
)

// --- Mocks ---

type mockPOStore struct {
	orders map[uuid.UUID]database.PurchaseOrder
	items  map[uuid.UUID][]database.PurchaseOrderItem
	steps  map[uuid.UUID][]database.PoWorkflowStep
	users  map[uuid.UUID]database.User
}

func newMockPOStore() *mockPOStore {
	return &mockPOStore{
		orders: make(map[uuid.UUID]database.PurchaseOrder),
		items:  make(map[uuid.UUID][]database.PurchaseOrderItem),
		steps:  make(map[uuid.UUID][]database.PoWorkflowStep),
		users:  make(map[uuid.UUID]database.User),
	}
}

func (m *mockPOStore) ListPurchaseOrdersByDapur(_ context.Context, arg database.ListPurchaseOrdersByDapurParams) ([]database.PurchaseOrder, error) {
	var result []database.PurchaseOrder
	for _, o := range m.orders {
		if o.DapurID == arg.DapurID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *mockPOStore) GetPurchaseOrder(_ context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error) {
	o, ok := m.orders[arg.ID]
	if !ok || o.DapurID != arg.DapurID {
		return database.PurchaseOrder{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockPOStore) ListPurchaseOrderItems(_ context.Context, id uuid.UUID) ([]database.PurchaseOrderItem, error) {
	return m.items[id], nil
}

func (m *mockPOStore) ListPOWorkflowSteps(_ context.Context, id uuid.UUID) ([]database.PoWorkflowStep, error) {
	return m.steps[id], nil
}

func (m *mockPOStore) ListPOWorkflowStepsByOrders(_ context.Context, ids []uuid.UUID) ([]database.PoWorkflowStep, error) {
	var result []database.PoWorkflowStep
	for _, id := range ids {
		result = append(result, m.steps[id]...)
	}
	return result, nil
}

func (m *mockPOStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

// addOrder stores an order whose first `completed` steps are done.
func (m *mockPOStore) addOrder(dapurID int64, number string, completed int) database.PurchaseOrder {
	o := database.PurchaseOrder{
		ID: uuid.New(), DapurID: dapurID, PoNumber: number, SupplierName: "CV Sumber Pangan",
		Status: "OPEN", TotalAmount: mustNumeric("150000"), CreatedBy: uuid.New(),
	}
	m.orders[o.ID] = o
	for i, id := range workflow.Stages() {
		status := workflow.StatusPending
		if i < completed {
			status = workflow.StatusCompleted
		}
		m.steps[o.ID] = append(m.steps[o.ID], database.PoWorkflowStep{
			PurchaseOrderID: o.ID, Position: int16(i), StepID: string(id), Status: string(status),
		})
	}
	m.items[o.ID] = []database.PurchaseOrderItem{{
		ID: uuid.New(), PurchaseOrderID: o.ID, Name: "Beras", Quantity: mustNumeric("10"),
		Unit: "kg", UnitPrice: mustNumeric("15000"), Subtotal: mustNumeric("150000"),
	}}
	return o
}

func mustNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

type mockPOService struct {
	createReq service.CreatePurchaseOrderRequest
	updateReq service.UpdateStepRequest
	err       error
}

func (s *mockPOService) Create(_ context.Context, req service.CreatePurchaseOrderRequest) (*service.PurchaseOrderResult, error) {
	s.createReq = req
	if s.err != nil {
		return nil, s.err
	}
	wf, _ := workflow.New()
	_ = wf.Transition(workflow.StageDraft, workflow.StatusInProgress, "", nil, time.Now())
	order := database.PurchaseOrder{
		ID: uuid.New(), DapurID: req.DapurID, PoNumber: "PO-20240102-001",
		SupplierName: req.SupplierName, Status: "OPEN", TotalAmount: mustNumeric("616505"), CreatedBy: req.CreatedBy,
	}
	return &service.PurchaseOrderResult{Order: order, Workflow: wf}, nil
}

func (s *mockPOService) UpdateStep(_ context.Context, req service.UpdateStepRequest) (*service.PurchaseOrderResult, error) {
	s.updateReq = req
	if s.err != nil {
		return nil, s.err
	}
	wf, _ := workflow.New()
	_ = wf.Transition(workflow.StageID(req.StepID), workflow.Status(req.Status), req.Actor, req.Notes, time.Now())
	order := database.PurchaseOrder{ID: req.OrderID, DapurID: req.DapurID, Status: "OPEN", TotalAmount: mustNumeric("0")}
	return &service.PurchaseOrderResult{Order: order, Workflow: wf}, nil
}

func (s *mockPOService) Policy() workflow.ProgressPolicy { return workflow.ProgressCompletedOnly }

// --- Helpers ---

func setupPORouter(store *mockPOStore, svc *mockPOService) *chi.Mux {
	h := handler.NewPurchaseOrderHandler(store, svc)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Route("/dapurs/{dapurId}/purchase-orders", func(r chi.Router) {
			r.Use(middleware.RequireDapur)
			h.RegisterRoutes(r)
		})
	})
	return r
}

func poPath(dapurID int64) string {
	return fmt.Sprintf("/dapurs/%d/purchase-orders", dapurID)
}

// --- Read tests ---

func TestListPurchaseOrders_WithSummary(t *testing.T) {
	store := newMockPOStore()
	store.addOrder(1, "PO-20240102-001", 3)
	store.addOrder(2, "PO-20240102-001", 0)
	router := setupPORouter(store, &mockPOService{})

	rr := doAuthRequest(t, router, "GET", poPath(1), nil, testSession(1, enum.UserRoleChef))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 order, got %d", len(resp))
	}
	summary, ok := resp[0]["summary"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected summary object, got %v", resp[0]["summary"])
	}
	if summary["progress"] != float64(30) {
		t.Errorf("progress: got %v, want 30", summary["progress"])
	}
	if summary["label"] != "Langkah 4 dari 10" {
		t.Errorf("label: got %v", summary["label"])
	}
	if resp[0]["total_amount"] != "150000" {
		t.Errorf("total_amount: got %v", resp[0]["total_amount"])
	}
	if _, hasWorkflow := resp[0]["workflow"]; hasWorkflow {
		t.Error("list entries should not carry the full workflow view")
	}
}

func TestListPurchaseOrders_ForbiddenDapur(t *testing.T) {
	router := setupPORouter(newMockPOStore(), &mockPOService{})
	rr := doAuthRequest(t, router, "GET", poPath(2), nil, testSession(1, enum.UserRoleAdmin))
	assertError(t, rr, http.StatusForbidden, "FORBIDDEN_DAPUR")
}

func TestGetPurchaseOrder_Detail(t *testing.T) {
	store := newMockPOStore()
	o := store.addOrder(1, "PO-20240102-001", 1)
	router := setupPORouter(store, &mockPOService{})

	rr := doAuthRequest(t, router, "GET", poPath(1)+"/"+o.ID.String(), nil, testSession(1, enum.UserRoleAkuntan))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	items, _ := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", resp["items"])
	}
	if item := items[0].(map[string]interface{}); item["unit_price"] != "15000" || item["unit"] != "kg" {
		t.Errorf("item: got %v", item)
	}
	wf, _ := resp["workflow"].(map[string]interface{})
	steps, _ := wf["steps"].([]interface{})
	if len(steps) != 10 {
		t.Fatalf("expected 10 workflow steps, got %d", len(steps))
	}
	second := steps[1].(map[string]interface{})
	if second["id"] != "approval" || second["current"] != true {
		t.Errorf("second step: got %v", second)
	}
}

func TestGetPurchaseOrder_Errors(t *testing.T) {
	store := newMockPOStore()
	o := store.addOrder(2, "PO-20240102-001", 0)
	router := setupPORouter(store, &mockPOService{})
	owner := testSession(0, enum.UserRoleOwner)

	// another dapur's order is not visible through this dapur
	rr := doAuthRequest(t, router, "GET", poPath(1)+"/"+o.ID.String(), nil, owner)
	assertError(t, rr, http.StatusNotFound, "NOT_FOUND")

	rr = doAuthRequest(t, router, "GET", poPath(1)+"/nope", nil, owner)
	assertError(t, rr, http.StatusBadRequest, "INVALID_ID")
}

// --- Write tests ---

func TestCreatePurchaseOrder(t *testing.T) {
	svc := &mockPOService{}
	router := setupPORouter(newMockPOStore(), svc)
	session := testSession(1, enum.UserRoleAdmin)

	rr := doAuthRequest(t, router, "POST", poPath(1),
		`{"supplier_name":"CV Sumber Pangan","items":[{"name":"Beras","quantity":10.5,"unit":"kg","unit_price":"14999.99"}]}`, session)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	if svc.createReq.DapurID != 1 || svc.createReq.CreatedBy != session.UserID {
		t.Errorf("request: got dapur %d created by %v", svc.createReq.DapurID, svc.createReq.CreatedBy)
	}
	if len(svc.createReq.Items) != 1 || svc.createReq.Items[0].Quantity != "10.5" || svc.createReq.Items[0].UnitPrice != "14999.99" {
		t.Errorf("items: got %+v", svc.createReq.Items)
	}

	resp := decodeResponse(t, rr)
	if resp["po_number"] != "PO-20240102-001" {
		t.Errorf("po_number: got %v", resp["po_number"])
	}
	if _, ok := resp["workflow"].(map[string]interface{}); !ok {
		t.Errorf("expected workflow view, got %v", resp["workflow"])
	}
}

func TestCreatePurchaseOrder_ValidationIndex(t *testing.T) {
	svc := &mockPOService{err: &service.ValidationError{Index: 2, Code: service.CodeInvalidQuantity, Message: "quantity must be greater than zero"}}
	router := setupPORouter(newMockPOStore(), svc)

	rr := doAuthRequest(t, router, "POST", poPath(1), map[string]interface{}{"supplier_name": "X"}, testSession(1, enum.UserRoleOwner))
	resp := assertError(t, rr, http.StatusBadRequest, service.CodeInvalidQuantity)
	if resp["index"] != float64(2) {
		t.Errorf("index: got %v, want 2", resp["index"])
	}
}

func TestCreatePurchaseOrder_RoleGate(t *testing.T) {
	svc := &mockPOService{}
	router := setupPORouter(newMockPOStore(), svc)

	for _, role := range []string{enum.UserRoleChef, enum.UserRoleAhliGizi} {
		rr := doAuthRequest(t, router, "POST", poPath(1), map[string]interface{}{"supplier_name": "X"}, testSession(1, role))
		assertError(t, rr, http.StatusForbidden, "FORBIDDEN")
	}
	if svc.createReq.SupplierName != "" {
		t.Error("service must not be called for forbidden roles")
	}
}

func TestUpdateStep(t *testing.T) {
	store := newMockPOStore()
	session := testSession(1, enum.UserRoleAkuntan)
	store.users[session.UserID] = database.User{ID: session.UserID, FullName: "Siti Akuntan"}
	svc := &mockPOService{}
	router := setupPORouter(store, svc)
	orderID := uuid.New()

	rr := doAuthRequest(t, router, "PATCH", poPath(1)+"/"+orderID.String()+"/steps/draft",
		map[string]string{"status": "completed", "notes": "ok"}, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	req := svc.updateReq
	if req.OrderID != orderID || req.StepID != "draft" || req.Status != "completed" || req.Actor != "Siti Akuntan" {
		t.Errorf("update request: got %+v", req)
	}
	if req.Notes == nil || *req.Notes != "ok" {
		t.Errorf("notes: got %v", req.Notes)
	}

	resp := decodeResponse(t, rr)
	summary := resp["summary"].(map[string]interface{})
	if summary["progress"] != float64(10) {
		t.Errorf("progress: got %v, want 10", summary["progress"])
	}
}

func TestUpdateStep_Errors(t *testing.T) {
	session := testSession(1, enum.UserRoleAdmin)
	path := poPath(1) + "/" + uuid.New().String() + "/steps/qc"

	tests := []struct {
		name   string
		err    error
		body   interface{}
		status int
		code   string
	}{
		{"missing status", nil, map[string]string{}, http.StatusBadRequest, "MISSING_STATUS"},
		{"not found", service.ErrNotFound, map[string]string{"status": "completed"}, http.StatusNotFound, "NOT_FOUND"},
		{"invalid transition", fmt.Errorf("wrap: %w", workflow.ErrInvalidTransition), map[string]string{"status": "pending"}, http.StatusConflict, "INVALID_TRANSITION"},
		{"unknown status", &service.ValidationError{Index: -1, Code: service.CodeInvalidStatus, Message: "bad status"}, map[string]string{"status": "done"}, http.StatusBadRequest, service.CodeInvalidStatus},
		{"database failure", errors.New("connection reset"), map[string]string{"status": "completed"}, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockPOStore()
			store.users[session.UserID] = database.User{ID: session.UserID, FullName: "Admin"}
			router := setupPORouter(store, &mockPOService{err: tt.err})

			rr := doAuthRequest(t, router, "PATCH", path, tt.body, session)
			resp := assertError(t, rr, tt.status, tt.code)
			if tt.status == http.StatusInternalServerError && resp["error"] != "internal server error" {
				t.Errorf("internal errors must not leak details: %v", resp["error"])
			}
		})
	}
}
