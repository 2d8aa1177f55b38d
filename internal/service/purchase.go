package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/enum"
	"github.com/mbg-dapur/api/internal/workflow"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxPONumberRetries = 3
	poNumberConstraint = "purchase_orders_dapur_id_po_number_key"
)

// Event types published after a purchase order changes.
const (
	EventPOCreated         = "po_created"
	EventPOWorkflowUpdated = "po_workflow_updated"
)

// PurchaseStore defines the DB methods needed to create and advance
// purchase orders. Satisfied by *database.Queries (and its WithTx variant).
type PurchaseStore interface {
	GetNextPONumber(ctx context.Context, arg database.GetNextPONumberParams) (int32, error)
	CreatePurchaseOrder(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error)
	CreatePurchaseOrderItem(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error)
	CreatePOWorkflowStep(ctx context.Context, arg database.CreatePOWorkflowStepParams) (database.PoWorkflowStep, error)
	GetPurchaseOrderForUpdate(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error)
	ListPOWorkflowSteps(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PoWorkflowStep, error)
	UpdatePOWorkflowStep(ctx context.Context, arg database.UpdatePOWorkflowStepParams) (database.PoWorkflowStep, error)
	UpdatePurchaseOrderStatus(ctx context.Context, arg database.UpdatePurchaseOrderStatusParams) (database.PurchaseOrder, error)
}

// NewPurchaseStore creates a PurchaseStore from a DBTX (pool or tx).
type NewPurchaseStore func(db database.DBTX) PurchaseStore

// Notifier fans purchase-order events out to a dapur's dashboards.
type Notifier interface {
	Publish(dapurID int64, eventType string, payload interface{}) error
}

// CreatePurchaseOrderRequest is the input for creating a purchase order.
type CreatePurchaseOrderRequest struct {
	DapurID      int64
	CreatedBy    uuid.UUID
	SupplierName string
	Notes        string
	Items        []PurchaseItemRequest
}

// PurchaseItemRequest is one line of a purchase order. Quantity and
// UnitPrice are decimal strings.
type PurchaseItemRequest struct {
	Name      string
	Quantity  string
	Unit      string
	UnitPrice string
}

// UpdateStepRequest moves one workflow step of a purchase order.
type UpdateStepRequest struct {
	DapurID int64
	OrderID uuid.UUID
	StepID  string
	Status  string
	Notes   *string
	Actor   string
}

// PurchaseOrderResult is a purchase order with its workflow.
type PurchaseOrderResult struct {
	Order    database.PurchaseOrder
	Items    []database.PurchaseOrderItem
	Workflow *workflow.Workflow
}

// PurchaseService handles purchase-order business logic.
type PurchaseService struct {
	pool     TxBeginner
	newStore NewPurchaseStore
	notifier Notifier
	policy   workflow.ProgressPolicy
	now      func() time.Time
}

// NewPurchaseService creates a new PurchaseService. notifier may be nil.
func NewPurchaseService(pool TxBeginner, newStore NewPurchaseStore, notifier Notifier, policy workflow.ProgressPolicy) *PurchaseService {
	return &PurchaseService{
		pool:     pool,
		newStore: newStore,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
	}
}

// Policy is the progress policy used for summaries.
func (s *PurchaseService) Policy() workflow.ProgressPolicy { return s.policy }

type preparedItem struct {
	params database.CreatePurchaseOrderItemParams
}

// Create validates the request and inserts the order, its items and all
// workflow steps in one transaction. The draft step starts in_progress.
// Retries up to maxPONumberRetries times when two creates race for the same
// PO number.
func (s *PurchaseService) Create(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResult, error) {
	if strings.TrimSpace(req.SupplierName) == "" {
		return nil, invalid(CodeMissingSupplier, "supplier_name is required")
	}
	if len(req.Items) == 0 {
		return nil, invalid(CodeEmptyItems, "at least one item is required")
	}

	total := decimal.Zero
	items := make([]preparedItem, len(req.Items))
	for i, it := range req.Items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, invalid(CodeMissingItemName, "name is required").at(i)
		}
		if strings.TrimSpace(it.Unit) == "" {
			return nil, invalid(CodeMissingUnit, "unit is required").at(i)
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(it.Quantity))
		if err != nil || !qty.IsPositive() {
			return nil, invalid(CodeInvalidQuantity, "quantity must be a positive number").at(i)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(it.UnitPrice))
		if err != nil || price.IsNegative() {
			return nil, invalid(CodeInvalidUnitPrice, "unit_price must be a non-negative number").at(i)
		}

		subtotal := qty.Mul(price).Round(2)
		total = total.Add(subtotal)
		items[i] = preparedItem{params: database.CreatePurchaseOrderItemParams{
			Name:      strings.TrimSpace(it.Name),
			Quantity:  decimalToNumeric(qty, 3),
			Unit:      strings.TrimSpace(it.Unit),
			UnitPrice: decimalToNumeric(price, 2),
			Subtotal:  decimalToNumeric(subtotal, 2),
		}}
	}

	var lastErr error
	for attempt := 0; attempt < maxPONumberRetries; attempt++ {
		result, err := s.createTx(ctx, req, items, total)
		if err == nil {
			s.publish(result.Order.DapurID, EventPOCreated, result)
			return result, nil
		}
		if isUniqueViolation(err, poNumberConstraint) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *PurchaseService) createTx(ctx context.Context, req CreatePurchaseOrderRequest, items []preparedItem, total decimal.Decimal) (*PurchaseOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	now := s.now()

	prefix := "PO-" + now.In(workflow.WIB).Format("20060102") + "-"
	next, err := store.GetNextPONumber(ctx, database.GetNextPONumberParams{DapurID: req.DapurID, Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("get next po number: %w", err)
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreatePurchaseOrder(ctx, database.CreatePurchaseOrderParams{
		DapurID:      req.DapurID,
		PoNumber:     fmt.Sprintf("%s%03d", prefix, next),
		SupplierName: strings.TrimSpace(req.SupplierName),
		TotalAmount:  decimalToNumeric(total, 2),
		Notes:        notes,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}

	created := make([]database.PurchaseOrderItem, 0, len(items))
	for _, pi := range items {
		pi.params.PurchaseOrderID = order.ID
		item, err := store.CreatePurchaseOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create purchase order item: %w", err)
		}
		created = append(created, item)
	}

	wf, err := workflow.New()
	if err != nil {
		return nil, err
	}
	if err := wf.Transition(workflow.StageDraft, workflow.StatusInProgress, "", nil, now); err != nil {
		return nil, err
	}
	for pos, step := range wf.Steps {
		if _, err := store.CreatePOWorkflowStep(ctx, database.CreatePOWorkflowStepParams{
			PurchaseOrderID: order.ID,
			Position:        int16(pos),
			StepID:          string(step.ID),
			Status:          string(step.Status),
		}); err != nil {
			return nil, fmt.Errorf("create workflow step %s: %w", step.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &PurchaseOrderResult{Order: order, Items: created, Workflow: wf}, nil
}

// UpdateStep applies a status transition to one step. The order row is
// locked for the duration so concurrent updates to the same order serialize.
func (s *PurchaseService) UpdateStep(ctx context.Context, req UpdateStepRequest) (*PurchaseOrderResult, error) {
	status := workflow.Status(req.Status)
	if !status.IsValid() {
		return nil, invalid(CodeInvalidStatus, fmt.Sprintf("status %q is not one of pending, in_progress, completed, failed, skipped", req.Status))
	}
	stepID := workflow.StageID(req.StepID)
	if _, ok := workflow.Lookup(stepID); !ok {
		return nil, invalid(CodeUnknownStep, fmt.Sprintf("unknown workflow step %q", req.StepID))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetPurchaseOrderForUpdate(ctx, database.GetPurchaseOrderParams{ID: req.OrderID, DapurID: req.DapurID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock purchase order: %w", err)
	}

	rows, err := store.ListPOWorkflowSteps(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list workflow steps: %w", err)
	}
	wf := WorkflowFromRows(rows)

	if err := wf.Transition(stepID, status, req.Actor, req.Notes, s.now()); err != nil {
		if errors.Is(err, workflow.ErrUnknownStep) {
			return nil, invalid(CodeUnknownStep, fmt.Sprintf("step %q is not part of this purchase order", req.StepID))
		}
		return nil, err
	}

	step := wf.Steps[wf.Find(stepID)]
	if _, err := store.UpdatePOWorkflowStep(ctx, database.UpdatePOWorkflowStepParams{
		Status:          string(step.Status),
		CompletedAt:     timestamptz(step.CompletedAt),
		CompletedBy:     text(step.CompletedBy),
		Notes:           text(step.Notes),
		PurchaseOrderID: order.ID,
		StepID:          string(step.ID),
	}); err != nil {
		return nil, fmt.Errorf("update workflow step: %w", err)
	}

	orderStatus, completedAt := OrderStatus(wf)
	order, err = store.UpdatePurchaseOrderStatus(ctx, database.UpdatePurchaseOrderStatusParams{
		Status:      orderStatus,
		CompletedAt: timestamptz(completedAt),
		ID:          order.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("update purchase order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &PurchaseOrderResult{Order: order, Workflow: wf}
	s.publish(order.DapurID, EventPOWorkflowUpdated, result)
	return result, nil
}

// OrderStatus derives the purchase order status from its workflow: FAILED
// while any step is failed, COMPLETED once every step is done, else OPEN.
func OrderStatus(wf *workflow.Workflow) (string, *time.Time) {
	for _, s := range wf.Steps {
		if s.Status == workflow.StatusFailed {
			return enum.PurchaseOrderStatusFailed, nil
		}
	}
	if wf.IsDone() {
		return enum.PurchaseOrderStatusCompleted, wf.CompletedAt
	}
	return enum.PurchaseOrderStatusOpen, nil
}

// WorkflowEvent is the websocket payload for purchase-order events.
type WorkflowEvent struct {
	PurchaseOrderID uuid.UUID        `json:"purchase_order_id"`
	PONumber        string           `json:"po_number"`
	Status          string           `json:"status"`
	Summary         workflow.Summary `json:"summary"`
}

func (s *PurchaseService) publish(dapurID int64, eventType string, r *PurchaseOrderResult) {
	if s.notifier == nil {
		return
	}
	ev := WorkflowEvent{
		PurchaseOrderID: r.Order.ID,
		PONumber:        r.Order.PoNumber,
		Status:          r.Order.Status,
		Summary:         workflow.Summarize(r.Workflow, s.policy),
	}
	if err := s.notifier.Publish(dapurID, eventType, ev); err != nil {
		zap.L().Error("publish purchase order event",
			zap.String("type", eventType),
			zap.Stringer("purchase_order_id", r.Order.ID),
			zap.Error(err))
	}
}

// WorkflowFromRows rebuilds a workflow from its stored steps, which must be
// ordered by position. The workflow's CompletedAt is the latest step
// completion once every step is terminal.
func WorkflowFromRows(rows []database.PoWorkflowStep) *workflow.Workflow {
	wf := &workflow.Workflow{Steps: make([]workflow.Step, len(rows))}
	for i, r := range rows {
		step := workflow.Step{
			ID:     workflow.StageID(r.StepID),
			Name:   r.StepID,
			Status: workflow.Status(r.Status),
		}
		if st, ok := workflow.Lookup(step.ID); ok {
			step.Name = st.Name
			step.Description = st.Description
		}
		if r.CompletedAt.Valid {
			at := r.CompletedAt.Time
			step.CompletedAt = &at
		}
		if r.CompletedBy.Valid {
			by := r.CompletedBy.String
			step.CompletedBy = &by
		}
		if r.Notes.Valid {
			n := r.Notes.String
			step.Notes = &n
		}
		wf.Steps[i] = step
	}

	if wf.IsDone() {
		for _, s := range wf.Steps {
			if s.CompletedAt != nil && (wf.CompletedAt == nil || s.CompletedAt.After(*wf.CompletedAt)) {
				wf.CompletedAt = s.CompletedAt
			}
		}
	}
	return wf
}

// --- Helpers ---

func text(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// NumericToDecimal converts a pgtype.Numeric, treating NULL as zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal, places int32) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(places))
	return n
}
