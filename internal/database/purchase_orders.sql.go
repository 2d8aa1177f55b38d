package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const purchaseOrderColumns = `id, dapur_id, po_number, supplier_name, status, total_amount, notes, created_by, created_at, updated_at, completed_at`

const createPurchaseOrder = `-- name: CreatePurchaseOrder :one
INSERT INTO purchase_orders (dapur_id, po_number, supplier_name, total_amount, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + purchaseOrderColumns

type CreatePurchaseOrderParams struct {
	DapurID      int64          `json:"dapur_id"`
	PoNumber     string         `json:"po_number"`
	SupplierName string         `json:"supplier_name"`
	TotalAmount  pgtype.Numeric `json:"total_amount"`
	Notes        pgtype.Text    `json:"notes"`
	CreatedBy    uuid.UUID      `json:"created_by"`
}

func (q *Queries) CreatePurchaseOrder(ctx context.Context, arg CreatePurchaseOrderParams) (PurchaseOrder, error) {
	row := q.db.QueryRow(ctx, createPurchaseOrder,
		arg.DapurID,
		arg.PoNumber,
		arg.SupplierName,
		arg.TotalAmount,
		arg.Notes,
		arg.CreatedBy,
	)
	return scanPurchaseOrder(row)
}

const getNextPONumber = `-- name: GetNextPONumber :one
SELECT (COALESCE(MAX(CAST(SUBSTRING(po_number FROM LENGTH($2::text) + 1) AS INTEGER)), 0) + 1)::integer
FROM purchase_orders
WHERE dapur_id = $1 AND po_number LIKE $2::text || '%'
`

type GetNextPONumberParams struct {
	DapurID int64  `json:"dapur_id"`
	Prefix  string `json:"prefix"`
}

func (q *Queries) GetNextPONumber(ctx context.Context, arg GetNextPONumberParams) (int32, error) {
	row := q.db.QueryRow(ctx, getNextPONumber, arg.DapurID, arg.Prefix)
	var next int32
	err := row.Scan(&next)
	return next, err
}

const getPurchaseOrder = `-- name: GetPurchaseOrder :one
SELECT ` + purchaseOrderColumns + ` FROM purchase_orders
WHERE id = $1 AND dapur_id = $2
`

type GetPurchaseOrderParams struct {
	ID      uuid.UUID `json:"id"`
	DapurID int64     `json:"dapur_id"`
}

func (q *Queries) GetPurchaseOrder(ctx context.Context, arg GetPurchaseOrderParams) (PurchaseOrder, error) {
	return scanPurchaseOrder(q.db.QueryRow(ctx, getPurchaseOrder, arg.ID, arg.DapurID))
}

const getPurchaseOrderForUpdate = `-- name: GetPurchaseOrderForUpdate :one
SELECT ` + purchaseOrderColumns + ` FROM purchase_orders
WHERE id = $1 AND dapur_id = $2
FOR UPDATE
`

func (q *Queries) GetPurchaseOrderForUpdate(ctx context.Context, arg GetPurchaseOrderParams) (PurchaseOrder, error) {
	return scanPurchaseOrder(q.db.QueryRow(ctx, getPurchaseOrderForUpdate, arg.ID, arg.DapurID))
}

const listPurchaseOrdersByDapur = `-- name: ListPurchaseOrdersByDapur :many
SELECT ` + purchaseOrderColumns + ` FROM purchase_orders
WHERE dapur_id = $1
ORDER BY created_at DESC
LIMIT $2
`

type ListPurchaseOrdersByDapurParams struct {
	DapurID int64 `json:"dapur_id"`
	Limit   int32 `json:"limit"`
}

func (q *Queries) ListPurchaseOrdersByDapur(ctx context.Context, arg ListPurchaseOrdersByDapurParams) ([]PurchaseOrder, error) {
	rows, err := q.db.Query(ctx, listPurchaseOrdersByDapur, arg.DapurID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PurchaseOrder{}
	for rows.Next() {
		i, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updatePurchaseOrderStatus = `-- name: UpdatePurchaseOrderStatus :one
UPDATE purchase_orders
SET status = $1, completed_at = $2, updated_at = now()
WHERE id = $3
RETURNING ` + purchaseOrderColumns

type UpdatePurchaseOrderStatusParams struct {
	Status      string             `json:"status"`
	CompletedAt pgtype.Timestamptz `json:"completed_at"`
	ID          uuid.UUID          `json:"id"`
}

func (q *Queries) UpdatePurchaseOrderStatus(ctx context.Context, arg UpdatePurchaseOrderStatusParams) (PurchaseOrder, error) {
	return scanPurchaseOrder(q.db.QueryRow(ctx, updatePurchaseOrderStatus, arg.Status, arg.CompletedAt, arg.ID))
}

func scanPurchaseOrder(row rowScanner) (PurchaseOrder, error) {
	var i PurchaseOrder
	err := row.Scan(
		&i.ID,
		&i.DapurID,
		&i.PoNumber,
		&i.SupplierName,
		&i.Status,
		&i.TotalAmount,
		&i.Notes,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CompletedAt,
	)
	return i, err
}

// --- Items ---

const createPurchaseOrderItem = `-- name: CreatePurchaseOrderItem :one
INSERT INTO purchase_order_items (purchase_order_id, name, quantity, unit, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, purchase_order_id, name, quantity, unit, unit_price, subtotal
`

type CreatePurchaseOrderItemParams struct {
	PurchaseOrderID uuid.UUID      `json:"purchase_order_id"`
	Name            string         `json:"name"`
	Quantity        pgtype.Numeric `json:"quantity"`
	Unit            string         `json:"unit"`
	UnitPrice       pgtype.Numeric `json:"unit_price"`
	Subtotal        pgtype.Numeric `json:"subtotal"`
}

func (q *Queries) CreatePurchaseOrderItem(ctx context.Context, arg CreatePurchaseOrderItemParams) (PurchaseOrderItem, error) {
	row := q.db.QueryRow(ctx, createPurchaseOrderItem,
		arg.PurchaseOrderID,
		arg.Name,
		arg.Quantity,
		arg.Unit,
		arg.UnitPrice,
		arg.Subtotal,
	)
	var i PurchaseOrderItem
	err := row.Scan(
		&i.ID,
		&i.PurchaseOrderID,
		&i.Name,
		&i.Quantity,
		&i.Unit,
		&i.UnitPrice,
		&i.Subtotal,
	)
	return i, err
}

const listPurchaseOrderItems = `-- name: ListPurchaseOrderItems :many
SELECT id, purchase_order_id, name, quantity, unit, unit_price, subtotal FROM purchase_order_items
WHERE purchase_order_id = $1
ORDER BY name
`

func (q *Queries) ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]PurchaseOrderItem, error) {
	rows, err := q.db.Query(ctx, listPurchaseOrderItems, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PurchaseOrderItem{}
	for rows.Next() {
		var i PurchaseOrderItem
		if err := rows.Scan(
			&i.ID,
			&i.PurchaseOrderID,
			&i.Name,
			&i.Quantity,
			&i.Unit,
			&i.UnitPrice,
			&i.Subtotal,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// --- Workflow steps ---

const poWorkflowStepColumns = `purchase_order_id, position, step_id, status, completed_at, completed_by, notes, updated_at`

const createPOWorkflowStep = `-- name: CreatePOWorkflowStep :one
INSERT INTO po_workflow_steps (purchase_order_id, position, step_id, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + poWorkflowStepColumns

type CreatePOWorkflowStepParams struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	Position        int16     `json:"position"`
	StepID          string    `json:"step_id"`
	Status          string    `json:"status"`
}

func (q *Queries) CreatePOWorkflowStep(ctx context.Context, arg CreatePOWorkflowStepParams) (PoWorkflowStep, error) {
	row := q.db.QueryRow(ctx, createPOWorkflowStep,
		arg.PurchaseOrderID,
		arg.Position,
		arg.StepID,
		arg.Status,
	)
	return scanPOWorkflowStep(row)
}

const listPOWorkflowSteps = `-- name: ListPOWorkflowSteps :many
SELECT ` + poWorkflowStepColumns + ` FROM po_workflow_steps
WHERE purchase_order_id = $1
ORDER BY position
`

func (q *Queries) ListPOWorkflowSteps(ctx context.Context, purchaseOrderID uuid.UUID) ([]PoWorkflowStep, error) {
	return q.queryPOWorkflowSteps(ctx, listPOWorkflowSteps, purchaseOrderID)
}

const listPOWorkflowStepsByOrders = `-- name: ListPOWorkflowStepsByOrders :many
SELECT ` + poWorkflowStepColumns + ` FROM po_workflow_steps
WHERE purchase_order_id = ANY($1::uuid[])
ORDER BY purchase_order_id, position
`

func (q *Queries) ListPOWorkflowStepsByOrders(ctx context.Context, purchaseOrderIds []uuid.UUID) ([]PoWorkflowStep, error) {
	return q.queryPOWorkflowSteps(ctx, listPOWorkflowStepsByOrders, purchaseOrderIds)
}

func (q *Queries) queryPOWorkflowSteps(ctx context.Context, query string, arg interface{}) ([]PoWorkflowStep, error) {
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PoWorkflowStep{}
	for rows.Next() {
		i, err := scanPOWorkflowStep(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updatePOWorkflowStep = `-- name: UpdatePOWorkflowStep :one
UPDATE po_workflow_steps
SET status = $1, completed_at = $2, completed_by = $3, notes = $4, updated_at = now()
WHERE purchase_order_id = $5 AND step_id = $6
RETURNING ` + poWorkflowStepColumns

type UpdatePOWorkflowStepParams struct {
	Status          string             `json:"status"`
	CompletedAt     pgtype.Timestamptz `json:"completed_at"`
	CompletedBy     pgtype.Text        `json:"completed_by"`
	Notes           pgtype.Text        `json:"notes"`
	PurchaseOrderID uuid.UUID          `json:"purchase_order_id"`
	StepID          string             `json:"step_id"`
}

func (q *Queries) UpdatePOWorkflowStep(ctx context.Context, arg UpdatePOWorkflowStepParams) (PoWorkflowStep, error) {
	row := q.db.QueryRow(ctx, updatePOWorkflowStep,
		arg.Status,
		arg.CompletedAt,
		arg.CompletedBy,
		arg.Notes,
		arg.PurchaseOrderID,
		arg.StepID,
	)
	return scanPOWorkflowStep(row)
}

func scanPOWorkflowStep(row rowScanner) (PoWorkflowStep, error) {
	var i PoWorkflowStep
	err := row.Scan(
		&i.PurchaseOrderID,
		&i.Position,
		&i.StepID,
		&i.Status,
		&i.CompletedAt,
		&i.CompletedBy,
		&i.Notes,
		&i.UpdatedAt,
	)
	return i, err
}
