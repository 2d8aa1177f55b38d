package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Dapur struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Address   pgtype.Text `json:"address"`
	Phone     pgtype.Text `json:"phone"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

type MenuItem struct {
	ID        int64       `json:"id"`
	DapurID   int64       `json:"dapur_id"`
	Date      pgtype.Date `json:"date"`
	Session   string      `json:"session"`
	Dishes    string      `json:"dishes"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type PoWorkflowStep struct {
	PurchaseOrderID uuid.UUID          `json:"purchase_order_id"`
	Position        int16              `json:"position"`
	StepID          string             `json:"step_id"`
	Status          string             `json:"status"`
	CompletedAt     pgtype.Timestamptz `json:"completed_at"`
	CompletedBy     pgtype.Text        `json:"completed_by"`
	Notes           pgtype.Text        `json:"notes"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type PurchaseOrder struct {
	ID           uuid.UUID          `json:"id"`
	DapurID      int64              `json:"dapur_id"`
	PoNumber     string             `json:"po_number"`
	SupplierName string             `json:"supplier_name"`
	Status       string             `json:"status"`
	TotalAmount  pgtype.Numeric     `json:"total_amount"`
	Notes        pgtype.Text        `json:"notes"`
	CreatedBy    uuid.UUID          `json:"created_by"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	CompletedAt  pgtype.Timestamptz `json:"completed_at"`
}

type PurchaseOrderItem struct {
	ID              uuid.UUID      `json:"id"`
	PurchaseOrderID uuid.UUID      `json:"purchase_order_id"`
	Name            string         `json:"name"`
	Quantity        pgtype.Numeric `json:"quantity"`
	Unit            string         `json:"unit"`
	UnitPrice       pgtype.Numeric `json:"unit_price"`
	Subtotal        pgtype.Numeric `json:"subtotal"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	DapurID        int64     `json:"dapur_id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
