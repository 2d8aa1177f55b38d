package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mbg-dapur/api/internal/database"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx     pgx.Tx
	err    error
	begins int
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	m.begins++
	return m.tx, m.err
}

// mockMenuStore implements MenuStore.
type mockMenuStore struct {
	createFn func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	created  []database.CreateMenuItemParams
}

func (m *mockMenuStore) CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	m.created = append(m.created, arg)
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.MenuItem{
		ID:      int64(len(m.created)),
		DapurID: arg.DapurID,
		Date:    arg.Date,
		Session: arg.Session,
		Dishes:  arg.Dishes,
	}, nil
}

// mockPurchaseStore implements PurchaseStore over in-memory rows.
type mockPurchaseStore struct {
	nextNumber int32
	order      *database.PurchaseOrder
	items      []database.PurchaseOrderItem
	steps      []database.PoWorkflowStep

	createOrderErr error
	createCalls    int
	lockErr        error
}

func (m *mockPurchaseStore) GetNextPONumber(ctx context.Context, arg database.GetNextPONumberParams) (int32, error) {
	m.nextNumber++
	return m.nextNumber, nil
}

func (m *mockPurchaseStore) CreatePurchaseOrder(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error) {
	m.createCalls++
	if m.createOrderErr != nil {
		err := m.createOrderErr
		m.createOrderErr = nil
		return database.PurchaseOrder{}, err
	}
	o := database.PurchaseOrder{
		ID:           uuid.New(),
		DapurID:      arg.DapurID,
		PoNumber:     arg.PoNumber,
		SupplierName: arg.SupplierName,
		Status:       "OPEN",
		TotalAmount:  arg.TotalAmount,
		Notes:        arg.Notes,
		CreatedBy:    arg.CreatedBy,
	}
	m.order = &o
	return o, nil
}

func (m *mockPurchaseStore) CreatePurchaseOrderItem(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error) {
	item := database.PurchaseOrderItem{
		ID:              uuid.New(),
		PurchaseOrderID: arg.PurchaseOrderID,
		Name:            arg.Name,
		Quantity:        arg.Quantity,
		Unit:            arg.Unit,
		UnitPrice:       arg.UnitPrice,
		Subtotal:        arg.Subtotal,
	}
	m.items = append(m.items, item)
	return item, nil
}

func (m *mockPurchaseStore) CreatePOWorkflowStep(ctx context.Context, arg database.CreatePOWorkflowStepParams) (database.PoWorkflowStep, error) {
	step := database.PoWorkflowStep{
		PurchaseOrderID: arg.PurchaseOrderID,
		Position:        arg.Position,
		StepID:          arg.StepID,
		Status:          arg.Status,
	}
	m.steps = append(m.steps, step)
	return step, nil
}

func (m *mockPurchaseStore) GetPurchaseOrderForUpdate(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error) {
	if m.lockErr != nil {
		return database.PurchaseOrder{}, m.lockErr
	}
	if m.order == nil || m.order.ID != arg.ID || m.order.DapurID != arg.DapurID {
		return database.PurchaseOrder{}, pgx.ErrNoRows
	}
	return *m.order, nil
}

func (m *mockPurchaseStore) ListPOWorkflowSteps(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PoWorkflowStep, error) {
	return append([]database.PoWorkflowStep(nil), m.steps...), nil
}

func (m *mockPurchaseStore) UpdatePOWorkflowStep(ctx context.Context, arg database.UpdatePOWorkflowStepParams) (database.PoWorkflowStep, error) {
	for i := range m.steps {
		if m.steps[i].StepID == arg.StepID {
			m.steps[i].Status = arg.Status
			m.steps[i].CompletedAt = arg.CompletedAt
			m.steps[i].CompletedBy = arg.CompletedBy
			m.steps[i].Notes = arg.Notes
			return m.steps[i], nil
		}
	}
	return database.PoWorkflowStep{}, pgx.ErrNoRows
}

func (m *mockPurchaseStore) UpdatePurchaseOrderStatus(ctx context.Context, arg database.UpdatePurchaseOrderStatusParams) (database.PurchaseOrder, error) {
	m.order.Status = arg.Status
	m.order.CompletedAt = arg.CompletedAt
	return *m.order, nil
}

// mockNotifier records published events.
type mockNotifier struct {
	mu     sync.Mutex
	events []string
	last   interface{}
}

func (m *mockNotifier) Publish(dapurID int64, eventType string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
	m.last = payload
	return nil
}
