package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/enum"
)

// MenuItemInput is one menu item as posted by the client. Fields stay raw so
// a missing field can be told apart from one with the wrong type.
type MenuItemInput struct {
	DapurID json.RawMessage `json:"dapurId"`
	Date    json.RawMessage `json:"date"`
	Session json.RawMessage `json:"session"`
	Dishes  json.RawMessage `json:"dishes"`
}

// NewMenuItem is a validated menu item ready to insert.
type NewMenuItem struct {
	DapurID int64
	Date    time.Time
	Session string
	Dishes  string // compact JSON array
}

// MenuItemPatch is a validated partial update. Nil fields are left unchanged.
type MenuItemPatch struct {
	Session *string
	Dishes  *string
}

// ValidateMenuItem checks a create payload. Fields are checked in order:
// dapurId, date, session, dishes; the first failure is returned.
func ValidateMenuItem(in MenuItemInput) (NewMenuItem, error) {
	var item NewMenuItem

	if isAbsent(in.DapurID) {
		return item, invalid(CodeMissingDapurID, "dapurId is required")
	}
	id, ok := parsePositiveInt(in.DapurID)
	if !ok {
		return item, invalid(CodeInvalidDapurID, "dapurId must be a positive integer")
	}
	item.DapurID = id

	if isAbsent(in.Date) || isEmptyString(in.Date) {
		return item, invalid(CodeMissingDate, "date is required")
	}
	var date string
	if err := json.Unmarshal(in.Date, &date); err != nil {
		return item, invalid(CodeInvalidDate, "date must be in YYYY-MM-DD format")
	}
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
	if err != nil {
		return item, invalid(CodeInvalidDate, "date must be in YYYY-MM-DD format")
	}
	item.Date = d

	session, verr := validateSession(in.Session)
	if verr != nil {
		return item, verr
	}
	item.Session = session

	dishes, verr := validateDishes(in.Dishes)
	if verr != nil {
		return item, verr
	}
	item.Dishes = dishes
	return item, nil
}

// ValidateMenuItemPatch checks the optional session and dishes of an update.
func ValidateMenuItemPatch(in MenuItemInput) (MenuItemPatch, error) {
	var patch MenuItemPatch
	if !isAbsent(in.Session) {
		s, err := validateSession(in.Session)
		if err != nil {
			return patch, err
		}
		patch.Session = &s
	}
	if !isAbsent(in.Dishes) {
		d, err := validateDishes(in.Dishes)
		if err != nil {
			return patch, err
		}
		patch.Dishes = &d
	}
	return patch, nil
}

// ValidateBatch validates every item of a bulk request before anything is
// written. The first failing item aborts the batch.
func ValidateBatch(inputs []MenuItemInput) ([]NewMenuItem, error) {
	if len(inputs) == 0 {
		return nil, invalid(CodeEmptyBatch, "at least one menu item is required")
	}
	items := make([]NewMenuItem, len(inputs))
	for i, in := range inputs {
		item, err := ValidateMenuItem(in)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return nil, verr.at(i)
			}
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

func validateSession(raw json.RawMessage) (string, *ValidationError) {
	if isAbsent(raw) || isEmptyString(raw) {
		return "", invalid(CodeMissingSession, "session is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || !enum.IsValidMealSession(s) {
		return "", invalid(CodeInvalidSession, "session must be one of pagi, siang, malam")
	}
	return s, nil
}

func validateDishes(raw json.RawMessage) (string, *ValidationError) {
	if isAbsent(raw) {
		return "", invalid(CodeMissingDishes, "dishes is required")
	}
	var dishes []json.RawMessage
	if err := json.Unmarshal(raw, &dishes); err != nil || dishes == nil {
		return "", invalid(CodeInvalidDishesFormat, "dishes must be an array")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", invalid(CodeInvalidDishesFormat, "dishes must be an array")
	}
	return buf.String(), nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func isEmptyString(raw json.RawMessage) bool {
	var s string
	return json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) == ""
}

// parsePositiveInt accepts a JSON integer or a string holding one.
func parsePositiveInt(raw json.RawMessage) (int64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// MenuStore defines the DB methods needed to write menu items.
// Satisfied by *database.Queries (and its WithTx variant).
type MenuStore interface {
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
}

// NewMenuStore creates a MenuStore from a DBTX (pool or tx).
type NewMenuStore func(db database.DBTX) MenuStore

// MenuService handles multi-row menu writes.
type MenuService struct {
	pool     TxBeginner
	newStore NewMenuStore
}

// NewMenuService creates a new MenuService.
func NewMenuService(pool TxBeginner, newStore NewMenuStore) *MenuService {
	return &MenuService{pool: pool, newStore: newStore}
}

// BulkCreate inserts already validated items in one transaction. Either every
// item is stored or none is.
func (s *MenuService) BulkCreate(ctx context.Context, items []NewMenuItem) ([]database.MenuItem, error) {
	if len(items) == 0 {
		return nil, invalid(CodeEmptyBatch, "at least one menu item is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	created := make([]database.MenuItem, 0, len(items))
	for i, item := range items {
		row, err := store.CreateMenuItem(ctx, MenuItemParams(item))
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, &ValidationError{Index: i, Code: CodeInvalidDapurID, Message: "dapur not found"}
			}
			return nil, fmt.Errorf("create menu item %d: %w", i, err)
		}
		created = append(created, row)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

// MenuItemParams converts a validated item to insert params.
func MenuItemParams(item NewMenuItem) database.CreateMenuItemParams {
	return database.CreateMenuItemParams{
		DapurID: item.DapurID,
		Date:    pgtype.Date{Time: item.Date, Valid: true},
		Session: item.Session,
		Dishes:  item.Dishes,
	}
}

// IsForeignKeyViolation reports whether err is a 23503 from Postgres.
func IsForeignKeyViolation(err error) bool {
	return isForeignKeyViolation(err)
}
