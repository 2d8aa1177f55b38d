package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrValidation is the parent of every *ValidationError.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// Machine-readable validation codes returned to API clients.
const (
	CodeMissingDapurID      = "MISSING_DAPUR_ID"
	CodeInvalidDapurID      = "INVALID_DAPUR_ID"
	CodeMissingDate         = "MISSING_DATE"
	CodeInvalidDate         = "INVALID_DATE"
	CodeMissingSession      = "MISSING_SESSION"
	CodeInvalidSession      = "INVALID_SESSION"
	CodeMissingDishes       = "MISSING_DISHES"
	CodeInvalidDishesFormat = "INVALID_DISHES_FORMAT"
	CodeEmptyBatch          = "EMPTY_BATCH"

	CodeMissingSupplier  = "MISSING_SUPPLIER"
	CodeEmptyItems       = "EMPTY_ITEMS"
	CodeMissingItemName  = "MISSING_ITEM_NAME"
	CodeMissingUnit      = "MISSING_UNIT"
	CodeInvalidQuantity  = "INVALID_QUANTITY"
	CodeInvalidUnitPrice = "INVALID_UNIT_PRICE"
	CodeInvalidStatus    = "INVALID_STATUS"
	CodeUnknownStep      = "UNKNOWN_STEP"
)

// ValidationError describes bad input. Index is the position of the
// offending element in a batch, or -1 for a single record.
type ValidationError struct {
	Index   int
	Code    string
	Message string
}

func invalid(code, msg string) *ValidationError {
	return &ValidationError{Index: -1, Code: code, Message: msg}
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("items[%d]: %s", e.Index, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// at returns a copy of e attributed to batch position i.
func (e *ValidationError) at(i int) *ValidationError {
	c := *e
	c.Index = i
	return &c
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// isUniqueViolation reports a 23505 on the given constraint.
func isUniqueViolation(err error, constraint string) bool {
	code, name := pgErrorCode(err)
	return code == "23505" && name == constraint
}

func isForeignKeyViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == "23503"
}
