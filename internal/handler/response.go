package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mbg-dapur/api/internal/middleware"
	"github.com/mbg-dapur/api/internal/service"
	"go.uber.org/zap"
)

// Error codes shared by several handlers. Field-level validation codes live
// in the service package.
const (
	codeInvalidBody  = "INVALID_BODY"
	codeNotFound     = "NOT_FOUND"
	codeConflict     = "CONFLICT"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN_DAPUR"
	codeInternal     = "INTERNAL_ERROR"
)

type errorResponse = middleware.ErrorResponse

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	middleware.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeInternal logs err and answers with a generic 500.
func writeInternal(w http.ResponseWriter, op string, err error) {
	zap.L().Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
}

// writeValidation answers 400 with the error's code, and its batch index
// when it has one.
func writeValidation(w http.ResponseWriter, verr *service.ValidationError) {
	resp := errorResponse{Error: verr.Error(), Code: verr.Code}
	if verr.Index >= 0 {
		idx := verr.Index
		resp.Index = &idx
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// asValidation reports whether err carries a *service.ValidationError.
func asValidation(err error) (*service.ValidationError, bool) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// dapurIDParam reads {dapurId}. Routes using it sit behind
// middleware.RequireDapur, which already rejected malformed values.
func dapurIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "dapurId"), 10, 64)
	return id, err == nil && id > 0
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// numericString renders a NUMERIC column without losing precision.
func numericString(n pgtype.Numeric) string {
	return service.NumericToDecimal(n).String()
}
