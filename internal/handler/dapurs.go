package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/mbg-dapur/api/internal/database"
)

// DapurStore defines the database methods needed by dapur handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DapurStore interface {
	ListDapurs(ctx context.Context) ([]database.Dapur, error)
	CreateDapur(ctx context.Context, arg database.CreateDapurParams) (database.Dapur, error)
	UpdateDapur(ctx context.Context, arg database.UpdateDapurParams) (database.Dapur, error)
	SoftDeleteDapur(ctx context.Context, id int64) (int64, error)
}

// DapurHandler handles kitchen (dapur) CRUD endpoints. Owners only.
type DapurHandler struct {
	store DapurStore
}

// NewDapurHandler creates a new DapurHandler.
func NewDapurHandler(store DapurStore) *DapurHandler {
	return &DapurHandler{store: store}
}

// RegisterRoutes registers dapur CRUD endpoints on the given Chi router.
// Expected to be mounted at /dapurs.
func (h *DapurHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type dapurRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type dapurResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address"`
	Phone     *string   `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toDapurResponse(d database.Dapur) dapurResponse {
	return dapurResponse{
		ID:        d.ID,
		Name:      d.Name,
		Address:   textPtr(d.Address),
		Phone:     textPtr(d.Phone),
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
	}
}

// --- Handlers ---

// List returns all active dapurs.
func (h *DapurHandler) List(w http.ResponseWriter, r *http.Request) {
	dapurs, err := h.store.ListDapurs(r.Context())
	if err != nil {
		writeInternal(w, "list dapurs", err)
		return
	}

	resp := make([]dapurResponse, len(dapurs))
	for i, d := range dapurs {
		resp[i] = toDapurResponse(d)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new dapur.
func (h *DapurHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dapurRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "name is required")
		return
	}

	dapur, err := h.store.CreateDapur(r.Context(), database.CreateDapurParams{
		Name:    req.Name,
		Address: optionalText(req.Address),
		Phone:   optionalText(req.Phone),
	})
	if err != nil {
		writeInternal(w, "create dapur", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDapurResponse(dapur))
}

// Update modifies an existing dapur.
func (h *DapurHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid dapur ID")
		return
	}

	var req dapurRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "name is required")
		return
	}

	dapur, err := h.store.UpdateDapur(r.Context(), database.UpdateDapurParams{
		Name:    req.Name,
		Address: optionalText(req.Address),
		Phone:   optionalText(req.Phone),
		ID:      id,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "dapur not found")
			return
		}
		writeInternal(w, "update dapur", err)
		return
	}

	writeJSON(w, http.StatusOK, toDapurResponse(dapur))
}

// Delete soft-deletes a dapur by setting is_active=false.
func (h *DapurHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid dapur ID")
		return
	}

	if _, err := h.store.SoftDeleteDapur(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "dapur not found")
			return
		}
		writeInternal(w, "delete dapur", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
