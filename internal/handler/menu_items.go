package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/middleware"
	"github.com/mbg-dapur/api/internal/service"
)

const (
	defaultMenuLimit = 50
	maxMenuLimit     = 500
)

// MenuItemStore defines the database methods needed by menu item handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuItemStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) (database.MenuItem, error)
}

// MenuBulkCreator inserts a validated batch atomically.
// Satisfied by *service.MenuService.
type MenuBulkCreator interface {
	BulkCreate(ctx context.Context, items []service.NewMenuItem) ([]database.MenuItem, error)
}

// MenuItemHandler handles the menu planning endpoints.
type MenuItemHandler struct {
	store MenuItemStore
	bulk  MenuBulkCreator
}

// NewMenuItemHandler creates a new MenuItemHandler.
func NewMenuItemHandler(store MenuItemStore, bulk MenuBulkCreator) *MenuItemHandler {
	return &MenuItemHandler{store: store, bulk: bulk}
}

// RegisterRoutes registers menu item endpoints on the given Chi router.
// Expected to be mounted at /menu-items. Records are addressed by the
// ?id= query parameter.
func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/", h.Update)
	r.Delete("/", h.Delete)
	r.Post("/bulk-create", h.BulkCreate)
}

// --- Response types ---

type menuItemResponse struct {
	ID        int64           `json:"id"`
	DapurID   int64           `json:"dapurId"`
	Date      string          `json:"date"`
	Session   string          `json:"session"`
	Dishes    json.RawMessage `json:"dishes"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:        m.ID,
		DapurID:   m.DapurID,
		Session:   m.Session,
		Dishes:    json.RawMessage("[]"),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Date.Valid {
		resp.Date = m.Date.Time.Format(time.DateOnly)
	}
	if json.Valid([]byte(m.Dishes)) {
		resp.Dishes = json.RawMessage(m.Dishes)
	}
	return resp
}

func toMenuItemResponses(items []database.MenuItem) []menuItemResponse {
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	return resp
}

// --- Handlers ---

// List returns menu items, newest date first. ?dapurId filters by kitchen;
// non-owners only ever see their own kitchen.
func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}
	q := r.URL.Query()

	filter := pgtype.Int8{}
	if raw := q.Get("dapurId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, service.CodeInvalidDapurID, "dapurId must be a positive integer")
			return
		}
		if !session.CanAccessDapur(id) {
			writeError(w, http.StatusForbidden, codeForbidden, "access denied for this dapur")
			return
		}
		filter = pgtype.Int8{Int64: id, Valid: true}
	} else if !session.IsOwner() {
		filter = pgtype.Int8{Int64: session.DapurID, Valid: true}
	}

	limit := defaultMenuLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = min(n, maxMenuLimit)
	}

	items, err := h.store.ListMenuItems(r.Context(), database.ListMenuItemsParams{
		DapurID: filter,
		Limit:   int32(limit),
	})
	if err != nil {
		writeInternal(w, "list menu items", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponses(items))
}

// Create adds one menu item.
func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.MenuItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	item, err := service.ValidateMenuItem(in)
	if err != nil {
		h.writeServiceError(w, "create menu item", err)
		return
	}

	if !canAccess(r, item.DapurID) {
		writeError(w, http.StatusForbidden, codeForbidden, "access denied for this dapur")
		return
	}

	created, err := h.store.CreateMenuItem(r.Context(), service.MenuItemParams(item))
	if err != nil {
		if service.IsForeignKeyViolation(err) {
			writeError(w, http.StatusBadRequest, service.CodeInvalidDapurID, "dapur not found")
			return
		}
		writeInternal(w, "create menu item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(created))
}

// Update changes the session and/or dishes of ?id=.
func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := menuItemID(w, r)
	if !ok {
		return
	}

	var in service.MenuItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	patch, err := service.ValidateMenuItemPatch(in)
	if err != nil {
		h.writeServiceError(w, "update menu item", err)
		return
	}

	if !h.authorizeItem(w, r, id) {
		return
	}

	params := database.UpdateMenuItemParams{ID: id}
	if patch.Session != nil {
		params.Session = pgtype.Text{String: *patch.Session, Valid: true}
	}
	if patch.Dishes != nil {
		params.Dishes = pgtype.Text{String: *patch.Dishes, Valid: true}
	}

	updated, err := h.store.UpdateMenuItem(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "menu item not found")
			return
		}
		writeInternal(w, "update menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(updated))
}

// Delete removes ?id= and returns the deleted record.
func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := menuItemID(w, r)
	if !ok {
		return
	}

	if !h.authorizeItem(w, r, id) {
		return
	}

	deleted, err := h.store.DeleteMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "menu item not found")
			return
		}
		writeInternal(w, "delete menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(deleted))
}

// BulkCreate inserts an array of menu items. Every item is validated before
// anything is written; the first bad item rejects the whole batch.
func (h *MenuItemHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var inputs []service.MenuItemInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "request body must be an array of menu items")
		return
	}

	items, err := service.ValidateBatch(inputs)
	if err != nil {
		h.writeServiceError(w, "bulk create menu items", err)
		return
	}

	for i, item := range items {
		if !canAccess(r, item.DapurID) {
			idx := i
			writeJSON(w, http.StatusForbidden, errorResponse{
				Error: fmt.Sprintf("items[%d]: access denied for this dapur", i),
				Code:  codeForbidden,
				Index: &idx,
			})
			return
		}
	}

	created, err := h.bulk.BulkCreate(r.Context(), items)
	if err != nil {
		h.writeServiceError(w, "bulk create menu items", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponses(created))
}

// --- Helpers ---

func (h *MenuItemHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	if verr, ok := asValidation(err); ok {
		writeValidation(w, verr)
		return
	}
	writeInternal(w, op, err)
}

// authorizeItem loads the item to check it belongs to a dapur the caller may
// touch. It writes the response and returns false when the caller may not
// proceed.
func (h *MenuItemHandler) authorizeItem(w http.ResponseWriter, r *http.Request, id int64) bool {
	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "menu item not found")
			return false
		}
		writeInternal(w, "get menu item", err)
		return false
	}
	if !canAccess(r, item.DapurID) {
		writeError(w, http.StatusForbidden, codeForbidden, "access denied for this dapur")
		return false
	}
	return true
}

func menuItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "id is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func canAccess(r *http.Request, dapurID int64) bool {
	session := middleware.SessionFromContext(r.Context())
	return session != nil && session.CanAccessDapur(dapurID)
}
