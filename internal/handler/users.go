package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsersByDapur(ctx context.Context, dapurID int64) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	SoftDeleteUser(ctx context.Context, arg database.SoftDeleteUserParams) (uuid.UUID, error)
}

// UserHandler handles user CRUD endpoints.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user CRUD endpoints on the given Chi router.
// Expected to be mounted inside a dapur-scoped subrouter: /dapurs/{dapurId}/users
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type userDetailResponse struct {
	ID        uuid.UUID `json:"id"`
	DapurID   int64     `json:"dapur_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserDetailResponse(u database.User) userDetailResponse {
	return userDetailResponse{
		ID:        u.ID,
		DapurID:   u.DapurID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// --- Handlers ---

// List returns all active users of the given dapur.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	dapurID, ok := dapurIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_DAPUR_ID", "invalid dapur ID")
		return
	}

	users, err := h.store.ListUsersByDapur(r.Context(), dapurID)
	if err != nil {
		writeInternal(w, "list users", err)
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new user to the given dapur.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	dapurID, ok := dapurIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_DAPUR_ID", "invalid dapur ID")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "email, password, full_name, and role are required")
		return
	}
	if code, msg := validateUserFields(req.Email, req.Role); code != "" {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "password must be at least 8 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternal(w, "create user: hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		DapurID:        dapurID,
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		Role:           req.Role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, codeConflict, "email already exists")
			return
		}
		writeInternal(w, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}

// Update modifies an existing user of the given dapur.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	dapurID, ok := dapurIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_DAPUR_ID", "invalid dapur ID")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid user ID")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	if req.Email == "" || req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "email, full_name, and role are required")
		return
	}
	if code, msg := validateUserFields(req.Email, req.Role); code != "" {
		writeError(w, http.StatusBadRequest, code, msg)
		return
	}

	user, err := h.store.UpdateUser(r.Context(), database.UpdateUserParams{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		ID:       userID,
		DapurID:  dapurID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "user not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, codeConflict, "email already exists")
			return
		}
		writeInternal(w, "update user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Delete soft-deletes a user by setting is_active=false.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	dapurID, ok := dapurIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_DAPUR_ID", "invalid dapur ID")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid user ID")
		return
	}

	_, err = h.store.SoftDeleteUser(r.Context(), database.SoftDeleteUserParams{
		ID:      userID,
		DapurID: dapurID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "user not found")
			return
		}
		writeInternal(w, "delete user", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func validateUserFields(email, role string) (code, msg string) {
	if !strings.Contains(email, "@") {
		return "INVALID_EMAIL", "invalid email format"
	}
	if !enum.IsValidUserRole(role) {
		return "INVALID_ROLE", "invalid role"
	}
	return "", ""
}
