package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mbg-dapur/api/internal/auth"
	"github.com/mbg-dapur/api/internal/enum"
)

type contextKey string

const sessionKey contextKey = "session"

// Session is who is making the request. It is resolved once per request
// from the bearer token and travels in the request context.
type Session struct {
	UserID  uuid.UUID
	DapurID int64
	Role    string
}

// IsOwner reports whether the session belongs to a program owner, who may
// act on every dapur.
func (s *Session) IsOwner() bool {
	return s.Role == enum.UserRoleOwner
}

// CanAccessDapur reports whether the session may act on dapurID.
func (s *Session) CanAccessDapur(dapurID int64) bool {
	return s.IsOwner() || s.DapurID == dapurID
}

// HasRole reports whether the session holds one of roles.
func (s *Session) HasRole(roles ...string) bool {
	for _, role := range roles {
		if s.Role == role {
			return true
		}
	}
	return false
}

func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization format")
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}

			session := &Session{UserID: claims.UserID, DapurID: claims.DapurID, Role: claims.Role}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireDapur rejects requests for a {dapurId} the session may not access.
func RequireDapur(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
			return
		}

		raw := r.PathValue("dapurId")
		if raw == "" {
			writeError(w, http.StatusBadRequest, "MISSING_DAPUR_ID", "missing dapur ID")
			return
		}

		dapurID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || dapurID <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_DAPUR_ID", "invalid dapur ID")
			return
		}

		if !session.CanAccessDapur(dapurID) {
			writeError(w, http.StatusForbidden, "FORBIDDEN_DAPUR", "access denied for this dapur")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
				return
			}

			if !session.HasRole(roles...) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionKey).(*Session)
	return session
}
