package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mbg-dapur/api/internal/config"
	"github.com/mbg-dapur/api/internal/database"
	"github.com/mbg-dapur/api/internal/enum"
	"github.com/mbg-dapur/api/internal/handler"
	mw "github.com/mbg-dapur/api/internal/middleware"
	"github.com/mbg-dapur/api/internal/service"
	"github.com/mbg-dapur/api/internal/workflow"
	"github.com/mbg-dapur/api/internal/ws"
	"go.uber.org/zap"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, dapur scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, log *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/dapurs/{dapurId}/workflows", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	policy := workflow.ProgressCompletedOnly
	if cfg.WorkflowCountSkipped {
		policy = workflow.ProgressCountsSkipped
	}

	menuService := service.NewMenuService(pool, func(db database.DBTX) service.MenuStore {
		return database.New(db)
	})
	purchaseService := service.NewPurchaseService(pool, func(db database.DBTX) service.PurchaseStore {
		return database.New(db)
	}, hub, policy)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/dapurs", func(r chi.Router) {
			// Owner-only kitchen management
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner))
				dapurHandler := handler.NewDapurHandler(queries)
				dapurHandler.RegisterRoutes(r)
			})

			// Dapur-scoped routes
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireDapur)

				userHandler := handler.NewUserHandler(queries)
				r.With(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleAdmin)).
					Route("/{dapurId}/users", userHandler.RegisterRoutes)

				poHandler := handler.NewPurchaseOrderHandler(queries, purchaseService)
				r.Route("/{dapurId}/purchase-orders", poHandler.RegisterRoutes)
			})
		})

		// Menu planning (dapur scoping is per item, checked in the handler)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleAdmin, enum.UserRoleAhliGizi, enum.UserRoleChef))
			menuHandler := handler.NewMenuItemHandler(queries, menuService)
			r.Route("/menu-items", menuHandler.RegisterRoutes)
		})
	})

	log.Info("router initialized")
	return r
}
