package router

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mercurio-pos/api/internal/config"
	"github.com/mercurio-pos/api/internal/enum"
	"github.com/mercurio-pos/api/internal/handler"
	mw "github.com/mercurio-pos/api/internal/middleware"
	"github.com/mercurio-pos/api/internal/report"
	"github.com/mercurio-pos/api/internal/service"
	"github.com/mercurio-pos/api/internal/store"
	"github.com/mercurio-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, st store.Store, hub *ws.Hub, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // register dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(st, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/sales", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Catalog
		productHandler := handler.NewProductHandler(st)
		r.Route("/products", productHandler.RegisterRoutes)

		// Customers
		customerHandler := handler.NewCustomerHandler(st)
		r.Route("/customers", customerHandler.RegisterRoutes)

		// Checkout
		saleService := service.NewSaleService(st, hub, nil)
		saleHandler := handler.NewSaleHandler(saleService)
		r.Route("/sales", saleHandler.RegisterRoutes)

		// Reports (admin only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			runner := report.NewRunner(st, loc, nil)
			reportHandler := handler.NewReportHandler(runner)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
