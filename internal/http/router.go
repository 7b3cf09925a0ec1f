package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/stride-hq/kanban-api/internal/admin"
	"github.com/stride-hq/kanban-api/internal/auth"
	"github.com/stride-hq/kanban-api/internal/config"
	"github.com/stride-hq/kanban-api/internal/httputil"
	"github.com/stride-hq/kanban-api/internal/logging"
	"github.com/stride-hq/kanban-api/internal/task"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	authMiddleware *auth.Middleware,
	taskHandler *task.Handler,
	adminHandler *admin.Handler,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first. Cookie auth needs credentials and an exact
	// origin, never a wildcard.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.TrustedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Auth routes (public)
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)
	r.Get("/session", authHandler.Session)

	r.Route("/password_reset", func(r chi.Router) {
		r.Post("/request", authHandler.ForgotPassword)
		r.Post("/perform", authHandler.ResetPassword)
	})

	// Task routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/tasks", taskHandler.List)
		r.Post("/tasks", taskHandler.Create)
		r.Put("/tasks", taskHandler.Update)
		r.Delete("/tasks", taskHandler.Delete)
	})

	// Admin routes (require authentication and the admin flag)
	r.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Use(authMiddleware.RequireAdmin)
		r.Get("/users", adminHandler.ListUsers)
		r.Get("/users/{id}/tasks", adminHandler.ListUserTasks)
		r.Post("/toggle_admin", adminHandler.ToggleAdmin)
		r.Delete("/users/{id}", adminHandler.DeleteUser)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
