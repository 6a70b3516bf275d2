package api

import (
	"net/http"

	"github.com/Rrens/knowflow/internal/api/handler"
	customMiddleware "github.com/Rrens/knowflow/internal/api/middleware"
	"github.com/Rrens/knowflow/internal/config"
	"github.com/Rrens/knowflow/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the console gateway over the application stores
func NewRouter(cfg *config.Config, app *store.App) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Console.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(customMiddleware.TrustedOrigin(cfg.Console.AllowedOrigins))

	// Initialize handlers
	stateHandler := handler.NewStateHandler(app)
	authHandler := handler.NewAuthHandler(app.Auth)
	documentHandler := handler.NewDocumentHandler(app.Documents)
	sessionHandler := handler.NewSessionHandler(app.Chat)
	chatHandler := handler.NewChatHandler(app.Chat)

	authMiddleware := customMiddleware.NewAuthMiddleware(app.Auth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/state", stateHandler.Get)

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Post("/profile", authHandler.Profile)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/documents", func(r chi.Router) {
				r.Get("/", documentHandler.List)
				r.Post("/upload", documentHandler.Upload)
				r.Post("/{docID}/index", documentHandler.Index)
				r.Get("/{docID}", documentHandler.Get)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Post("/", sessionHandler.Create)
				r.Post("/{sessionID}/select", sessionHandler.Select)
				r.Put("/{sessionID}", sessionHandler.Rename)
				r.Delete("/{sessionID}", sessionHandler.Delete)
			})

			r.Post("/chat", chatHandler.Send)
			r.Put("/selection", chatHandler.SetSelection)
		})
	})

	return r
}
