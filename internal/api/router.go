package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"savvybot-backend/internal/config"
	"savvybot-backend/internal/handlers"
	"savvybot-backend/internal/logging"
	"savvybot-backend/internal/metrics"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	ConversationHandler *handlers.ConversationHandler
	Store               Pinger
	Metrics             *metrics.Metrics
	Logger              zerolog.Logger
	Config              *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	if deps.ConversationHandler == nil {
		panic("ConversationHandler dependency is nil in router setup")
	}

	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	// --- CORS Configuration ---
	origins := []string{"*"}
	if deps.Config != nil && len(deps.Config.AllowedOrigins) > 0 {
		origins = deps.Config.AllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.NotFound(handlers.HandleNotFound)
	r.MethodNotAllowed(handlers.HandleMethodNotAllowed)

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.Store != nil {
			if err := deps.Store.Ping(r.Context()); err != nil {
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// The web client called the API under /api; bare paths serve everything else.
	mountConversationRoutes(r, deps)
	r.Route("/api", func(r chi.Router) {
		mountConversationRoutes(r, deps)
	})

	return r
}

func mountConversationRoutes(r chi.Router, deps RouterDependencies) {
	h := deps.ConversationHandler

	r.NotFound(handlers.HandleNotFound)
	r.MethodNotAllowed(handlers.HandleMethodNotAllowed)

	// Pre-flight stays outside the auth group: browsers never send credentials on OPTIONS.
	r.Options("/conversations", handlers.HandlePreflight)
	r.Options("/conversations/{id}", handlers.HandlePreflight)
	r.Options("/conversations/{id}/messages", handlers.HandlePreflight)

	r.Group(func(r chi.Router) {
		if deps.Config != nil && deps.Config.JWTSecret != "" {
			r.Use(JwtAuthMiddleware(deps.Config.JWTSecret, logging.Component(deps.Logger, "auth")))
		}

		r.Get("/conversations", h.HandleListConversations)
		r.Post("/conversations", h.HandleCreateConversation)
		r.Delete("/conversations/{id}", h.HandleDeleteConversation)

		r.Get("/conversations/{id}/messages", h.HandleListMessages)
		r.Post("/conversations/{id}/messages", h.HandleCreateMessage)
	})
}
