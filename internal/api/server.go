// Package api provides the HTTP API server and handlers for the Inkshelf application.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	domainerrors "github.com/inkshelfapp/inkshelf-server/internal/errors"
	"github.com/inkshelfapp/inkshelf-server/internal/http/response"
	"github.com/inkshelfapp/inkshelf-server/internal/service"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService    *service.AuthService
	bookService    *service.BookService
	allowedOrigins []string
	router         *chi.Mux
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(authService *service.AuthService, bookService *service.BookService, allowedOrigins []string, logger *slog.Logger) *Server {
	s := &Server{
		authService:    authService,
		bookService:    bookService,
		allowedOrigins: allowedOrigins,
		router:         chi.NewRouter(),
		logger:         logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Auth endpoints (public except /me).
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleMe)
			r.Put("/profile", s.handleUpdateProfile)
		})
	})

	// Books (all protected).
	s.router.Route("/books", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/", s.handleCreateBook)
		r.Get("/", s.handleListBooks)
		r.Get("/user", s.handleListMyBooks)
		r.Delete("/{id}", s.handleDeleteBook)
	})
}

// serviceError writes a service-layer error. Typed domain errors carry
// their own status and message; anything else becomes a 500 with the
// given fallback message and the error detail.
func (s *Server) serviceError(w http.ResponseWriter, err error, fallback string) {
	var appErr *domainerrors.Error
	if errors.As(err, &appErr) {
		response.Error(w, appErr.HTTPStatus(), appErr.Message, s.logger)
		return
	}

	if s.logger != nil {
		s.logger.Error("request failed", "error", err)
	}
	response.ErrorWithDetail(w, http.StatusInternalServerError, fallback, err.Error(), s.logger)
}

// handleHealthCheck reports liveness.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{"status": "healthy"}, s.logger)
}
