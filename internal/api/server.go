// Package api provides the HTTP API server and handlers for the FileDrop application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/filedrop/filedrop-server/internal/config"
	"github.com/filedrop/filedrop-server/internal/ratelimit"
	"github.com/filedrop/filedrop-server/internal/service"
	"github.com/filedrop/filedrop-server/internal/store"
	"github.com/filedrop/filedrop-server/internal/validation"
)

// Services groups all business logic services used by the API server.
type Services struct {
	File *service.FileService
	Tag  *service.TagService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	services *Services
	router   *chi.Mux
	api      huma.API
	validate *validation.Validator
	logger   *slog.Logger

	uploadLimiter  *ratelimit.KeyedRateLimiter
	maxUploadBytes int64
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, st store.Store, services *Services, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("FileDrop API", "1.0.0")
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	// Uploads are rate limited per client IP.
	rps := float64(cfg.RateLimit.RequestsPerMinute) / 60.0
	uploadLimiter := ratelimit.New(rps, cfg.RateLimit.Burst)

	s := &Server{
		store:          st,
		services:       services,
		router:         router,
		api:            api,
		validate:       validation.New(),
		logger:         logger,
		uploadLimiter:  uploadLimiter,
		maxUploadBytes: cfg.Storage.MaxUploadBytes,
	}

	s.registerHealthRoutes()
	s.registerFileRoutes()
	s.registerTagRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.uploadLimiter.Stop()
}
