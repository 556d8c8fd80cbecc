// Package web provides the HTTP server and JSON API for the customer
// management backend.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dvmchung/crm-backend/internal/config"
	"github.com/dvmchung/crm-backend/internal/customer"
	"github.com/dvmchung/crm-backend/internal/media"
)

// Server is the HTTP server for the customer API.
type Server struct {
	service  *customer.Service
	uploader media.Uploader
	cfg      config.ServerConfig
	imports  config.ImportConfig
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server wired to the given service. uploader may
// be nil, which disables the avatar endpoint.
func NewServer(service *customer.Service, uploader media.Uploader, cfg config.ServerConfig, imports config.ImportConfig) *Server {
	s := &Server{
		service:  service,
		uploader: uploader,
		cfg:      cfg,
		imports:  imports,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1/customers", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/paging", s.handlePaging)
		r.Get("/new-code", s.handleNewCode)
		r.Get("/export", s.handleExport)
		r.Get("/{id}", s.handleGet)

		r.Post("/", s.handleCreate)
		r.Post("/with-avatar", s.handleCreateWithAvatar)
		r.Post("/import", s.handleImport)

		r.Put("/{id}", s.handleUpdate)
		r.Put("/{id}/with-avatar", s.handleUpdateWithAvatar)

		r.Delete("/{id}", s.handleDelete)
		r.Delete("/", s.handleDeleteMany)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}
