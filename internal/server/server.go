package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/kartoza/moment-rotation/internal/api"
	"github.com/kartoza/moment-rotation/internal/config"
	"github.com/kartoza/moment-rotation/internal/httputil"
)

//go:embed static/*
var staticFS embed.FS

// Server serves the window's page and its API
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	handler    *api.Handler
}

// New creates a new Server around an API handler
func New(cfg config.Config, handler *api.Handler) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		handler: handler,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Router exposes the configured routes
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() error {
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	s.handler.RegisterRoutes(apiRouter)
	apiRouter.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, http.StatusNotFound, "not found")
	})

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("load embedded static files: %w", err)
	}

	// SPA fallback: serve index.html for any non-API route
	fileServer := http.FileServer(http.FS(staticContent))
	s.router.PathPrefix("/").Handler(spaHandler{staticContent: staticContent, fileServer: fileServer})
	return nil
}

// Start begins listening for HTTP connections on localhost
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Msgf("Server listening on http://localhost:%d", s.cfg.Port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// spaHandler serves the page, falling back to index.html for unknown paths
type spaHandler struct {
	staticContent fs.FS
	fileServer    http.Handler
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "index.html"
	}

	// fs.FS paths must not have a leading slash
	cleanPath := strings.TrimPrefix(path, "/")

	if _, err := fs.Stat(h.staticContent, cleanPath); err != nil {
		r.URL.Path = "/"
	}

	h.fileServer.ServeHTTP(w, r)
}
