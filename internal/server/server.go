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
	"go.uber.org/zap"

	"github.com/kartoza/boston-price/internal/api"
	"github.com/kartoza/boston-price/internal/config"
	"github.com/kartoza/boston-price/internal/contract"
	"github.com/kartoza/boston-price/internal/form"
	"github.com/kartoza/boston-price/internal/httputil"
)

//go:embed static/*
var staticFS embed.FS

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	sessions   *form.Store
	predictor  api.Predictor
	logger     *zap.Logger
}

// New creates a new Server with all components initialized
func New(cfg config.Config, predictor api.Predictor, logger *zap.Logger) (*Server, error) {
	if predictor == nil {
		return nil, fmt.Errorf("server: predictor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		router:    mux.NewRouter(),
		sessions:  form.NewStore(cfg.Session.TTL),
		predictor: predictor,
		logger:    logger,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() error {
	// Recovery runs inside RequestLogger so a panic is logged with its request id
	s.router.Use(httputil.RequestLogger(s.logger), httputil.Recovery(s.logger))

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.sessions, s.predictor, s.cfg, s.logger)
	apiHandler.RegisterRoutes(apiRouter)

	// Contract of the prediction service, for reference from the UI
	s.router.HandleFunc("/openapi.yaml", handleContract).Methods("GET")

	// Static frontend files (embedded)
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("server: load embedded static files: %w", err)
	}

	// SPA fallback: serve index.html for any non-API route
	fileServer := http.FileServer(http.FS(staticContent))
	s.router.PathPrefix("/").Handler(spaHandler{staticContent: staticContent, fileServer: fileServer})
	return nil
}

func handleContract(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(contract.Document())
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: a prediction may take as long as the service needs
		IdleTimeout: 120 * time.Second,
	}

	s.logger.Info("server listening", zap.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)))
	return s.httpServer.ListenAndServe()
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

// spaHandler serves the SPA, falling back to index.html for client-side routing
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
		// File not found, serve index.html for SPA routing
		r.URL.Path = "/"
	}

	h.fileServer.ServeHTTP(w, r)
}
