// Package server provides the HTTP API for the invoice checker.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thelabelsunday/invoice-checker/constants"
	"github.com/thelabelsunday/invoice-checker/internal/catalog"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/history"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
)

// Pipeline runs extraction and validation for one document.
type Pipeline interface {
	Check(ctx context.Context, raw extract.RawDocument, t constants.InvoiceType, lang constants.Language) (verdict.Verdict, error)
}

// Renderer turns a page URL into PDF bytes when a direct download is not one.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (extract.RawDocument, error)
}

// Server is the HTTP server for the invoice checker API.
type Server struct {
	pipeline Pipeline
	renderer Renderer
	catalog  *catalog.Catalog
	history  *history.Store // may be nil
	download *http.Client
	logger   *slog.Logger
	server   *http.Server
	addr     string
}

// NewServer creates a server with the given dependencies. history may be nil
// when persistence is disabled.
func NewServer(pipeline Pipeline, renderer Renderer, cat *catalog.Catalog, hist *history.Store, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipeline: pipeline,
		renderer: renderer,
		catalog:  cat,
		history:  hist,
		download: &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		addr:     addr,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(180 * time.Second))

	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/api/requirements", s.handleRequirements)
	r.Get("/api/history", s.handleHistoryList)
	r.Get("/api/history/export", s.handleHistoryExport)
	r.Get("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: r,
	}
	s.logger.Info("server.start", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
