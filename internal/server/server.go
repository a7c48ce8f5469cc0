// Package server provides the HTTP API for kouho.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kouho/internal/config"
	"github.com/hyperjump/kouho/internal/matcher"
	"github.com/hyperjump/kouho/internal/models"
	"go.uber.org/zap"
)

// maxUploadBytes bounds request bodies: multipart resume uploads and JSON requests.
const maxUploadBytes = 32 << 20

// Matcher is the resume matching service behind the API.
type Matcher interface {
	Upload(ctx context.Context, in matcher.UploadInput) (*models.UploadResponse, error)
	Rank(ctx context.Context, req models.RankRequest) (*models.RankResponse, error)
	Explain(ctx context.Context, req models.ExplainRequest) (*models.ExplainResponse, error)
	Delete(ctx context.Context, filename string) (*models.DeleteResponse, error)
	Rebuild(ctx context.Context) (*models.RebuildResponse, error)
	List(ctx context.Context) (*models.ResumeList, error)
	Get(ctx context.Context, filename string) (*models.Resume, error)
	Status(ctx context.Context) (*models.Status, error)
}

// Server is the HTTP server for the kouho API.
type Server struct {
	matcher Matcher
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server

	maxBodyBytes int64
}

// NewServer creates a server. A nil logger disables logging.
func NewServer(m Matcher, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{matcher: m, config: cfg, logger: logger, maxBodyBytes: maxUploadBytes}
}

// Router returns the API routes with middleware applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/resumes", s.handleUpload)
		r.Get("/resumes", s.handleList)
		r.Get("/resumes/{filename}", s.handleGet)
		r.Delete("/resumes/{filename}", s.handleDelete)
		r.Post("/rank", s.handleRank)
		r.Post("/explain", s.handleExplain)
		r.Post("/index/rebuild", s.handleRebuild)
		r.Get("/status", s.handleStatus)
	})

	// Routes of the first release, kept for existing clients.
	r.Post("/upload-resume", s.handleLegacyUpload)
	r.Post("/rank-resumes", s.handleLegacyRank)
	r.Post("/explain-match", s.handleLegacyExplain)
	r.Delete("/delete-resume/{filename}", s.handleLegacyDelete)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
