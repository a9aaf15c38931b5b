// Package server provides the HTTP API for blockdex.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/blockdex/internal/config"
	"github.com/hyperjump/blockdex/internal/indexer"
	"github.com/hyperjump/blockdex/internal/storage"
)

// maxBodyBytes bounds request bodies, including raw query text.
const maxBodyBytes = 10 << 20

// Server is the HTTP server for the blockdex API.
type Server struct {
	index  *indexer.ProjectIndex
	store  storage.BlockStore
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server. store is only used to report disk usage.
func NewServer(index *indexer.ProjectIndex, store storage.BlockStore, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		index:  index,
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the router with all routes and middleware mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Post("/project", s.handleCreateProject)
	r.Post("/project/generate", s.handleGenerate)
	r.Get("/project/{name}", s.handleProjectInfo)
	r.Delete("/project/{name}", s.handleDeleteProject)
	r.Post("/search/{name}", s.handleSearch)
	r.Post("/get_blocks/{name}", s.handleGetBlocks)
	r.Post("/search_blocks/{name}", s.handleSearchBlocks)
	r.Post("/search_by_function/{name}", s.handleSearchByFunction)

	r.Get("/projects", s.handleListProjects)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
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

// accessLog logs one line per request once the response is written.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
