package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/blockdex/internal/models"
	"github.com/hyperjump/blockdex/internal/storage"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProjectRequest(w, r)
	if !ok {
		return
	}
	s.logger.Debug("create project request", zap.String("project", req.ProjectName))
	if err := s.index.Create(r.Context(), req.ProjectName); err != nil {
		s.fail(w, req.ProjectName, "create project failed", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleProjectInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := s.index.Info(r.Context(), name)
	if err != nil {
		s.fail(w, name, "project info failed", err)
		return
	}
	if info == nil {
		s.respondError(w, http.StatusNotFound, notFoundMessage(name))
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.logger.Debug("delete project request", zap.String("project", name))
	if err := s.index.Delete(r.Context(), name); err != nil {
		s.fail(w, name, "delete project failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Deleted project %s", name)})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProjectRequest(w, r)
	if !ok {
		return
	}
	if req.ProjectPath == "" {
		s.respondError(w, http.StatusBadRequest, "project_path is required")
		return
	}
	s.logger.Debug("generate request", zap.String("project", req.ProjectName), zap.String("path", req.ProjectPath))
	res, err := s.index.IndexDirectory(r.Context(), req.ProjectName, req.ProjectPath)
	if err != nil {
		s.fail(w, req.ProjectName, "generate failed", err)
		return
	}
	s.logger.Info("embeddings generated",
		zap.String("project", res.Project),
		zap.String("ingest_id", res.IngestID),
		zap.Int("blocks", res.Blocks),
	)
	s.respondJSON(w, http.StatusOK, models.GenerateResponse{
		ProjectName: req.ProjectName,
		ProjectPath: req.ProjectPath,
		Message:     fmt.Sprintf("Generated embeddings for %s", req.ProjectName),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	query, ok := s.readText(w, r)
	if !ok {
		return
	}
	res, err := s.index.FindSimilar(r.Context(), name, query, s.config.Search.K)
	if err != nil {
		s.fail(w, name, "similarity search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetBlocks(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	blocks, err := s.index.AllFunctionBlocks(r.Context(), name)
	if err != nil {
		s.fail(w, name, "get blocks failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleSearchBlocks(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	needle, ok := s.readText(w, r)
	if !ok {
		return
	}
	blocks, err := s.index.FindByText(r.Context(), name, needle)
	if err != nil {
		s.fail(w, name, "text search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleSearchByFunction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	fn, ok := s.readText(w, r)
	if !ok {
		return
	}
	blocks, err := s.index.FindByFunctionName(r.Context(), name, fn)
	if err != nil {
		s.fail(w, name, "function search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	names, err := s.index.ListProjects(r.Context())
	if err != nil {
		s.fail(w, "", "list projects failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"projects": names})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	names, err := s.index.ListProjects(r.Context())
	if err != nil {
		s.fail(w, "", "status: list projects failed", err)
		return
	}
	resp := map[string]interface{}{
		"projects": len(names),
		"config": map[string]interface{}{
			"storage_backend":      s.config.Storage.Backend,
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"index_type":           s.config.Search.IndexType,
			"k":                    s.config.Search.K,
		},
		"embedding_provider": s.index.EmbeddingProvider(),
	}
	if s.store != nil {
		if n, err := storage.Usage(s.store); err == nil {
			resp["disk_usage_bytes"] = n
		} else {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeProjectRequest(w http.ResponseWriter, r *http.Request) (*models.ProjectRequest, bool) {
	var req models.ProjectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

// readText returns the raw request body as a string.
func (s *Server) readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	return string(body), true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidProjectName):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmptyIndex):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrEmbeddingFailure):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrStorageFailure):
		return http.StatusInternalServerError
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func notFoundMessage(name string) string {
	return fmt.Sprintf("Project %s not found", name)
}

// fail logs err and writes the mapped status with a {"message"} body.
func (s *Server) fail(w http.ResponseWriter, project, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.String("project", project), zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.String("project", project), zap.Error(err))
	}
	message := err.Error()
	if status == http.StatusNotFound {
		message = notFoundMessage(project)
	}
	s.respondError(w, status, message)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"message": message})
}
