// Package chi exposes the search API over HTTP with hand-written chi handlers.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	chiv5 "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/domain"
	"github.com/atticus-search/atticus/internal/version"

	collectionuc "github.com/atticus-search/atticus/internal/usecase/collection"
	healthuc "github.com/atticus-search/atticus/internal/usecase/health"
	searchuc "github.com/atticus-search/atticus/internal/usecase/search"
)

const (
	maxQueryChars = 1000
	defaultLimit  = 20
	maxLimit      = 100
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg, detail string) bool

// Server is the HTTP API server.
type Server struct {
	search        *searchuc.Service
	collections   *collectionuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	debug         bool
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. With debug enabled, error responses
// carry the underlying error text in the detail field.
func NewServer(
	search *searchuc.Service,
	collections *collectionuc.Service,
	health *healthuc.Service,
	debug bool,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:      search,
		collections: collections,
		health:      health,
		logger:      logger,
		debug:       debug,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway),
		sentinelHandler(domain.ErrMissingRepresentation, http.StatusBadGateway),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chiv5.Router) {
	r.Route("/api/v1", func(r chiv5.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/contracts/{id}", s.handleGetContract)
		r.Get("/filters", s.handleFilters)
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Post("/reindex", s.handleReindex)
	})
	r.Get("/metrics", s.Metrics)
}

// handleSearch handles POST /api/v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required", "")
		return
	}
	if utf8.RuneCountInString(req.Query) > maxQueryChars {
		s.writeError(w, http.StatusBadRequest, "query exceeds 1000 characters", "")
		return
	}

	limit := defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 1 || limit > maxLimit {
		s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 100", "")
		return
	}

	offset := 0
	if req.Offset != nil {
		offset = *req.Offset
	}
	if offset < 0 {
		s.writeError(w, http.StatusBadRequest, "offset must not be negative", "")
		return
	}

	resp, err := s.search.Search(r.Context(), searchuc.Request{
		Query:   req.Query,
		Filters: req.Filters.toSpec(),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:          req.Query,
		Total:          resp.Total,
		Results:        resultsToJSON(resp.Results),
		FiltersApplied: req.Filters,
		ProcessingTime: resp.Took.Seconds(),
	})
}

// handleGetContract handles GET /api/v1/contracts/{id}.
func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	id := chiv5.URLParam(r, "id")

	c, err := s.search.GetByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contractToJSON(&c, nil))
}

// handleFilters handles GET /api/v1/filters.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	values, err := s.search.FilterCatalog(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, filterOptionsFromCatalog(values))
}

// handleHealth handles GET /api/v1/health. An unreachable index answers 503,
// a degraded embedding provider still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:    string(report.Status),
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Checks:    checks,
	})
}

// handleStats handles GET /api/v1/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.collections.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Status:         stats.Status,
		TotalContracts: stats.Documents,
	})
}

// handleReindex handles POST /api/v1/reindex. Drops and recreates the index.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Reset(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, detail string) {
	if !s.debug {
		detail = ""
	}
	writeJSON(w, status, errorResponse{
		Error:     message,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrDocumentNotFound,
		domain.ErrIndexUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrMissingRepresentation,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg, detail string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeJSON(w, status, errorResponse{
			Error:     msg,
			Detail:    detail,
			Timestamp: time.Now().UTC(),
		})
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	detail := ""
	if s.debug {
		detail = err.Error()
	}
	for _, h := range s.errorHandlers {
		if h(w, err, msg, detail) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal error", detail)
}
