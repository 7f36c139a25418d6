// Package chi exposes the pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/filter"
	"github.com/kailas-cloud/segmatch/internal/domain/intent"
	domusage "github.com/kailas-cloud/segmatch/internal/domain/usage"
	"github.com/kailas-cloud/segmatch/internal/logger"
	healthuc "github.com/kailas-cloud/segmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeSegmentNotFound  = "segment_not_found"
	CodeUnauthorized     = "unauthorized"
	CodeCacheUnavailable = "cache_unavailable"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the POST /api/v1/search body.
type SearchRequest struct {
	Query   string        `json:"query"`
	Filters *filter.Set   `json:"filters,omitempty"`
	History []intent.Turn `json:"history,omitempty"`
}

// PurgeResponse is the POST /api/v1/admin/cache/purge body.
type PurgeResponse struct {
	Purged int `json:"purged"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	usage         UsageReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. usage and health can be nil.
func NewServer(search Searcher, usage UsageReporter, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		usage:  usage,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrSegmentNotFound, http.StatusNotFound, CodeSegmentNotFound),
		sentinelHandler(domain.ErrCacheUnavailable, http.StatusServiceUnavailable, CodeCacheUnavailable),
	}
	return s
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	in := searchuc.Request{Query: req.Query, History: req.History}
	if req.Filters != nil {
		in.Filters = *req.Filters
	}

	set, err := s.search.Search(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// GetSegment handles GET /api/v1/segments/{id}.
func (s *Server) GetSegment(w http.ResponseWriter, r *http.Request) {
	card, err := s.search.GetSegmentDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// PurgeCache handles POST /api/v1/admin/cache/purge.
func (s *Server) PurgeCache(w http.ResponseWriter, r *http.Request) {
	n, err := s.search.PurgeCache(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PurgeResponse{Purged: n})
}

// GetUsage handles GET /api/v1/usage?period=day|month|total.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if s.usage == nil {
		writeJSON(w, http.StatusOK, domusage.Report{Period: period})
		return
	}
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context(), period))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}})
		return
	}

	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-safe message without exposing internals.
func safeDomainMessage(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	for _, s := range []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidFilter,
		domain.ErrSegmentNotFound,
		domain.ErrCacheUnavailable,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
