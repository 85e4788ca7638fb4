// Package api exposes the HTTP interface for the extraction service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/config"
	"github.com/strykerlabs/webstryker/internal/extraction"
	"github.com/strykerlabs/webstryker/internal/export"
	"github.com/strykerlabs/webstryker/internal/logging"
	"github.com/strykerlabs/webstryker/internal/metrics"
	"github.com/strykerlabs/webstryker/internal/pipeline"
	"github.com/strykerlabs/webstryker/internal/state"
)

const maxBatchURLs = 100

// Server wires HTTP handlers to the pipeline, state registry and store.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	batches      *pipeline.BatchRunner
	states       extraction.StateRegistry
	store        extraction.CompanyStore
	counters     *state.Counters
	oplog        *logging.OperationLog
	cfg          config.Config
	logger       *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	orchestrator *pipeline.Orchestrator,
	batches *pipeline.BatchRunner,
	states extraction.StateRegistry,
	store extraction.CompanyStore,
	counters *state.Counters,
	oplog *logging.OperationLog,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		orchestrator: orchestrator,
		batches:      batches,
		states:       states,
		store:        store,
		counters:     counters,
		oplog:        oplog,
		cfg:          cfg,
		logger:       logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(5 * time.Minute))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/extractions", func(r chi.Router) {
			r.Post("/", s.startExtraction)
			r.Route("/{extraction_id}", func(r chi.Router) {
				r.Get("/state", s.getState)
				r.Post("/pause", s.pauseExtraction)
				r.Post("/resume", s.resumeExtraction)
				r.Post("/stop", s.stopExtraction)
			})
		})
		r.Post("/batches", s.startBatch)
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.getCompany)
			r.Get("/recent", s.recentCompanies)
			r.Get("/search", s.searchCompanies)
			r.Get("/export", s.exportCompanies)
		})
		r.Get("/stats", s.stats)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type extractionRequest struct {
	URL string `json:"url"`
}

type extractionResponse struct {
	ExtractionID string                    `json:"extraction_id"`
	Success      bool                      `json:"success"`
	Record       *extraction.CompanyRecord `json:"record,omitempty"`
	Error        string                    `json:"error,omitempty"`
	ErrorKind    string                    `json:"error_kind,omitempty"`
	DurationMs   int64                     `json:"duration_ms"`
}

func (s *Server) startExtraction(w http.ResponseWriter, r *http.Request) {
	var req extractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}

	id, result := s.orchestrator.Extract(r.Context(), req.URL)
	resp := extractionResponse{
		ExtractionID: id,
		Success:      result.Success,
		Record:       result.Record,
		DurationMs:   result.DurationMs,
	}
	status := http.StatusOK
	if !result.Success {
		resp.ErrorKind = extraction.ErrorKind(result.Err)
		if result.Err != nil {
			resp.Error = result.Err.Error()
		}
		var ve *extraction.ValidationError
		if errors.As(result.Err, &ve) {
			status = http.StatusBadRequest
		} else {
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, resp)
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) startBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls required")
		return
	}
	if len(req.URLs) > maxBatchURLs {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many urls (max %d)", maxBatchURLs))
		return
	}
	result := s.batches.Run(r.Context(), req.URLs)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "extraction_id")
	snapshot, ok := s.states.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "extraction not found")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) pauseExtraction(w http.ResponseWriter, r *http.Request) {
	s.controlExtraction(w, r, "paused", s.states.Pause)
}

func (s *Server) resumeExtraction(w http.ResponseWriter, r *http.Request) {
	s.controlExtraction(w, r, "resumed", s.states.Resume)
}

func (s *Server) stopExtraction(w http.ResponseWriter, r *http.Request) {
	s.controlExtraction(w, r, "stopped", s.states.Stop)
}

func (s *Server) controlExtraction(w http.ResponseWriter, r *http.Request, action string, apply func(string)) {
	id := chi.URLParam(r, "extraction_id")
	if _, ok := s.states.Get(id); !ok {
		writeError(w, http.StatusNotFound, "extraction not found")
		return
	}
	apply(id)
	writeJSON(w, http.StatusOK, map[string]string{"extraction_id": id, "status": action})
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}
	rec, err := s.store.Get(r.Context(), extraction.EnsureScheme(url))
	if err != nil {
		if errors.Is(err, extraction.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch company")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) recentCompanies(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 20)
	records, err := s.store.GetRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch companies")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": records})
}

func (s *Server) searchCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := extraction.StoreQuery{
		Name:        q.Get("name"),
		Type:        q.Get("type"),
		Status:      extraction.RecordStatus(q.Get("status")),
		HasEmail:    q.Get("has_email") == "true",
		HasProducts: q.Get("has_products") == "true",
		Limit:       intQuery(r, "limit", 20),
	}
	records, err := s.store.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": records})
}

func (s *Server) exportCompanies(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.GetRecent(r.Context(), intQuery(r, "limit", 1000))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch companies")
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="companies.json"`)
		if err := export.WriteJSON(w, records); err != nil {
			s.logger.Error("json export failed", zap.Error(err))
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="companies.csv"`)
		if err := export.WriteCSV(w, records); err != nil {
			s.logger.Error("csv export failed", zap.Error(err))
		}
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or json")
	}
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	n := intQuery(r, "recent", 50)
	writeJSON(w, http.StatusOK, map[string]any{
		"counters":          s.counters.Snapshot(),
		"recent_operations": s.oplog.RecentOperations(n),
		"recent_errors":     s.oplog.RecentErrors(n),
	})
}

func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
