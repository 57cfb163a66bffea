// Package httpapi serves a domain.RecordStore over REST so remote editors can
// share one backing store.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"venueadmin/internal/core"
	"venueadmin/pkg/domain"
)

const maxBodyBytes = 1 << 20

// Server exposes record store operations.
type Server struct {
	store    domain.RecordStore
	logger   core.Logger
	metrics  core.MetricsRecorder
	secret   []byte
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder observes every API route as http_<route>.
func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(s *Server) { s.metrics = recorder }
}

// WithJWTSecret requires HS256 bearer tokens on /api routes.
func WithJWTSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithGatherer serves the gatherer on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewRouter builds the HTTP routes for store.
func NewRouter(store domain.RecordStore, opts ...Option) *mux.Router {
	s := &Server{store: store, logger: discardLogger{}}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.observe)
	if len(s.secret) > 0 {
		api.Use(RequireBearer(s.secret, s.logger))
	}
	api.HandleFunc("/records/{id}", s.handleUpdate).Methods(http.MethodPut).Name("update_record")
	api.HandleFunc("/records/{id}", s.handleDelete).Methods(http.MethodDelete).Name("delete_record")
	api.HandleFunc("/{kind}/{parent}/records", s.handleList).Methods(http.MethodGet).Name("list_records")
	api.HandleFunc("/{kind}/{parent}/records", s.handleInsert).Methods(http.MethodPost).Name("insert_record")
	return r
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil && current.GetName() != "" {
			route = current.GetName()
		}
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.Observe(r.Context(), "http_"+route, rec.status < http.StatusInternalServerError, elapsed)
		}
		s.logger.Debug("request served", "method", r.Method, "route", route, "status", rec.status, "duration", elapsed)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind, parent, ok := s.collection(w, r)
	if !ok {
		return
	}
	recs, err := s.store.List(r.Context(), kind, parent)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if recs == nil {
		recs = []domain.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	kind, parent, ok := s.collection(w, r)
	if !ok {
		return
	}
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (rec.Kind != "" && rec.Kind != kind) || (rec.ParentID != "" && rec.ParentID != parent) {
		writeError(w, http.StatusBadRequest, "record identity does not match the collection path")
		return
	}
	rec.Kind, rec.ParentID = kind, parent
	stored, err := s.store.Insert(r.Context(), rec)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/records/"+stored.ID)
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stored, err := s.store.Update(r.Context(), id, rec)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if wantsRepresentation(r) && stored.ID != "" {
		writeJSON(w, http.StatusOK, stored)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (domain.EntityKind, string, bool) {
	vars := mux.Vars(r)
	kind, err := domain.ParseEntityKind(vars["kind"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	parent := strings.TrimSpace(vars["parent"])
	if parent == "" {
		writeError(w, http.StatusBadRequest, "parent id required")
		return "", "", false
	}
	return kind, parent, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("store call failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeRecord(r *http.Request) (domain.Record, error) {
	var rec domain.Record
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return domain.Record{}, fmt.Errorf("invalid request body: %w", err)
	}
	return rec, nil
}

func wantsRepresentation(r *http.Request) bool {
	for _, v := range r.Header.Values("Prefer") {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), "return=representation") {
				return true
			}
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
