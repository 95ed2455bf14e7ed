// Package server exposes the guard's status, incidents and metrics over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/filegirl/filegirl/internal/guard"
	"github.com/filegirl/filegirl/internal/metrics"
	"github.com/filegirl/filegirl/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// StatusProvider reports the watch sessions
type StatusProvider interface {
	Status() []guard.SessionStatus
}

// IncidentLister reads the incident journal
type IncidentLister interface {
	List(filter *models.IncidentFilter) ([]*models.Incident, error)
}

// Config holds server configuration
type Config struct {
	Addr      string
	Status    StatusProvider
	Incidents IncidentLister   // optional
	Metrics   *metrics.Metrics // optional
	Logger    *zap.Logger
}

// Server wraps the HTTP server and router
type Server struct {
	cfg    Config
	router *chi.Mux
	logger *zap.Logger
}

// New returns an initialized server
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{cfg: cfg, logger: log.With(zap.String("component", "http"))}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.accessLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/sessions", s.handleSessions)
	r.Get("/api/incidents", s.handleIncidents)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	s.router = r
	return s
}

// Router returns the underlying router, useful for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		ctxTo, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(ctxTo)
	}()

	s.logger.Info("Status server listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []guard.SessionStatus
	if s.cfg.Status != nil {
		sessions = s.cfg.Status.Status()
	}
	if sessions == nil {
		sessions = []guard.SessionStatus{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Incidents == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "incident journal is disabled"})
		return
	}

	filter := &models.IncidentFilter{
		Outcome: models.Outcome(r.URL.Query().Get("outcome")),
	}
	if dir := r.URL.Query().Get("dir"); dir != "" {
		filter.Directory = filepath.Clean(dir)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	incidents, err := s.cfg.Incidents.List(filter)
	if err != nil {
		s.logger.Error("Failed to list incidents", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read incident journal"})
		return
	}
	if incidents == nil {
		incidents = []*models.Incident{}
	}
	writeJSON(w, http.StatusOK, incidents)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
