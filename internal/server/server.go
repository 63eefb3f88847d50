// Package server exposes the processing pipeline and the distribution
// allocator over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/distribution"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
	"github.com/SafeerAbbas624/lead-management-system/internal/session"
)

// Server holds the HTTP surface's collaborators.
type Server struct {
	store     lead.Store
	pipeline  *session.Pipeline
	allocator *distribution.Allocator

	maxUploadBytes int64
	allowedOrigins []string
}

// New creates a Server. allowedOrigins defaults to "*" when empty.
func New(store lead.Store, pipeline *session.Pipeline, allocator *distribution.Allocator, maxUploadBytes int64, allowedOrigins []string) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{
		store:          store,
		pipeline:       pipeline,
		allocator:      allocator,
		maxUploadBytes: maxUploadBytes,
		allowedOrigins: allowedOrigins,
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/upload", func(r chi.Router) {
		r.Post("/start", s.handleUploadStart)
		r.Post("/step", s.handleUploadStep)
		r.Post("/supplier", s.handleSetSupplier)
		r.Get("/session/{id}", s.handleGetSession)
		r.Delete("/session/{id}", s.handleDeleteSession)
	})

	r.Route("/api/distribution", func(r chi.Router) {
		r.Get("/batches", s.handleListBatches)
		r.Get("/clients", s.handleListClients)
		r.Get("/history", s.handleDistributionHistory)
		r.Post("/check-client-history", s.handleCheckClientHistory)
		r.Post("/distribute", s.handleDistribute)
		r.Get("/export-csv/{id}", s.handleExportCSV)
	})

	r.Post("/api/dnc/upload", s.handleDNCUpload)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.S().Infow("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
