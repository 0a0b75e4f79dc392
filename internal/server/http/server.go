// Package httpserver exposes the memoriz REST API.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/memoriz/internal/auth"
	"github.com/and161185/memoriz/internal/errs"
	"github.com/and161185/memoriz/internal/logger"
	"github.com/and161185/memoriz/internal/metrics"
	"github.com/and161185/memoriz/internal/service"
)

const (
	msgInternal      = "Internal Server Error."
	msgUnimplemented = "unimplemented !"
)

// Server wires the domain service into HTTP handlers.
type Server struct {
	svc       service.MemorizService
	verifier  *auth.Verifier
	staticDir string
	log       *zap.Logger
}

// New constructs the API server. An empty staticDir disables static file serving.
func New(svc service.MemorizService, verifier *auth.Verifier, staticDir string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, verifier: verifier, staticDir: staticDir, log: log}
}

// Router builds the chi routing tree with the middleware chain applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(s.log))
	r.Use(chiMiddleware.RequestID)
	r.Use(accessLog(s.log))
	r.Use(bearerAuth(s.verifier, s.log))
	r.Use(metrics.Middleware())

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/_", s.healthcheck)
		r.Get("/version", s.versionInfo)
		r.Post("/reindex", s.reindex)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.getAllEntries)
			r.Post("/", s.createEntry)
			r.Put("/", s.updateEntry)
			r.Get("/search", s.searchEntries)
			r.Get("/by-board/{uuid}", s.getAllEntriesByBoard)
			r.Get("/by-label/{id}", unimplemented)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Get("/", s.getEntry)
				r.Delete("/", s.deleteEntry)
				r.Post("/do-archive", s.archiveEntry)
				r.Post("/undo-archive", s.undoArchiveEntry)
			})
		})

		r.Route("/boards", func(r chi.Router) {
			r.Get("/", s.getAllBoards)
			r.Post("/", s.createBoard)
			r.Put("/", s.updateBoard)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Get("/", s.getBoard)
				r.Delete("/", s.deleteBoard)
			})
		})

		r.HandleFunc("/labels", unimplemented)
		r.HandleFunc("/labels/*", unimplemented)
	})

	if s.staticDir != "" {
		r.Get("/*", staticFiles(s.staticDir))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func unimplemented(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, msgUnimplemented)
}

// handleDomainError answers every service failure with a generic 500.
// Validation failures are the caller's fault and get a 400 instead.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context()).With(zap.String("path", r.URL.Path))
	if errors.Is(err, errs.ErrValidation) {
		log.Info("rejected request", zap.Error(err))
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Error("domain error", zap.Error(err))
	writeText(w, http.StatusInternalServerError, msgInternal)
}
