// Package httpapi implements the HTTP/WebSocket surface (C11): project
// and scan CRUD, asynchronous scan triggering, progress streaming, and
// Prometheus scraping. Routed with go-chi/chi, the router the
// jordigilh-kubernaut example pack depends on for its gateway service.
package httpapi

import (
	"net/http"
	"time"

	"github.com/codenerd-labs/auditor/internal/logging"
	"github.com/codenerd-labs/auditor/internal/orchestrator"
	"github.com/codenerd-labs/auditor/internal/progress"
	"github.com/codenerd-labs/auditor/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server bundles the dependencies every handler needs.
type Server struct {
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	broadcaster  *progress.Broadcaster
	validate     *validator.Validate
	router       chi.Router
}

// NewServer builds the routed Server. Call Router() to get the handler
// to pass to http.Server or httptest.
func NewServer(st *store.Store, orch *orchestrator.Orchestrator, bc *progress.Broadcaster) *Server {
	s := &Server{
		store:        st,
		orchestrator: orch,
		broadcaster:  bc,
		validate:     validator.New(),
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the http.Handler serving every registered route.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(orchestrator.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handleCreateProject)
			r.Get("/", s.handleListProjects)
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Patch("/", s.handleUpdateProject)
				r.Delete("/", s.handleDeleteProject)
				r.Get("/trends", s.handleGetTrends)
				r.Get("/srs", s.handleGetSRS)
				r.Put("/srs", s.handlePutSRS)
				r.Get("/scans", s.handleListScans)
			})
		})

		r.Post("/scans", s.handleStartScan)
		r.Route("/scans/{scanID}", func(r chi.Router) {
			r.Get("/", s.handleGetScan)
			r.Get("/progress", s.handleProgress)
			r.Get("/report", s.handleGetReport)
			r.Get("/violations", s.handleGetViolations)
		})
	})

	return r
}

// requestLogger is a chi middleware logging each request's method, path,
// status, and duration through the zap-backed category logger, mirroring
// the teacher's structured per-operation logging idiom.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.HTTP().Infow("request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
