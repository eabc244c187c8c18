package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/catalog"
	"github.com/ha1tch/ecotour/pkg/config"
	"github.com/ha1tch/ecotour/pkg/events"
	"github.com/ha1tch/ecotour/pkg/journal"
	"github.com/ha1tch/ecotour/pkg/metrics"
	"github.com/ha1tch/ecotour/pkg/models"
	"github.com/ha1tch/ecotour/pkg/mutation"
	"github.com/ha1tch/ecotour/pkg/nlquery"
	"github.com/ha1tch/ecotour/pkg/storage"
)

// Components are the collaborators the handlers delegate to. Journal, Hub
// and Metrics may be nil.
type Components struct {
	Store    *storage.Store
	Executor storage.Executor
	Catalog  *catalog.Catalog
	Pipeline *nlquery.Pipeline
	Applier  *mutation.Applier
	Journal  journal.Journal
	Hub      *events.Hub
	Metrics  *metrics.Metrics
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	store      *storage.Store
	executor   storage.Executor
	catalog    *catalog.Catalog
	pipeline   *nlquery.Pipeline
	applier    *mutation.Applier
	journal    journal.Journal
	hub        *events.Hub
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	router     *chi.Mux
	httpServer *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, c Components, logger zerolog.Logger) *Server {
	s := &Server{
		config:   cfg,
		store:    c.Store,
		executor: c.Executor,
		catalog:  c.Catalog,
		pipeline: c.Pipeline,
		applier:  c.Applier,
		journal:  c.Journal,
		hub:      c.Hub,
		metrics:  c.Metrics,
		logger:   logger,
		router:   chi.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// long-lived connections stay outside the request timeout
	s.router.Handle("/metrics", s.metrics.Handler())
	if s.hub != nil {
		s.router.Handle("/api/events", s.hub)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout()))

		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)

		r.Route("/api", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Get("/ontology/stats", s.handleStats)
			r.Get("/journal", s.handleJournal)

			r.Post("/query", s.handleQuery)
			r.Post("/nl-query", s.handleNLQuery)

			r.Post("/entity/create", s.handleEntityCreate)
			r.Put("/entity/update", s.handleEntityUpdate)
			r.Delete("/entity/delete", s.handleEntityDelete)

			r.Post("/admin/reload", s.handleReload)

			// per-class listings: /api/destinations, /api/hebergements, ...
			r.Get("/{endpoint}", s.handleCatalog)
		})
	})
}

// requestTimeout leaves room for one oracle call
func (s *Server) requestTimeout() time.Duration {
	timeout := 60 * time.Second
	if s.config != nil && s.config.OracleTimeout+30*time.Second > timeout {
		timeout = s.config.OracleTimeout + 30*time.Second
	}
	return timeout
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Str("executor", s.executor.Name()).Msg("Starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the HTTP handler (useful for testing)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Helper methods

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, models.Failure{Success: false, Error: message})
}

// writeFailure renders a classified error. aiAvailable is reported on
// natural language failures only.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error, aiAvailable *bool) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	event := s.logger.Debug()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("kind", kind.String()).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("Request failed")

	message := err.Error()
	if kind == apperr.Internal {
		message = "Erreur interne du serveur"
	}
	s.writeJSON(w, status, models.Failure{
		Success:     false,
		Error:       message,
		Suggestion:  apperr.SuggestionOf(err),
		AIAvailable: aiAvailable,
	})
}

// decodeJSON reads one JSON body, keeping numbers in their lexical form
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}
