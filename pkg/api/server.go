package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pipesight/pipesight/pkg/hub"
	"github.com/pipesight/pipesight/pkg/log"
	"github.com/pipesight/pipesight/pkg/metrics"
	"github.com/pipesight/pipesight/pkg/monitor"
	"github.com/rs/zerolog"
)

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

// Server exposes the monitoring subsystem over HTTP: the historical
// request/response surface, the WebSocket streaming surface, and the
// operational endpoints (health, readiness, metrics).
type Server struct {
	mon    *monitor.Monitor
	router *mux.Router
	http   *http.Server
	logger zerolog.Logger
}

// NewServer creates the API server over a monitor instance
func NewServer(mon *monitor.Monitor) *Server {
	s := &Server{
		mon:    mon,
		router: mux.NewRouter(),
		logger: log.WithComponent("api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(instrument)

	api.HandleFunc("/pipelines", s.handleListPipelines).Methods(http.MethodGet)
	api.HandleFunc("/pipelines/{id}", s.handleGetPipeline).Methods(http.MethodGet)
	api.HandleFunc("/pipelines/{id}/events", s.handleGetEvents).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleGetState).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleGetStats).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handlePostEvent).Methods(http.MethodPost)

	s.router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(s.mon.Hub(), w, r)
	})

	s.router.Handle("/metrics", metrics.Handler())
	s.router.HandleFunc("/health", metrics.HealthHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", metrics.ReadyHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/livez", metrics.LivenessHandler()).Methods(http.MethodGet)
}

// Handler returns the root handler, used directly by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving on addr, blocking until the listener fails or
// Stop is called
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("api server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the HTTP server down. WebSocket connections are
// torn down by the hub's own Stop.
func (s *Server) Stop() error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
