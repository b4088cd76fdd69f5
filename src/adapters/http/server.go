package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"invitationmetrics/src/repositories"
	"invitationmetrics/src/services/metrics"
)

// Server representa o servidor HTTP da API
type Server struct {
	logger         *slog.Logger
	server         *http.Server
	mux            *http.ServeMux
	port           int
	metricsService *metrics.MetricsService
	store          repositories.DocumentStore
}

// NewServer cria uma nova instância do servidor
func NewServer(
	logger *slog.Logger,
	port int,
	metricsService *metrics.MetricsService,
	store repositories.DocumentStore,
	gatherer prometheus.Gatherer,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	server := &Server{
		mux:            http.NewServeMux(),
		port:           port,
		logger:         logger,
		metricsService: metricsService,
		store:          store,
	}

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Rotas de Leitura
	server.mux.HandleFunc("GET /v1/metrics/invitations", server.GetInvitationMetrics)
	server.mux.HandleFunc("GET /v1/metrics/invitations/rollups", server.GetInvitationRollups)

	// Operacional
	server.mux.HandleFunc("GET /healthz", server.Healthz)
	if gatherer != nil {
		server.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return server
}

// Handler exposes the routes, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start inicia o servidor HTTP
func (s *Server) Start() error {
	s.logger.Info("Server started", "port", s.port)

	return s.server.ListenAndServe()
}

// Shutdown encerra o servidor HTTP de forma graciosa
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
