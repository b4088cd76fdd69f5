package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	httpadapter "invitationmetrics/src/adapters/http"
	"invitationmetrics/src/bootstrap"
	"invitationmetrics/src/config"
	"invitationmetrics/src/infra/kafka"
	"invitationmetrics/src/repositories"
	"invitationmetrics/src/services/metrics"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting invitation metrics API with Uber Fx...")

	app := fx.New(
		bootstrap.Module,

		// Providers
		fx.Provide(
			newKafkaClient,
			newServer,
		),

		// Invocations
		fx.Invoke(registerServerHooks),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
}

// newKafkaClient só publica; a API não participa de consumer group.
func newKafkaClient(lc fx.Lifecycle, logger *slog.Logger, cfg config.Config) (*kafka.KafkaClient, error) {
	if !cfg.PublishEnabled() {
		return nil, nil
	}

	return bootstrap.NewKafkaClient(lc, logger, cfg, "")
}

func newServer(
	logger *slog.Logger,
	cfg config.Config,
	metricsService *metrics.MetricsService,
	store repositories.DocumentStore,
	registry *prometheus.Registry,
) *httpadapter.Server {
	return httpadapter.NewServer(logger, cfg.ServerPort, metricsService, store, registry)
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *slog.Logger, srv *httpadapter.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Server failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "error", err)
				return err
			}
			logger.Info("Server exited gracefully")
			return nil
		},
	})
}
