package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mission-control/internal/config"
	"mission-control/internal/database"
	"mission-control/internal/launches"
	"mission-control/internal/metrics"
	"mission-control/internal/server"
	"mission-control/internal/spacex"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Error loading configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("Error configuring logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	provider := spacex.NewClient(cfg.SpaceXAPIURL, cfg.SpaceXTimeout, logger)
	launchService := launches.New(db, provider, m, logger)

	// Seeding failures are fatal to startup.
	if err := launchService.Seed(ctx); err != nil {
		return err
	}

	srv := server.NewServer(cfg, server.Dependencies{
		DB:       db,
		Launches: launchService,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})

	// Create a listener on the desired address
	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	// Channel to receive errors from the server
	errChan := make(chan error, 1)

	go func() {
		logger.Infof("Server started on %s...", srv.Addr)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for an interrupt or server error
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal, initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		logger.Info("Server gracefully stopped")
		return nil
	}
}
