package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fula-project/gateway/internal/logger"
	"github.com/fula-project/gateway/internal/telemetry"
	"github.com/fula-project/gateway/pkg/api"
	"github.com/fula-project/gateway/pkg/blockstore"
	"github.com/fula-project/gateway/pkg/bucket"
	"github.com/fula-project/gateway/pkg/config"
	"github.com/fula-project/gateway/pkg/metrics"

	// Registers the Prometheus-backed metrics constructors.
	_ "github.com/fula-project/gateway/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the fula-gateway server",
	Long: `Start the fula-gateway S3-compatible HTTP server using the configured
block store and bucket registry backends.

Examples:
  fula-gateway start
  fula-gateway start --config /etc/fula-gateway/config.yaml
  FULA_LOGGING_LEVEL=DEBUG fula-gateway start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "fula-gateway",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "fula-gateway",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("fula-gateway starting", "version", Version, "log_level", cfg.Logging.Level)

	var apiMetrics metrics.APIMetrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		registry := metrics.InitRegistry()
		apiMetrics = metrics.NewAPIMetrics()
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics collection disabled")
	}

	store, pins, err := config.CreateBlockStore(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open block store: %w", err)
	}
	store, pins = blockstore.NewMetered(store, pins, metrics.NewBlockStoreMetrics(), string(cfg.Storage.Backend))
	registry, err := config.CreateRegistry(ctx, &cfg.Registry)
	if err != nil {
		return fmt.Errorf("failed to open bucket registry: %w", err)
	}

	hostname, _ := os.Hostname()
	if !cfg.Pinning.Enabled {
		pins = nil
	}
	mgr := bucket.NewManager(store, pins, registry, hostname).
		WithTreeMetrics(metrics.NewTreeMetrics())
	if cfg.Pinning.WaitForPin {
		mgr.WithPinWait(cfg.Pinning.PinPollInterval, cfg.Pinning.PinWaitTimeout)
	}

	buckets, err := mgr.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list buckets: %w", err)
	}
	logger.Info("bucket registry loaded", "buckets", len(buckets), "backend", cfg.Storage.Backend)

	server := api.NewServer(cfg, store, mgr, apiMetrics)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.ListenAndServe(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server is running", "listen_addr", cfg.Server.ListenAddr)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
		if metricsServer != nil {
			_ = metricsServer.Close()
		}
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if metricsServer != nil {
			_ = metricsServer.Close()
		}
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}
