package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/reservoir/pkg/config"
	"github.com/ajitpratap0/reservoir/pkg/json"
	"github.com/ajitpratap0/reservoir/pkg/logger"
	"github.com/ajitpratap0/reservoir/pkg/metrics"
	"github.com/ajitpratap0/reservoir/pkg/observability"
)

func newRunCmd() *cobra.Command {
	var configFile, metricsAddr, logLevel string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the spawner",
		Long: `Run the spawner until interrupted or until --duration elapses.
Pool metrics are served on the configured address when metrics are enabled.

Example:
  reservoir run --config reservoir.yaml --duration 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.Metrics.Address = metricsAddr
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return runHost(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration (defaults apply when empty)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Override the metrics listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")
	return cmd
}

func runHost(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	obs := observability.DefaultConfig()
	obs.Logging = cfg.Logging
	obs.Tracing.Enabled = cfg.Tracing.Enabled
	obs.Tracing.ServiceName = cfg.Tracing.ServiceName
	obs.Tracing.ServiceVersion = version
	obs.Tracing.SamplingRate = cfg.Tracing.SampleRate
	if err := observability.Initialize(ctx, obs); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observability.Shutdown(shutdownCtx)
	}()

	ctx = logger.NewContext(ctx, logger.RunIDKey, strconv.FormatInt(time.Now().UnixNano(), 36))
	component := zap.String("component", "reservoir-cli")
	log := logger.WithContext(logger.NewContext(ctx, logger.PoolKey, cfg.Pool.Name)).With(component)

	// the spawner adds run, pool and spawner names from ctx itself
	h, err := newHost(cfg, logger.With(component))
	if err != nil {
		return err
	}
	detach := observability.LogEvents(h.pool, log, zapcore.DebugLevel)
	defer detach()

	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		pm, err := metrics.Instrument(reg, cfg.Metrics.Namespace, h.pool)
		if err != nil {
			return err
		}
		defer pm.Close()
		jm, err := metrics.Instrument(reg, cfg.Metrics.Namespace, json.Default().Pool())
		if err != nil {
			return err
		}
		defer jm.Close()

		srv := newMetricsServer(cfg.Metrics, metrics.Handler(reg), cfg.Tracing.ServiceName)
		go func() {
			log.Info("serving metrics", zap.String("address", srv.Addr), zap.String("path", cfg.Metrics.Path))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info("starting spawner",
		zap.Int("capacity", h.pool.Capacity()),
		zap.String("storage", cfg.Pool.Storage),
		zap.String("recycle", cfg.Pool.Recycle),
		zap.Int("spawn_points", len(cfg.Spawner.Points)),
	)
	startTime := time.Now()

	runErr := h.spawner.Run(ctx)
	if err := h.pool.Teardown(); err != nil {
		log.Warn("failed to tear down pool", zap.Error(err))
	}

	r := h.snapshot(false)
	log.Info("spawner finished",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int64("spawned", r.Spawner.Spawned),
		zap.Int64("exhausted", r.Spawner.Exhausted),
	)

	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return runErr
}

func newMetricsServer(cfg config.MetricsConfig, handler http.Handler, serviceName string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           observability.TracingMiddleware(serviceName)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
