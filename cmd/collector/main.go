// Command collector runs one telemetry collection pass over the configured
// device fleet and writes the consolidated run report.
//
// Exit status is non-zero only for fatal conditions: invalid configuration,
// a failed connectivity probe, or a report that could not be persisted.
// Per-batch fetch failures are recorded in the report and exit zero.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mjarvik/fleet-telemetry-collector/internal/config"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/harvest"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/logging"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/report"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.Setup(logging.DefaultConfig())
		fallback.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	}).With().Str("component", "collector").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	client, err := transport.New(transport.Config{
		BaseURL:  cfg.API.BaseURL,
		Endpoint: cfg.API.Endpoint,
		Token:    cfg.API.Token,
		Timeout:  cfg.API.Timeout,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create transport")
		return err
	}

	harvester, err := harvest.New(client, harvest.Config{
		DeviceCount:  cfg.Collector.DeviceCount,
		SerialPrefix: cfg.Collector.SerialPrefix,
		BatchSize:    cfg.Collector.BatchSize,
		Interval:     cfg.Collector.AdmissionInterval,
		MaxRetries:   cfg.Collector.MaxRetries,
		RetryDelay:   cfg.Collector.RetryDelay,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create harvester")
		return err
	}

	rep, err := harvester.Run(ctx)
	if err != nil {
		if errors.Is(err, harvest.ErrConnectivity) {
			logger.Error().Err(err).Msg("Telemetry API unreachable")
		} else {
			logger.Error().Err(err).Msg("Collection run aborted")
		}
		return err
	}

	if err := report.NewFileStore(cfg.Collector.OutputPath).Save(rep); err != nil {
		logger.Error().Err(err).Str("path", cfg.Collector.OutputPath).Msg("Failed to persist report")
		return err
	}
	logger.Info().Str("path", cfg.Collector.OutputPath).Msg("Report written")

	mirrorReport(ctx, cfg, rep, logger)

	logger.Info().
		Str("run_id", rep.RunID).
		Int("successful", rep.SuccessfulFetches).
		Int("failed", rep.FailedFetches).
		Msg("Done")
	return nil
}

// mirrorReport publishes the report to Redis when a mirror is configured.
// Mirror failures are logged but never fail the run; the file is the durable
// record.
func mirrorReport(ctx context.Context, cfg *config.Config, rep *report.Report, logger zerolog.Logger) {
	if cfg.Redis.Addr == "" {
		return
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, skipping report mirror")
		return
	}

	store := report.NewRedisStore(redisClient, cfg.Redis.ReportTTL)
	if err := store.Save(ctx, rep); err != nil {
		logger.Warn().Err(err).Msg("Failed to mirror report to Redis")
		return
	}
	logger.Info().Str("key", report.RedisKeyLatestReport).Msg("Report mirrored to Redis")
}

// serveMetrics exposes the Prometheus endpoint for the duration of the run.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn().Err(err).Msg("Metrics listener stopped")
	}
}
