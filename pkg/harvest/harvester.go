package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mjarvik/fleet-telemetry-collector/pkg/batch"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/identity"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/report"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/schedule"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/transport"
)

// ErrConnectivity is returned when the pre-run connectivity probe fails.
// It is the one fatal failure: nothing is scheduled and no report is produced.
var ErrConnectivity = errors.New("connectivity probe failed")

// probeSerial is the reserved synthetic serial used by the connectivity
// probe. It is never part of the generated population.
const probeSerial = "PROBE-000"

// Config holds the collection run parameters.
type Config struct {
	// DeviceCount is the size of the device population.
	DeviceCount int

	// SerialPrefix prefixes every generated serial.
	SerialPrefix string

	// BatchSize is the maximum number of serials per request.
	BatchSize int

	// Interval is the minimum gap between admissions of two batches.
	Interval time.Duration

	// MaxRetries is the retry ceiling per batch.
	MaxRetries int

	// RetryDelay is the fixed delay between attempts of one batch.
	RetryDelay time.Duration
}

// Harvester orchestrates a full collection run.
type Harvester struct {
	fetcher transport.Fetcher
	config  Config
	logger  zerolog.Logger
}

// New creates a harvester. Argument errors fail here, never at run time.
func New(fetcher transport.Fetcher, cfg Config) (*Harvester, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive (got %d)", cfg.BatchSize)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.DeviceCount < 0 {
		return nil, fmt.Errorf("device count must be >= 0 (got %d)", cfg.DeviceCount)
	}

	return &Harvester{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "harvester").Logger(),
	}, nil
}

// Run performs the full collection and returns the consolidated report.
// The connectivity probe runs first; if it fails, the run aborts with
// ErrConnectivity before any serials are generated or tasks scheduled.
// Per-batch failures are absorbed into the report's error list.
func (h *Harvester) Run(ctx context.Context) (*report.Report, error) {
	start := time.Now()

	if _, err := h.fetcher.Fetch(ctx, []string{probeSerial}); err != nil {
		h.logger.Error().Err(err).Msg("Connectivity probe failed - aborting run")
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	h.logger.Info().Msg("Connectivity probe succeeded")

	serials := identity.Serials(h.config.DeviceCount, h.config.SerialPrefix)
	batches, err := batch.Partition(serials, h.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("partition serials: %w", err)
	}

	h.logger.Info().
		Int("devices", len(serials)).
		Int("batches", len(batches)).
		Int("batch_size", h.config.BatchSize).
		Dur("interval", h.config.Interval).
		Msg("Starting collection run")

	tasks := make([]*Task, len(batches))
	scheduled := make([]schedule.Task[[]transport.DeviceRecord], len(batches))
	for i, b := range batches {
		t := NewTask(i, b, h.fetcher, h.config.MaxRetries, h.config.RetryDelay, h.logger)
		tasks[i] = t
		scheduled[i] = t.Run
	}

	scheduler := schedule.New[[]transport.DeviceRecord](h.config.Interval, h.logger)
	results, err := scheduler.DrainAll(ctx, scheduled, func(completed, total int) {
		h.logger.Info().
			Int("completed", completed).
			Int("total", total).
			Msg("Batch completed")
	})
	if err != nil {
		// Tasks absorb fetch failures; only cancellation surfaces here.
		return nil, fmt.Errorf("drain batches: %w", err)
	}

	// Flatten in batch order; within-batch order is the remote's response
	// order.
	var records []transport.DeviceRecord
	for _, batchRecords := range results {
		records = append(records, batchRecords...)
	}

	var failures []report.FailureEntry
	failedSerials := 0
	for _, t := range tasks {
		if f := t.Failure(); f != nil {
			failures = append(failures, *f)
			failedSerials += len(f.Serials)
		}
	}

	rep := &report.Report{
		RunID:             uuid.NewString(),
		GeneratedAt:       time.Now().UTC(),
		TotalDevices:      h.config.DeviceCount,
		SuccessfulFetches: len(records),
		FailedFetches:     failedSerials,
		Records:           records,
		Errors:            failures,
	}

	h.logger.Info().
		Str("run_id", rep.RunID).
		Int("successful", rep.SuccessfulFetches).
		Int("failed", rep.FailedFetches).
		Int("failed_batches", len(failures)).
		Dur("duration", time.Since(start)).
		Msg("Collection run complete")

	return rep, nil
}
