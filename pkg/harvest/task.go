// Package harvest drives a full collection run: it wraps each batch in a
// retrying fetch task, drains the tasks through the rate-limited scheduler,
// and aggregates the outcomes into one consolidated report.
package harvest

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/mjarvik/fleet-telemetry-collector/pkg/report"
	"github.com/mjarvik/fleet-telemetry-collector/pkg/transport"
)

// Prometheus metrics for fetch tasks.
var (
	batchRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_batch_retries_total",
		Help: "Total batch fetch retry attempts",
	})

	batchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_batch_failures_total",
		Help: "Total batches that exhausted their retries",
	})

	recordsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_records_fetched_total",
		Help: "Total device records retrieved",
	})
)

// State is the lifecycle state of a fetch task.
type State string

const (
	// StatePending: created, or waiting out a retry delay.
	StatePending State = "pending"

	// StateAttempting: a fetch for this batch is in flight.
	StateAttempting State = "attempting"

	// StateSucceeded: terminal; the fetched records are the task's result.
	StateSucceeded State = "succeeded"

	// StateFailed: terminal; retries exhausted, a FailureEntry was recorded.
	StateFailed State = "failed"
)

// Task fetches the telemetry for one batch with bounded retry. Retries happen
// inside the task's own admitted slot: from the scheduler's point of view the
// whole retry loop is one task occupying one admission.
type Task struct {
	batchIndex int
	serials    []string

	fetcher    transport.Fetcher
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger

	state    State
	attempts int
	failure  *report.FailureEntry
}

// NewTask creates a fetch task for one batch.
func NewTask(batchIndex int, serials []string, fetcher transport.Fetcher, maxRetries int, retryDelay time.Duration, logger zerolog.Logger) *Task {
	return &Task{
		batchIndex: batchIndex,
		serials:    serials,
		fetcher:    fetcher,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger.With().Int("batch", batchIndex).Logger(),
		state:      StatePending,
	}
}

// Run executes the fetch with bounded retry and a fixed delay between
// attempts. A batch that exhausts its retries records a FailureEntry and
// yields zero records instead of an error, so one bad batch never aborts the
// run. The error return is reserved for context cancellation.
func (t *Task) Run(ctx context.Context) ([]transport.DeviceRecord, error) {
	for {
		t.state = StateAttempting
		records, err := t.fetcher.Fetch(ctx, t.serials)
		if err == nil {
			t.state = StateSucceeded
			recordsFetchedTotal.Add(float64(len(records)))
			if t.attempts > 0 {
				t.logger.Info().
					Int("attempts", t.attempts).
					Int("records", len(records)).
					Msg("Batch succeeded after retry")
			}
			return records, nil
		}

		if t.attempts == t.maxRetries {
			t.state = StateFailed
			t.failure = &report.FailureEntry{
				BatchIndex: t.batchIndex,
				Serials:    t.serials,
				Error:      err.Error(),
			}
			batchFailuresTotal.Inc()
			t.logger.Error().
				Err(err).
				Int("attempts", t.attempts).
				Int("serials", len(t.serials)).
				Msg("Batch failed permanently")
			return nil, nil
		}

		t.attempts++
		t.state = StatePending
		batchRetriesTotal.Inc()
		t.logger.Warn().
			Err(err).
			Int("attempt", t.attempts).
			Int("max_retries", t.maxRetries).
			Dur("retry_delay", t.retryDelay).
			Msg("Batch fetch failed, retrying")

		select {
		case <-ctx.Done():
			t.logger.Warn().Msg("Context cancelled during retry delay")
			return nil, ctx.Err()
		case <-time.After(t.retryDelay):
		}
	}
}

// BatchIndex returns the task's position in the overall schedule.
func (t *Task) BatchIndex() int {
	return t.batchIndex
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	return t.state
}

// Attempts returns the number of failed attempts so far.
func (t *Task) Attempts() int {
	return t.attempts
}

// Failure returns the recorded FailureEntry, or nil if the task has not
// failed permanently.
func (t *Task) Failure() *report.FailureEntry {
	return t.failure
}
