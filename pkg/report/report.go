// Package report defines the consolidated run report and its persistence.
package report

import (
	"time"

	"github.com/mjarvik/fleet-telemetry-collector/pkg/transport"
)

// FailureEntry records one permanently failed batch. It is created once when
// a batch exhausts its retries and never mutated afterwards.
type FailureEntry struct {
	BatchIndex int      `json:"batchIndex"`
	Serials    []string `json:"serials"`
	Error      string   `json:"error"`
}

// Report is the terminal artifact of a collection run, assembled once after
// every batch has reached a terminal state.
type Report struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`

	// TotalDevices is the size of the configured population.
	TotalDevices int `json:"totalDevices"`

	// SuccessfulFetches counts the device records actually retrieved.
	SuccessfulFetches int `json:"successfulFetches"`

	// FailedFetches counts the serials belonging to permanently failed
	// batches. A failed batch counts all of its serials.
	FailedFetches int `json:"failedFetches"`

	// Records holds every retrieved record, in batch order and within-batch
	// order.
	Records []transport.DeviceRecord `json:"records"`

	// Errors lists one entry per permanently failed batch.
	Errors []FailureEntry `json:"errors"`
}
