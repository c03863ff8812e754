// Package transport performs the signed batch requests against the telemetry
// API and classifies their failures.
package transport

import (
	"context"
	"encoding/json"
	"time"
)

// DeviceRecord is one device's telemetry as returned by the remote service.
type DeviceRecord struct {
	Serial     string          `json:"serial"`
	RecordedAt time.Time       `json:"recordedAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Fetcher retrieves the telemetry records for one batch of serials.
// Implementations fail with an *APIError carrying the failure class.
type Fetcher interface {
	Fetch(ctx context.Context, serials []string) ([]DeviceRecord, error)
}
