// Package testutil provides testing utilities for the fleet telemetry collector.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of a mock telemetry endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockTelemetryAPI is a configurable mock telemetry server for testing.
type MockTelemetryAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	RequestTimes      []time.Time
	RequestedBatches  [][]string
	LastRequestHeader http.Header
}

// batchRequest mirrors the collector's batch request body.
type batchRequest struct {
	Serials []string `json:"serials"`
}

// NewMockTelemetryAPI creates a new mock telemetry server.
func NewMockTelemetryAPI() *MockTelemetryAPI {
	mock := &MockTelemetryAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		// Restore the body so custom handlers can decode it again.
		r.Body = io.NopCloser(bytes.NewReader(body))

		var batch batchRequest
		_ = json.Unmarshal(body, &batch)

		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestTimes = append(mock.RequestTimes, time.Now())
		mock.RequestedBatches = append(mock.RequestedBatches, batch.Serials)
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default: echo a record per requested serial.
		WriteRecords(w, batch.Serials)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockTelemetryAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTelemetryAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockTelemetryAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestTimes = nil
	m.RequestedBatches = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockTelemetryAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockTelemetryAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockTelemetryAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequestedBatches returns the serial batches received so far, in order.
func (m *MockTelemetryAPI) GetRequestedBatches() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	batches := make([][]string, len(m.RequestedBatches))
	copy(batches, m.RequestedBatches)
	return batches
}

// GetLastHeader returns the named header of the most recent request.
func (m *MockTelemetryAPI) GetLastHeader(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.LastRequestHeader == nil {
		return ""
	}
	return m.LastRequestHeader.Get(name)
}

// WriteRecords responds with one telemetry record per serial.
func WriteRecords(w http.ResponseWriter, serials []string) {
	type record struct {
		Serial     string          `json:"serial"`
		RecordedAt time.Time       `json:"recordedAt"`
		Payload    json.RawMessage `json:"payload"`
	}

	records := make([]record, 0, len(serials))
	for _, serial := range serials {
		records = append(records, record{
			Serial:     serial,
			RecordedAt: time.Now().UTC(),
			Payload:    json.RawMessage(fmt.Sprintf(`{"battery":87,"serial":%q}`, serial)),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(records)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewRejectedResponse creates a 401 Unauthorized response.
func NewRejectedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error": "invalid signature"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewFlakyHandler creates a handler that fails with 500 for the first
// failures requests to it, then answers normally.
func NewFlakyHandler(failures int) func(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	seen := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen++
		fail := seen <= failures
		mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": "try again"}`))
			return
		}

		var batch batchRequest
		_ = json.NewDecoder(r.Body).Decode(&batch)
		WriteRecords(w, batch.Serials)
	}
}
