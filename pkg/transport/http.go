package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mjarvik/fleet-telemetry-collector/pkg/signing"
)

// Prometheus metrics for telemetry API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_requests_total",
		Help: "Total telemetry API requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collector_request_duration_seconds",
		Help:    "Telemetry API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	transportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_transport_errors_total",
		Help: "Total transport failures by class",
	}, []string{"class"})
)

// contentType is the fixed marker attached to every batch request.
const contentType = "application/json"

// Signature and timestamp headers expected by the telemetry API.
const (
	headerSignature = "X-Signature"
	headerTimestamp = "X-Timestamp"
)

// Config holds the HTTP transport configuration.
type Config struct {
	// BaseURL of the telemetry API, e.g. "https://telemetry.example.com".
	BaseURL string

	// Endpoint is the batch endpoint path. It doubles as the endpoint
	// identifier in the request signature.
	Endpoint string

	// Token is the secret signing token.
	Token string

	// Timeout bounds each individual request attempt.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:  baseURL,
		Endpoint: "/v1/telemetry/batch",
		Token:    token,
		Timeout:  5 * time.Second,
	}
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	httpClient *http.Client
	signer     *signing.Signer
	config     Config
	logger     zerolog.Logger
}

// New creates a telemetry API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("signing token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/v1/telemetry/batch"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		signer: signing.New(cfg.Endpoint, cfg.Token),
		config: cfg,
		logger: log.With().Str("component", "transport").Logger(),
	}, nil
}

// batchRequest is the JSON body of a batch fetch.
type batchRequest struct {
	Serials []string `json:"serials"`
}

// Fetch posts the batch serials to the telemetry API with a fresh signature
// pair and returns the decoded device records. Failures are returned as
// *APIError with the class set; no retrying happens at this layer.
func (c *Client) Fetch(ctx context.Context, serials []string) ([]DeviceRecord, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := c.buildRequest(ctx, serials)
	if err != nil {
		transportErrorsTotal.WithLabelValues(string(ErrorClassRequest)).Inc()
		return nil, &APIError{
			Class:   ErrorClassRequest,
			Message: "build batch request",
			Err:     err,
		}
	}

	c.logger.Debug().
		Int("serials", len(serials)).
		Str("endpoint", c.config.Endpoint).
		Msg("Executing batch request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", c.config.Endpoint).Msg("Batch request failed")
		transportErrorsTotal.WithLabelValues(string(ErrorClassNoResponse)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, &APIError{
			Class:   ErrorClassNoResponse,
			Message: "no response received",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		c.logger.Warn().
			Str("endpoint", c.config.Endpoint).
			Int("status", resp.StatusCode).
			Msg("Batch request rejected")
		transportErrorsTotal.WithLabelValues(string(ErrorClassRejected)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassRejected,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		transportErrorsTotal.WithLabelValues(string(ErrorClassNoResponse)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNoResponse,
			Message:    "read response body",
			Err:        err,
		}
	}

	var records []DeviceRecord
	if err := json.Unmarshal(body, &records); err != nil {
		transportErrorsTotal.WithLabelValues(string(ErrorClassNoResponse)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNoResponse,
			Message:    "decode response body",
			Err:        err,
		}
	}

	c.logger.Debug().
		Int("serials", len(serials)).
		Int("records", len(records)).
		Dur("duration", time.Since(startTime)).
		Msg("Batch request complete")

	return records, nil
}

// buildRequest constructs the signed POST request for one batch.
func (c *Client) buildRequest(ctx context.Context, serials []string) (*http.Request, error) {
	body, err := json.Marshal(batchRequest{Serials: serials})
	if err != nil {
		return nil, fmt.Errorf("marshal batch body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Fresh signature pair per request; never reused across attempts.
	pair := c.signer.Sign()
	req.Header.Set(headerSignature, pair.Signature)
	req.Header.Set(headerTimestamp, pair.Timestamp)
	req.Header.Set("Content-Type", contentType)

	return req, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetSignerClock overrides the signer's timestamp source (for testing).
func (c *Client) SetSignerClock(now func() time.Time) {
	c.signer.SetClock(now)
}
