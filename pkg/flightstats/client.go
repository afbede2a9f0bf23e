// Package flightstats provides the client for the FlightStats airport-status
// API. One call covers a single bounded time window; wider spans are covered
// by the fan-out dispatcher issuing several time-shifted calls.
package flightstats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for vendor API calls.
var (
	vendorRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightstatus_vendor_requests_total",
		Help: "Total FlightStats requests by HTTP status",
	}, []string{"status"})

	vendorRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flightstatus_vendor_request_duration_seconds",
		Help:    "FlightStats request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	vendorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightstatus_vendor_errors_total",
		Help: "Total FlightStats errors by class",
	}, []string{"class"})
)

// Direction selects which side of the airport board a request covers.
// The values are the literal path segments of the vendor URL.
type Direction string

const (
	// Departure lists flights leaving the airport.
	Departure Direction = "dep"

	// Arrival lists flights arriving at the airport.
	Arrival Direction = "arr"
)

// DefaultBaseURL is the production FlightStats endpoint.
const DefaultBaseURL = "https://api.flightstats.com"

// Config holds the client configuration.
type Config struct {
	// BaseURL of the vendor API. Override for tests.
	BaseURL string

	// AppID and AppKey are the FlightStats credentials (both required).
	AppID  string
	AppKey string

	// Timeout per window fetch. A timed-out window is reported as an error;
	// the caller records it as an error partial, it is never retried.
	Timeout time.Duration
}

// DefaultConfig returns a configuration with production defaults.
func DefaultConfig(appID, appKey string) Config {
	return Config{
		BaseURL: DefaultBaseURL,
		AppID:   appID,
		AppKey:  appKey,
		Timeout: 30 * time.Second,
	}
}

// Client is the FlightStats airport-status client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new FlightStats client.
func New(cfg Config) (*Client, error) {
	if cfg.AppID == "" || cfg.AppKey == "" {
		return nil, fmt.Errorf("flightstats app_id and app_key are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "flightstats").Logger(),
	}, nil
}

// RequestURL builds the airport-status URL for one time window.
// The window start is truncated to the hour, expressed in UTC path segments
// without zero padding (the format the vendor route expects).
func (c *Client) RequestURL(iata string, direction Direction, windowStart time.Time, numHours int) string {
	t := windowStart.UTC()

	return fmt.Sprintf(
		"%s/flex/flightstatus/rest/v2/json/airport/status/%s/%s/%d/%d/%d/%d"+
			"?codeType=IATA&utc=true&numHours=%d&appId=%s&appKey=%s",
		c.config.BaseURL, iata, direction,
		t.Year(), int(t.Month()), t.Day(), t.Hour(),
		numHours, c.config.AppID, c.config.AppKey,
	)
}

// Timeout returns the per-window fetch timeout.
func (c *Client) Timeout() time.Duration {
	return c.config.Timeout
}

// FetchWindow executes one airport-status request and returns the raw JSON
// payload. Non-200 responses and transport failures return an error; the
// client never retries (a failed window becomes an error partial upstream).
func (c *Client) FetchWindow(ctx context.Context, iata string, direction Direction, windowStart time.Time, numHours int) ([]byte, error) {
	url := c.RequestURL(iata, direction, windowStart, numHours)

	start := time.Now()
	defer func() {
		vendorRequestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := classifyError(nil, err)
		vendorErrorsTotal.WithLabelValues(string(errClass)).Inc()
		vendorRequestsTotal.WithLabelValues("network_error").Inc()

		c.logger.Error().
			Err(err).
			Str("iata", iata).
			Str("direction", string(direction)).
			Time("window_start", windowStart).
			Msg("FlightStats request failed")

		return nil, fmt.Errorf("flightstats request: %w", err)
	}
	defer resp.Body.Close()

	vendorRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		errClass := classifyError(resp, nil)
		vendorErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("iata", iata).
			Str("direction", string(direction)).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("FlightStats returned non-200 status")

		return nil, &VendorError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		vendorErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
