// Package testutil provides testing utilities for the flight status service.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of one mock vendor endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockFlightStats is a configurable mock of the FlightStats airport-status
// API. Handlers are keyed by URL path prefix so the hour segment of a window
// URL does not need to be predicted by tests.
type MockFlightStats struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	RequestCount int
	LastQuery    map[string][]string
}

// NewMockFlightStats creates a new mock vendor server.
func NewMockFlightStats() *MockFlightStats {
	mock := &MockFlightStats{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		mock.mu.Unlock()

		mock.mu.RLock()
		var handler func(w http.ResponseWriter, r *http.Request)
		for prefix, h := range mock.handlers {
			if len(r.URL.Path) >= len(prefix) && r.URL.Path[:len(prefix)] == prefix {
				handler = h
				break
			}
		}
		mock.mu.RUnlock()

		if handler != nil {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockFlightStats) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockFlightStats) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for all paths under the given prefix.
func (m *MockFlightStats) SetHandler(prefix string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[prefix] = handler
}

// SetResponse configures a fixed response for all paths under the prefix.
func (m *MockFlightStats) SetResponse(prefix string, resp MockResponse) {
	m.SetHandler(prefix, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetAirportStatus configures the status endpoint for one airport/direction
// pair, covering every windowed call of a fan-out.
func (m *MockFlightStats) SetAirportStatus(iata, direction string, resp MockResponse) {
	prefix := "/flex/flightstatus/rest/v2/json/airport/status/" + iata + "/" + direction + "/"
	m.SetResponse(prefix, resp)
}

// GetRequestCount returns the number of requests received.
func (m *MockFlightStats) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// defaultHandler answers an empty but well-formed airport-status payload.
func (m *MockFlightStats) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"flightStatuses": []}`))
}

// NewStatusResponse creates a 200 response with the given payload body.
func NewStatusResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
	}
}

// NewBadAirportResponse creates the vendor's unknown-airport payload.
func NewBadAirportResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"error": {"errorCode": "BAD_AIRPORT_CODE"}}`,
	}
}
