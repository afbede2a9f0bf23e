// Package server exposes the two-step HTTP surface of the aggregator:
// GET /request dispatches a fan-out and returns its rendezvous key, and
// GET /response polls that key until the merged board is ready.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/avialabs/flightstatus/pkg/flightstats"
	"github.com/avialabs/flightstatus/pkg/logging"
	"github.com/avialabs/flightstatus/pkg/poller"
)

// Dispatcher starts one fan-out and returns its rendezvous key immediately.
// Satisfied by *fanout.Dispatcher.
type Dispatcher interface {
	Dispatch(iata string, direction flightstats.Direction, airline string) string
}

// Handler serves the request/poll endpoints.
type Handler struct {
	dispatcher Dispatcher
	poller     *poller.Poller
	logger     zerolog.Logger
}

// NewRouter wires the HTTP surface and returns the root handler.
func NewRouter(dispatcher Dispatcher, p *poller.Poller) http.Handler {
	h := &Handler{
		dispatcher: dispatcher,
		poller:     p,
		logger:     logging.NewLogger("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/request", h.handleRequest)
	mux.HandleFunc("/response", h.handleResponse)
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", handleNotFound)

	return loggingMiddleware(mux)
}

// handleRequest validates the form parameters, dispatches the fan-out and
// writes the rendezvous key as plain text. The client is expected to start
// polling /response with that key.
func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	iata := q.Get("iata")
	direction := q.Get("type")
	airline := q.Get("airline")

	if errs := FormErrors(iata, direction, airline); len(errs) > 0 {
		h.logger.Warn().
			Str("iata", iata).
			Str("direction", direction).
			Str("airline", airline).
			Interface("errors", errs).
			Msg("Rejected request with invalid parameters")
		writeClientError(w)
		return
	}

	key := h.dispatcher.Dispatch(iata, flightstats.Direction(direction), airline)
	writeText(w, key)
}

// handleResponse polls the rendezvous key. Pending polls answer JSON null;
// completed ones answer the merged array, the bad-airport marker, or a
// generic failure, each a distinct outcome the client branches on.
func (h *Handler) handleResponse(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	result, err := h.poller.Poll(r.Context(), key)
	if err != nil {
		if errors.Is(err, poller.ErrInvalidKey) {
			h.logger.Warn().Err(err).Str("key", key).Msg("Poll with invalid key")
			writeClientError(w)
			return
		}

		h.logger.Error().Err(err).Str("key", key).Msg("Poll failed")
		writeServerError(w)
		return
	}

	switch result.State {
	case poller.StatePending:
		writeJSON(w, "null")
	case poller.StateBadAirport:
		writeJSON(w, `"bad-airport"`)
	case poller.StateReady:
		writeJSON(w, string(result.Flights))
	default: // poller.StateError
		writeServerError(w)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "404 Not Found", http.StatusNotFound)
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, text)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, body)
}

// Failure bodies carry no internal detail; everything useful is logged first.

func writeClientError(w http.ResponseWriter) {
	http.Error(w, "400 Bad Request", http.StatusBadRequest)
}

func writeServerError(w http.ResponseWriter) {
	http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
}
