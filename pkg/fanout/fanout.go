// Package fanout plans and launches the parallel windowed vendor calls that
// make up one flight-status request. The dispatcher hands back a rendezvous
// key immediately; the windows complete on their own and push their partials
// into the store, where a later poll collects them.
package fanout

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avialabs/flightstatus/pkg/flightstats"
	"github.com/avialabs/flightstatus/pkg/normalize"
	"github.com/avialabs/flightstatus/pkg/rendezvous"
)

// WindowPlan describes how one logical request is split into vendor calls.
type WindowPlan struct {
	// Hours covered by a single vendor call (the vendor caps this at 6).
	Hours int

	// Count of parallel calls; Hours*Count is the total covered span.
	Count int
}

// ComputeWindowPlan picks the window layout for a request. With an airline
// filter the board covers now +/- 12 hours (4 windows of 6h), otherwise
// now +/- 4 hours (2 windows of 4h).
func ComputeWindowPlan(hasAirlineFilter bool) WindowPlan {
	if hasAirlineFilter {
		return WindowPlan{Hours: 6, Count: 4}
	}
	return WindowPlan{Hours: 4, Count: 2}
}

// StartTimeFor returns the start of the first window, placed so that the
// windows tile a span symmetric around now.
func StartTimeFor(hours, count int) time.Time {
	half := time.Duration(hours*count) * time.Hour / 2
	return time.Now().Add(-half)
}

// WindowFetcher fetches one vendor window. Satisfied by *flightstats.Client.
type WindowFetcher interface {
	FetchWindow(ctx context.Context, iata string, direction flightstats.Direction, windowStart time.Time, numHours int) ([]byte, error)
}

// Dispatcher issues fan-outs against a vendor client and a rendezvous store.
type Dispatcher struct {
	fetcher WindowFetcher
	store   *rendezvous.Store
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher. The timeout bounds each window call;
// a non-positive value defaults to 30s.
func NewDispatcher(fetcher WindowFetcher, store *rendezvous.Store, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		fetcher: fetcher,
		store:   store,
		timeout: timeout,
		logger:  log.With().Str("component", "fanout").Logger(),
	}
}

// Dispatch computes the window plan, mints a rendezvous key sized to it, and
// launches one goroutine per window. It returns the key without waiting for
// any window to finish: the caller gets a handle, not a result. Input
// validation is the HTTP surface's job and is not repeated here.
//
// Every window produces exactly one partial. Vendor and normalization
// failures are absorbed into the error sentinel so the list always reaches
// its expected size, even under total vendor outage.
func (d *Dispatcher) Dispatch(iata string, direction flightstats.Direction, airline string) string {
	plan := ComputeWindowPlan(airline != "")
	key := rendezvous.NewKey(plan.Count)
	startTime := StartTimeFor(plan.Hours, plan.Count)

	d.logger.Info().
		Str("iata", iata).
		Str("direction", string(direction)).
		Str("airline", airline).
		Str("key", key).
		Int("windows", plan.Count).
		Int("window_hours", plan.Hours).
		Msg("Dispatching flight status fan-out")

	for i := 0; i < plan.Count; i++ {
		windowStart := startTime.Add(time.Duration(i*plan.Hours) * time.Hour)
		go d.fetchWindow(key, i, iata, direction, airline, windowStart, plan.Hours)
	}

	return key
}

// fetchWindow runs one vendor call to completion and appends its partial.
// The context is detached from the originating request: once dispatched, a
// window is never cancelled, even if the caller stops polling.
func (d *Dispatcher) fetchWindow(key string, window int, iata string, direction flightstats.Direction, airline string, windowStart time.Time, hours int) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	partial := normalize.SentinelError

	raw, err := d.fetcher.FetchWindow(ctx, iata, direction, windowStart, hours)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("key", key).
			Int("window", window).
			Time("window_start", windowStart).
			Msg("Window fetch failed, recording error partial")
	} else {
		partial = normalize.FlightsJSON(raw, direction, airline)
		if partial == normalize.SentinelError {
			d.logger.Warn().
				Str("key", key).
				Int("window", window).
				Msg("Normalization failed, recording error partial")
		}
	}

	// Fresh context: the fetch may have spent the whole window timeout, and
	// the error partial must still be recorded for the fan-out to complete.
	appendCtx, cancelAppend := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelAppend()

	if err := d.store.Append(appendCtx, key, partial); err != nil {
		// The partial is lost; the key never completes and expires via TTL.
		d.logger.Error().
			Err(err).
			Str("key", key).
			Int("window", window).
			Msg("Failed to append partial result")
	}
}
