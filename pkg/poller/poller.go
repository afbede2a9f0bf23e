// Package poller answers the repeated "is the result for key K ready?"
// question. It is purely reactive: each poll inspects the rendezvous list
// once, and the poll that observes the list at its expected size drains it
// and merges the partials, exactly once.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avialabs/flightstatus/pkg/normalize"
	"github.com/avialabs/flightstatus/pkg/rendezvous"
)

var pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flightstatus_polls_total",
	Help: "Total completion polls by resulting state",
}, []string{"state"})

// ErrInvalidKey is returned for keys that fail structural validation or that
// have already been drained by an earlier poll.
var ErrInvalidKey = errors.New("invalid rendezvous key")

// State is the outcome of one poll.
type State string

const (
	// StatePending means not all partials have arrived; poll again later.
	StatePending State = "pending"

	// StateReady means the merged flight list is in Result.Flights.
	StateReady State = "ready"

	// StateError means at least one window failed; terminal, the key is gone.
	StateError State = "error"

	// StateBadAirport means the vendor rejected the airport code; terminal.
	StateBadAirport State = "bad-airport"
)

// Result carries the poll outcome. Flights is set only for StateReady.
type Result struct {
	State   State
	Flights json.RawMessage
}

// Poller reads fan-out completion off a rendezvous store.
type Poller struct {
	store  *rendezvous.Store
	logger zerolog.Logger
}

// New creates a poller over the given store.
func New(store *rendezvous.Store) *Poller {
	return &Poller{
		store:  store,
		logger: log.With().Str("component", "poller").Logger(),
	}
}

// Poll checks the list at key against its expected size and, when complete,
// drains it and merges the partials. Store failures propagate to the caller;
// the terminal states consume the key, so polling it again yields
// ErrInvalidKey.
func (p *Poller) Poll(ctx context.Context, key string) (Result, error) {
	if !rendezvous.IsValidKey(key) {
		pollsTotal.WithLabelValues("invalid_key").Inc()
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	expected, err := rendezvous.ExpectedCount(key)
	if err != nil {
		pollsTotal.WithLabelValues("invalid_key").Inc()
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	size, err := p.store.Size(ctx, key)
	if err != nil {
		return Result{}, err
	}

	if size > expected {
		// Append-only lists only grow to their expected size; anything larger
		// is store corruption.
		p.logger.Error().
			Str("key", key).
			Int("size", size).
			Int("expected", expected).
			Msg("Rendezvous list larger than expected count")
		pollsTotal.WithLabelValues(string(StateError)).Inc()
		return Result{State: StateError}, nil
	}

	if size < expected {
		drained, err := p.store.Drained(ctx, key)
		if err != nil {
			return Result{}, err
		}
		if drained {
			pollsTotal.WithLabelValues("invalid_key").Inc()
			return Result{}, fmt.Errorf("%w: already consumed", ErrInvalidKey)
		}

		pollsTotal.WithLabelValues(string(StatePending)).Inc()
		return Result{State: StatePending}, nil
	}

	partials, err := p.store.DrainAndDelete(ctx, key)
	if err != nil {
		return Result{}, err
	}
	if len(partials) == 0 {
		// Lost a drain race: a concurrent poll consumed the list first.
		pollsTotal.WithLabelValues("invalid_key").Inc()
		return Result{}, fmt.Errorf("%w: already consumed", ErrInvalidKey)
	}

	for _, partial := range partials {
		if partial == normalize.SentinelError {
			p.logger.Error().
				Str("key", key).
				Msg("Error partial in drained results")
			pollsTotal.WithLabelValues(string(StateError)).Inc()
			return Result{State: StateError}, nil
		}
	}

	for _, partial := range partials {
		if partial == normalize.SentinelBadAirport {
			pollsTotal.WithLabelValues(string(StateBadAirport)).Inc()
			return Result{State: StateBadAirport}, nil
		}
	}

	merged, err := mergeFragments(partials)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("key", key).
			Msg("Failed to merge partial results")
		pollsTotal.WithLabelValues(string(StateError)).Inc()
		return Result{State: StateError}, nil
	}

	pollsTotal.WithLabelValues(string(StateReady)).Inc()
	return Result{State: StateReady, Flights: merged}, nil
}

// mergeFragments concatenates JSON array fragments into one array. Fragments
// are parsed, not string-spliced, so a malformed fragment fails loudly instead
// of corrupting the output. Order is arrival order; each fragment keeps its
// internal order from the normalizer.
func mergeFragments(fragments []string) (json.RawMessage, error) {
	combined := make([]json.RawMessage, 0)

	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal([]byte(fragment), &items); err != nil {
			return nil, fmt.Errorf("parse partial %q: %w", fragment, err)
		}
		combined = append(combined, items...)
	}

	merged, err := json.Marshal(combined)
	if err != nil {
		return nil, fmt.Errorf("serialize merged list: %w", err)
	}

	return merged, nil
}
