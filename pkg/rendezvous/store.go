// Package rendezvous implements the ephemeral meeting point between a fan-out
// and the poll that later collects its results: a keyed, append-only Redis
// list with the expected size encoded in the key and a short TTL as drop-dead
// cleanup when no poll ever completes it.
package rendezvous

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Prometheus metrics for rendezvous store operations.
var (
	rendezvousAppendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flightstatus_rendezvous_appends_total",
		Help: "Total partial results appended to rendezvous lists",
	})

	rendezvousDrainsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flightstatus_rendezvous_drains_total",
		Help: "Total rendezvous lists drained and deleted",
	})

	rendezvousStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightstatus_rendezvous_store_errors_total",
		Help: "Total Redis errors by operation",
	}, []string{"operation"})
)

// DefaultTTL bounds the life of a rendezvous list. Every append refreshes it
// so a slow fan-out does not expire mid-flight.
const DefaultTTL = 120 * time.Second

// drainedSuffix marks keys whose list has been consumed, so a repeat poll can
// be told apart from a fan-out that has not appended yet.
const drainedSuffix = ":done"

// Store provides the four-operation rendezvous contract over Redis lists.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a rendezvous store. A non-positive ttl selects DefaultTTL.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Append adds one partial result to the list at key and refreshes the key's
// TTL, atomically.
func (s *Store) Append(ctx context.Context, key, value string) error {
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, value)
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		rendezvousStoreErrors.WithLabelValues("append").Inc()
		return fmt.Errorf("redis append to %s: %w", key, err)
	}

	rendezvousAppendsTotal.Inc()
	return nil
}

// Size returns the current length of the list at key (0 when absent).
func (s *Store) Size(ctx context.Context, key string) (int, error) {
	n, err := s.redis.LLen(ctx, key).Result()
	if err != nil {
		rendezvousStoreErrors.WithLabelValues("size").Inc()
		return 0, fmt.Errorf("redis llen %s: %w", key, err)
	}
	return int(n), nil
}

// DrainAndDelete atomically reads the full list, removes the key, and leaves
// a drained marker behind (with the store TTL) so later polls on the consumed
// key can be rejected. Racing drains are resolved by Redis: exactly one caller
// receives the values, the other an empty slice.
func (s *Store) DrainAndDelete(ctx context.Context, key string) ([]string, error) {
	pipe := s.redis.TxPipeline()
	lrange := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	pipe.Set(ctx, key+drainedSuffix, "1", s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		rendezvousStoreErrors.WithLabelValues("drain").Inc()
		return nil, fmt.Errorf("redis drain %s: %w", key, err)
	}

	rendezvousDrainsTotal.Inc()
	return lrange.Val(), nil
}

// Drained reports whether the list at key has already been consumed.
func (s *Store) Drained(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, key+drainedSuffix).Result()
	if err != nil {
		rendezvousStoreErrors.WithLabelValues("drained").Inc()
		return false, fmt.Errorf("redis exists %s: %w", key+drainedSuffix, err)
	}
	return n > 0, nil
}

// TTL returns the configured list lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
