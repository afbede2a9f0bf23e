package rendezvous

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// keyPrefix namespaces rendezvous keys in the shared Redis instance.
const keyPrefix = "fs"

// keyPattern is the exact shape of a minted key: fs:<expectedCount>:<uuid-v4>.
// The uuid segment carries the entropy that makes keys unguessable.
var keyPattern = regexp.MustCompile(
	`^fs:(\d+):[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// NewKey mints a key for a fan-out expecting the given number of partials.
func NewKey(expected int) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, expected, uuid.NewString())
}

// IsValidKey reports whether candidate has the exact minted-key shape.
// Structural validation rejects forged or stale keys without touching Redis.
func IsValidKey(candidate string) bool {
	return keyPattern.MatchString(candidate)
}

// ExpectedCount recovers the partial count embedded in the key.
func ExpectedCount(key string) (int, error) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, fmt.Errorf("malformed rendezvous key: %q", key)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parse expected count in key %q: %w", key, err)
	}

	return n, nil
}
