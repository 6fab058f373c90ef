package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// Decision represents the result of a rate limit check.
type Decision struct {
	// Key is the identifier used for rate limiting, usually a client IP.
	Key string

	Allowed bool

	// Limit is the burst size, the most requests available at once.
	Limit int

	// Remaining is the number of whole tokens left after this request.
	Remaining int

	// RetryAfter is how long a denied client should wait. Zero when allowed.
	RetryAfter time.Duration
}

// String returns a human-readable representation of the decision.
func (d Decision) String() string {
	if d.Allowed {
		return fmt.Sprintf("Decision{Allowed: true, Key: %s, Remaining: %d/%d}", d.Key, d.Remaining, d.Limit)
	}
	return fmt.Sprintf("Decision{Allowed: false, Key: %s, Limit: %d, RetryAfter: %s}", d.Key, d.Limit, d.RetryAfter)
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds for the
// Retry-After header, with a minimum of 1 for denied requests.
func (d Decision) RetryAfterSeconds() int64 {
	if d.Allowed {
		return 0
	}
	return max(int64(math.Ceil(d.RetryAfter.Seconds())), 1)
}
