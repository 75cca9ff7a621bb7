package pubchem

import (
	"math/rand/v2"
	"time"
)

const (
	// DefaultBackoffBase is the first retry delay before jitter.
	DefaultBackoffBase = time.Second

	maxBackoff = 30 * time.Second
)

// Backoff returns the delay before retry attempt n (0-indexed):
// base doubled per attempt, capped at 30s, plus up to 50% jitter.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := maxBackoff
	if attempt < 16 {
		d = min(base<<uint(max(attempt, 0)), maxBackoff)
	}
	half := int64(d) / 2
	if half <= 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(half))
}
