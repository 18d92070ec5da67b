package jobs

import (
	"math"
	"time"
)

// backoff is the wait after the given number of attempts: base * 2^(attempts-1), capped.
func backoff(attempts int, base, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	factor := math.Pow(2, float64(attempts-1))
	d := time.Duration(factor * float64(base))
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}
