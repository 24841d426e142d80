package workflow

import (
	"math/rand"
	"time"
)

const (
	retryBaseDelay = 30 * time.Second
	retryMaxDelay  = 15 * time.Minute
	retryJitter    = 0.2
)

// retryDelay returns the backoff before the given attempt (zero-based) may
// run again: base * 2^attempt, capped, with +/-20% jitter so a burst of
// failures from one upstream does not come back as a synchronized burst of
// retries.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := retryBaseDelay
	for i := 0; i < attempt && delay < retryMaxDelay; i++ {
		delay *= 2
	}
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	jitter := 1 + retryJitter*(2*rand.Float64()-1)
	return time.Duration(float64(delay) * jitter)
}
