package vision

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds retries of transient provider failures.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is two retries starting at half a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, InitialInterval: 500 * time.Millisecond, MaxInterval: 5 * time.Second}
}

// newBackOff builds a jittered exponential backoff capped at MaxRetries.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	if p.MaxRetries <= 0 {
		return &backoff.StopBackOff{}
	}
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.RandomizationFactor = 0.5
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithMaxRetries(eb, uint64(p.MaxRetries))
}
