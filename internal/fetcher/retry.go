package fetcher

import (
	"time"

	"github.com/nao1215/seocheck/internal/config"
)

// Backoff returns the delay before retry number n (1 for the first retry).
type Backoff func(n int) time.Duration

// NoBackoff retries immediately.
func NoBackoff() Backoff {
	return func(int) time.Duration { return 0 }
}

// ExponentialBackoff doubles base after every retry, capped at limit.
// A zero limit means no cap.
func ExponentialBackoff(base, limit time.Duration) Backoff {
	return func(n int) time.Duration {
		if base <= 0 || n < 1 {
			return 0
		}
		d := base
		for i := 1; i < n; i++ {
			d *= 2
			if limit > 0 && d >= limit {
				return limit
			}
		}
		if limit > 0 && d > limit {
			return limit
		}
		return d
	}
}

// RetryPolicy controls how often and how fast the fetcher retries.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// Backoff computes the delay between attempts. Nil means NoBackoff.
	Backoff Backoff
}

// DefaultRetryPolicy makes 4 attempts without delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: config.DefaultMaxAttempts,
		Backoff:     NoBackoff(),
	}
}

// PolicyFromConfig builds a policy from cfg.MaxAttempts and cfg.RetryBackoff.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	policy := RetryPolicy{MaxAttempts: cfg.MaxAttempts, Backoff: NoBackoff()}
	if cfg.RetryBackoff > 0 {
		policy.Backoff = ExponentialBackoff(cfg.RetryBackoff, cfg.Timeout)
	}
	return policy.normalized()
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = NoBackoff()
	}
	return p
}
