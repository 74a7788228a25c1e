// File: pkg/purge/policy.go
package purge

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MaxBatchSize is the per-call limit of the bulk delete APIs
const MaxBatchSize = 1000

// Policy bounds how long a prefix is retried before the purger gives up on it
type Policy struct {
	// Candidates per delete call, clamped to MaxBatchSize
	BatchSize int
	// Listing/deletion rounds allowed per prefix before giving up
	MaxRounds int
	// Wait before the first re-listing, grown by Multiplier after every round up to MaxBackoff
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Randomization factor applied to each wait (0 disables jitter)
	Jitter float64
	// Wall-clock budget per prefix; zero means unbounded
	MaxElapsed time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		BatchSize:      MaxBatchSize,
		MaxRounds:      10,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		Jitter:         0.5,
	}
}

func (p Policy) normalized() Policy {
	if p.BatchSize <= 0 || p.BatchSize > MaxBatchSize {
		p.BatchSize = MaxBatchSize
	}
	if p.MaxRounds <= 0 {
		p.MaxRounds = DefaultPolicy().MaxRounds
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	if p.MaxElapsed < 0 {
		p.MaxElapsed = 0
	}
	return p
}

// Builds the backoff that spaces the rounds of a single prefix
func (p Policy) newBackOff(clock backoff.Clock) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = p.MaxElapsed
	if clock != nil {
		b.Clock = clock
	}
	b.Reset()
	return b
}
