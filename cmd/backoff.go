package cmd

import (
	"math"
	"math/rand"
	"time"
)

// backoff computes exponential delays between launch retries when the
// thread budget is full.
type backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is the fraction of the delay randomly added or removed.
	Jitter float64
}

var launchBackoff = backoff{
	Initial:    50 * time.Microsecond,
	Max:        5 * time.Millisecond,
	Multiplier: 2,
	Jitter:     0.2,
}

// Delay returns the wait before retry number attempt, starting at 0.
func (b backoff) Delay(attempt int) time.Duration {
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	factor := math.Pow(multiplier, float64(attempt))
	delay := time.Duration(float64(b.Initial) * factor)
	if delay > b.Max || delay <= 0 {
		delay = b.Max
	}
	return b.jitter(delay)
}

func (b backoff) jitter(delay time.Duration) time.Duration {
	if b.Jitter <= 0 {
		return delay
	}
	offset := (rand.Float64()*2 - 1) * float64(delay) * b.Jitter
	jittered := time.Duration(float64(delay) + offset)
	if jittered < b.Initial {
		return b.Initial
	}
	return jittered
}
