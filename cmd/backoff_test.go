package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Delay(t *testing.T) {
	b := backoff{Initial: time.Millisecond, Max: 10 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, time.Millisecond, b.Delay(0))
	assert.Equal(t, 2*time.Millisecond, b.Delay(1))
	assert.Equal(t, 8*time.Millisecond, b.Delay(3))
	assert.Equal(t, 10*time.Millisecond, b.Delay(4), "capped at Max")
	assert.Equal(t, 10*time.Millisecond, b.Delay(500), "overflow capped at Max")
}

func TestBackoff_DefaultMultiplier(t *testing.T) {
	b := backoff{Initial: time.Millisecond, Max: time.Second}
	assert.Equal(t, 4*time.Millisecond, b.Delay(2))
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	b := backoff{Initial: time.Millisecond, Max: 100 * time.Millisecond, Multiplier: 2, Jitter: 0.25}
	for i := 0; i < 100; i++ {
		d := b.Delay(3)
		assert.GreaterOrEqual(t, d, 6*time.Millisecond)
		assert.LessOrEqual(t, d, 10*time.Millisecond)
	}
}
