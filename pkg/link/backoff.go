package link

import (
	"math/rand"
	"time"
)

// defaultJitter spreads retry delays by ±20% so a fleet of devices does not
// reconnect in lockstep after a server restart.
const defaultJitter = 0.2

// Backoff produces truncated exponential retry delays with jitter. The
// zero value is not usable; set Base and Cap.
type Backoff struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter float64

	// Rand returns a value in [0, 1). Defaults to math/rand.
	Rand func() float64

	cur time.Duration
}

// Next returns the delay before the next attempt: Base on the first call
// after a Reset, then doubling up to Cap, each jittered by ±Jitter.
func (b *Backoff) Next() time.Duration {
	if b.cur <= 0 {
		b.cur = b.Base
	} else {
		b.cur *= 2
		if b.cur > b.Cap {
			b.cur = b.Cap
		}
	}
	return b.jittered(b.cur)
}

// Reset returns the policy to its initial delay. Called on every channel
// up.
func (b *Backoff) Reset() {
	b.cur = 0
}

func (b *Backoff) jittered(d time.Duration) time.Duration {
	if b.Jitter <= 0 {
		return d
	}
	f := rand.Float64
	if b.Rand != nil {
		f = b.Rand
	}
	spread := 1 + b.Jitter*(2*f()-1)
	return time.Duration(float64(d) * spread)
}
