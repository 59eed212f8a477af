package session

import (
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns the delay before reconnect attempt n (1-based):
// InitialDelay·Multiplier^(n-1), capped at MaxDelay. With Jitter set and a
// non-nil rng the delay is scaled into [0.5, 1.5) of that value.
func NextBackoffDelay(cfg BackoffConfig, n int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if n < 1 {
		n = 1
	}
	mult := math.Max(cfg.Multiplier, 1)
	delay := float64(cfg.InitialDelay) * math.Pow(mult, float64(n-1))
	if limit := float64(cfg.MaxDelay); limit > 0 && delay > limit {
		delay = limit
	}
	if cfg.Jitter && rng != nil {
		delay *= 0.5 + rng.Float64()
	}
	return time.Duration(delay)
}

// redial counts consecutive failed connects for one Client.
type redial struct {
	cfg     BackoffConfig
	rng     *rand.Rand
	attempt int
}

func newRedial(cfg BackoffConfig) *redial {
	return &redial{cfg: cfg, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// established restarts the schedule after a session that got past the dial.
func (r *redial) established() {
	r.attempt = 0
}

func (r *redial) next() (int, time.Duration) {
	r.attempt++
	return r.attempt, NextBackoffDelay(r.cfg, r.attempt, r.rng)
}
