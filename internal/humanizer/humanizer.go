// Package humanizer injects randomized delays, shuffled orderings and
// occasional long pauses so the bot's action cadence does not look
// mechanically regular.
package humanizer

import (
	"math"
	"math/rand"
)

// Range is a (low, high) second bound used by Wait and CycleDelay.
type Range struct {
	Low, High float64
}

// Config holds the tunable parameters for a Humanizer instance.
type Config struct {
	JitterFactor    float64 // multiplicative jitter, e.g. 0.15 = +/-15%
	LongPauseChance float64 // probability of substituting a long pause, e.g. 0.05
	LongPause       Range   // range to draw from when a long pause fires
}

// Humanizer draws randomized delays and orderings. It is not safe for
// concurrent use from multiple goroutines -- callers invoke it only from
// the single orchestrator/pipeline goroutine, matching the cooperative
// single-scheduler model.
type Humanizer struct {
	cfg Config
	rnd *rand.Rand
}

// New constructs a Humanizer with the given config, seeded from the
// process-global random source.
func New(cfg Config) *Humanizer {
	return &Humanizer{cfg: cfg, rnd: rand.New(rand.NewSource(rand.Int63()))}
}

// Wait draws a delay in seconds for the named action range r. The base
// draw is Gaussian, centered on the midpoint of r with stddev =
// (high-low)/4, then scaled by a uniform multiplicative jitter of
// +/-JitterFactor, then clamped to [low*0.5, high*1.5]. With probability
// LongPauseChance the whole draw is replaced by a uniform sample from
// LongPause instead.
func (h *Humanizer) Wait(r Range) float64 {
	if h.rnd.Float64() < h.cfg.LongPauseChance {
		return h.uniform(h.cfg.LongPause.Low, h.cfg.LongPause.High)
	}

	mean := (r.Low + r.High) / 2
	stddev := (r.High - r.Low) / 4
	draw := h.rnd.NormFloat64()*stddev + mean

	jitter := 1 + h.cfg.JitterFactor*h.uniform(-1, 1)
	draw *= jitter

	lo := r.Low * 0.5
	hi := r.High * 1.5
	return clamp(draw, lo, hi)
}

// ShortWait draws a short intra-action pacing delay uniform in [0.3, 1.2]
// seconds.
func (h *Humanizer) ShortWait() float64 {
	return h.uniform(0.3, 1.2)
}

// CycleDelay draws a uniform delay in [low, high] seconds, used for
// active/inactive-hours cycle pacing and wake-up jitter.
func (h *Humanizer) CycleDelay(low, high float64) float64 {
	return h.uniform(low, high)
}

// Shuffle returns a freshly permuted copy of ids. The input slice is not
// mutated.
func Shuffle[T any](rnd *rand.Rand, ids []T) []T {
	out := make([]T, len(ids))
	copy(out, ids)
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Shuffle is the instance-bound convenience wrapper over the package-level
// generic Shuffle, using this Humanizer's own random source.
func (h *Humanizer) Shuffle(ids []int) []int {
	return Shuffle(h.rnd, ids)
}

func (h *Humanizer) uniform(low, high float64) float64 {
	if high <= low {
		return low
	}
	return low + h.rnd.Float64()*(high-low)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
