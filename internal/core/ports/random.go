package ports

import "time"

// RandomSource is the single CSPRNG-backed injection point for every
// probabilistic decision in the Coordinator: split ratios, shuffle order,
// obfuscation jitter, hop count, and delay durations. Per spec §4.4,
// no value may ever be derived from swap inputs (amounts or addresses) —
// only from this source — to avoid a timing oracle.
type RandomSource interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// UniformFloat returns a uniform value in [lo, hi).
	UniformFloat(lo, hi float64) float64
	// UniformDuration returns a uniform duration in [lo, hi).
	UniformDuration(lo, hi time.Duration) time.Duration
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
	// Shuffle permutes a slice of length n in place via swap(i, j), using
	// the Fisher-Yates algorithm (required by §4.4's split plan).
	Shuffle(n int, swap func(i, j int))
}
