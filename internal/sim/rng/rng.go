// Package rng wraps the single seeded random source of a simulation.
// Every stochastic choice draws from one *Rand so a seed reproduces a run.
package rng

import "math/rand"

type Rand struct {
	*rand.Rand
}

func New(seed int64) *Rand {
	return &Rand{Rand: rand.New(rand.NewSource(seed))}
}

// BetweenClosed returns a uniform int in [lo, hi]. Swapped bounds are accepted.
func (r *Rand) BetweenClosed(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Chance reports true with probability p.
func (r *Rand) Chance(p float64) bool {
	return r.Float64() < p
}

// Percent reports true with probability pct/100.
func (r *Rand) Percent(pct int) bool {
	return r.Intn(100) < pct
}

// Pick returns a uniformly chosen index in [0, n), or -1 for n <= 0.
func (r *Rand) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return r.Intn(n)
}
