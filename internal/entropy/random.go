// Package entropy provides the single seeded random source shared by every
// stochastic subsystem of the simulation. Draw order across subsystems is part
// of the model: a run is reproducible only while every draw goes through one Source.
package entropy

import (
	"math/rand"
)

// Source wraps one seeded generator with the samplers the model needs.
// It is not safe for concurrent use; the simulation is single-threaded.
type Source struct {
	seed int64
	rng  *rand.Rand
}

// New creates a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed the source was created (or last reseeded) with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Reseed restarts the stream from seed.
func (s *Source) Reseed(seed int64) {
	s.seed = seed
	s.rng.Seed(seed)
}

// Float returns a uniform float64 in [0, 1).
func (s *Source) Float() float64 {
	return s.rng.Float64()
}

// FloatRange returns a uniform float64 in [lo, hi).
func (s *Source) FloatRange(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// IntRange returns a uniform int in [lo, hi], both ends inclusive.
// If hi < lo it returns lo without consuming a draw.
func (s *Source) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Normal returns a Gaussian sample with the given mean and standard deviation.
func (s *Source) Normal(mean, sd float64) float64 {
	return mean + s.rng.NormFloat64()*sd
}

// Shuffle permutes n elements uniformly using swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}
