// Ant spawning: id issuance and initial trait draws.
package agents

import (
	"log/slog"

	"github.com/talgya/antpheromones/internal/entropy"
)

// MaxUnitTrials bounds every rejection-sampling loop that draws a value into [0,1].
const MaxUnitTrials = 1024

// TraitConfig describes the distributions new ants draw from.
type TraitConfig struct {
	MaxWeight         float64
	ProbRandMoveMean  float64
	ProbRandMoveSD    float64
	ProbDieCenterMean float64
	ProbDieCenterSD   float64
}

// Spawner creates ants and owns the id counter.
type Spawner struct {
	cfg    TraitConfig
	nextID AntID
}

// NewSpawner creates a spawner whose first ant gets id 0.
func NewSpawner(cfg TraitConfig) *Spawner {
	return &Spawner{cfg: cfg}
}

// Config returns the trait distributions.
func (s *Spawner) Config() TraitConfig {
	return s.cfg
}

// SetConfig replaces the trait distributions for subsequent spawns.
func (s *Spawner) SetConfig(cfg TraitConfig) {
	s.cfg = cfg
}

// ResetIDs restarts id issuance at 0.
func (s *Spawner) ResetIDs() {
	s.nextID = 0
}

// NextID returns the id the next ant will receive.
func (s *Spawner) NextID() AntID {
	return s.nextID
}

// Spawn creates an unplaced ant. Draw order: weight, probRandMove, probDieCenter.
func (s *Spawner) Spawn(src *entropy.Source) *Ant {
	id := s.nextID
	s.nextID++

	a := &Ant{
		ID:     id,
		Weight: src.FloatRange(0, 1) * s.cfg.MaxWeight,
	}
	a.ProbRandMove = s.unitTrait(src, s.cfg.ProbRandMoveMean, s.cfg.ProbRandMoveSD, "prob_rand_move")
	a.ProbDieCenter = s.unitTrait(src, s.cfg.ProbDieCenterMean, s.cfg.ProbDieCenterSD, "prob_die_center")
	return a
}

// ResampleProbRandMove redraws a's probRandMove from the configured distribution.
func (s *Spawner) ResampleProbRandMove(src *entropy.Source, a *Ant) {
	a.ProbRandMove = s.unitTrait(src, s.cfg.ProbRandMoveMean, s.cfg.ProbRandMoveSD, "prob_rand_move")
}

func (s *Spawner) unitTrait(src *entropy.Source, mean, sd float64, name string) float64 {
	v, ok := SampleUnit(src, mean, sd)
	if !ok {
		slog.Warn("initial trait draw out of range, using fallback",
			"trait", name, "mean", mean, "sd", sd, "fallback", v)
	}
	return v
}

// SampleUnit draws mean + N(0, sd) until the result lies in [0,1], at most
// MaxUnitTrials times. On exhaustion it returns 1.0 and false.
func SampleUnit(src *entropy.Source, mean, sd float64) (float64, bool) {
	for trial := 0; trial < MaxUnitTrials; trial++ {
		v := src.Normal(mean, sd)
		if v >= 0 && v <= 1 {
			return v, true
		}
	}
	return 1.0, false
}
