package engine

import (
	"sort"

	"github.com/talgya/antpheromones/internal/agents"
)

// Selection holds the breeding parameters. Offspring traits are perturbed
// with the birth standard deviations; the MutSD values are only reported when
// a mutation falls back.
type Selection struct {
	TournamentSize     int
	BestWinsProb       float64
	ProbDieCenterMutSD float64
	ProbRandMoveMutSD  float64
}

// SelectParent runs one tournament. Candidates are drawn uniformly with
// replacement, ordered by ascending probDieCenter (lower is fitter), and each
// in turn wins with probability BestWinsProb. If none wins, the least fit
// candidate is chosen.
func (p *Population) SelectParent() (*agents.Ant, error) {
	if len(p.Ants) == 0 {
		return nil, ErrPopulationEmpty
	}
	size := p.selection.TournamentSize
	if size < 1 {
		size = 1
	}

	candidates := make([]*agents.Ant, size)
	last := len(p.Ants) - 1
	for i := range candidates {
		candidates[i] = p.Ants[p.rng.IntRange(0, last)]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ProbDieCenter < candidates[j].ProbDieCenter
	})

	for _, c := range candidates {
		if p.rng.FloatRange(0, 1) < p.selection.BestWinsProb {
			return c, nil
		}
	}
	return candidates[len(candidates)-1], nil
}

// Mutate perturbs value with N(0, sd) noise, redrawing until the result lies
// in [0,1]. The redraw loop is bounded by agents.MaxUnitTrials; on exhaustion
// it returns 1.0 and false.
func (p *Population) Mutate(value, sd float64) (float64, bool) {
	return agents.SampleUnit(p.rng, value, sd)
}
