// Population dynamics: seeding, replenishment by tournament-selected parents,
// and death bookkeeping. The population is the only place ants are created or removed.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/antpheromones/internal/agents"
	"github.com/talgya/antpheromones/internal/entropy"
	"github.com/talgya/antpheromones/internal/world"
)

// MaxEdgeTrials bounds the search for a free edge cell for one offspring.
const MaxEdgeTrials = 1024

var (
	// ErrNoEdgeCell is returned when no free edge cell was found in MaxEdgeTrials draws.
	ErrNoEdgeCell = errors.New("no free edge cell found")
	// ErrPopulationEmpty is returned when a parent is requested from an empty population.
	ErrPopulationEmpty = errors.New("population is empty")
	// ErrWorldFull is returned when an initial ant cannot be placed.
	ErrWorldFull = errors.New("world too full")
)

// Population is the ordered collection of live ants. Order matters for the
// fixed activation policy.
type Population struct {
	Ants   []*agents.Ant
	Target int

	grid      *world.Grid
	rng       *entropy.Source
	spawner   *agents.Spawner
	selection Selection

	deaths int
}

// NewPopulation creates an empty population bound to grid and rng. The
// population owns the ant id counter, so the first ant it creates gets id 0.
func NewPopulation(target int, grid *world.Grid, rng *entropy.Source, traits agents.TraitConfig, sel Selection) *Population {
	return &Population{
		Ants:      make([]*agents.Ant, 0, target),
		Target:    target,
		grid:      grid,
		rng:       rng,
		spawner:   agents.NewSpawner(traits),
		selection: sel,
	}
}

// Traits returns the distributions new ants draw from.
func (p *Population) Traits() agents.TraitConfig {
	return p.spawner.Config()
}

// SetTraits replaces the trait distributions for subsequent births.
func (p *Population) SetTraits(cfg agents.TraitConfig) {
	p.spawner.SetConfig(cfg)
}

// NextID returns the id the next ant will receive.
func (p *Population) NextID() agents.AntID {
	return p.spawner.NextID()
}

// ResampleProbRandMove redraws every live ant's probRandMove from the
// initial distribution.
func (p *Population) ResampleProbRandMove() {
	for _, a := range p.Ants {
		p.spawner.ResampleProbRandMove(p.rng, a)
	}
}

// Len returns the number of live ants.
func (p *Population) Len() int {
	return len(p.Ants)
}

// Selection returns the breeding parameters.
func (p *Population) Selection() Selection {
	return p.selection
}

// SetSelection replaces the breeding parameters.
func (p *Population) SetSelection(sel Selection) {
	p.selection = sel
}

// Seed creates n ants at random free cells. Ants that cannot be placed are
// skipped; the number placed is returned.
func (p *Population) Seed(n int) (int, error) {
	placed := 0
	var err error
	for i := 0; i < n; i++ {
		a := p.spawner.Spawn(p.rng)
		c, ok := p.grid.RandomUnoccupied(p.rng)
		if !ok {
			slog.Warn("world too full for new ant", "placed", placed, "requested", n)
			err = fmt.Errorf("seed ant %d: %w", a.ID, ErrWorldFull)
			continue
		}
		a.Position = c
		p.grid.Place(c, a.Occupant())
		p.Ants = append(p.Ants, a)
		placed++
	}
	return placed, err
}

// ReplenishResult summarises one replenishment pass.
type ReplenishResult struct {
	Born      int
	Shortfall int      // ants still missing after the pass
	Warnings  []string // non-fatal anomalies
	Err       error    // ErrNoEdgeCell when the pass aborted early
}

// Replenish tops the population up to Target. Each offspring is spawned first
// (consuming the same draws as a seeded ant), then a parent is chosen, the two
// traits are mutated with the birth standard deviations, and the offspring is
// placed on an edge. A placement failure aborts the pass.
func (p *Population) Replenish() ReplenishResult {
	var res ReplenishResult
	traits := p.spawner.Config()
	for len(p.Ants) < p.Target {
		child := p.spawner.Spawn(p.rng)

		parent, err := p.SelectParent()
		if err == nil {
			pdc, ok := p.Mutate(parent.ProbDieCenter, traits.ProbDieCenterSD)
			if !ok {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"mutation of prob_die_center out of range after %d trials (parent=%.4f, mut_sd=%.4f), clamped to 1",
					agents.MaxUnitTrials, parent.ProbDieCenter, p.selection.ProbDieCenterMutSD))
			}
			child.ProbDieCenter = pdc

			prm, ok := p.Mutate(parent.ProbRandMove, traits.ProbRandMoveSD)
			if !ok {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"mutation of prob_rand_move out of range after %d trials (parent=%.4f, mut_sd=%.4f), clamped to 1",
					agents.MaxUnitTrials, parent.ProbRandMove, p.selection.ProbRandMoveMutSD))
			}
			child.ProbRandMove = prm
		}

		if err := p.PlaceOnEdge(child); err != nil {
			res.Err = err
			res.Warnings = append(res.Warnings, fmt.Sprintf("offspring %d not placed: %v", child.ID, err))
			break
		}
		p.Ants = append(p.Ants, child)
		res.Born++
	}
	res.Shortfall = p.Target - len(p.Ants)
	if res.Shortfall < 0 {
		res.Shortfall = 0
	}
	for _, w := range res.Warnings {
		slog.Warn("replenish", "warning", w)
	}
	return res
}

// PlaceOnEdge flips one coin to choose the top edge (y=0) or the side edge
// (x=0), then draws positions along that edge until a free cell turns up.
func (p *Population) PlaceOnEdge(a *agents.Ant) error {
	top := p.rng.FloatRange(0, 1) > 0.5

	for trial := 0; trial < MaxEdgeTrials; trial++ {
		var c world.Coord
		if top {
			c.X = p.rng.IntRange(0, p.grid.SizeX-1)
		} else {
			c.Y = p.rng.IntRange(0, p.grid.SizeY-1)
		}
		if p.grid.IsFree(c) {
			a.Position = c
			p.grid.Place(c, a.Occupant())
			return nil
		}
	}
	return ErrNoEdgeCell
}

// Remove deletes the ant at index i, clears its cell, and counts a death.
func (p *Population) Remove(i int) {
	a := p.Ants[i]
	p.grid.Clear(a.Position)
	p.Ants = slices.Delete(p.Ants, i, i+1)
	p.deaths++
}

// bury clears a dead ant's cell and counts the death without touching the slice.
func (p *Population) bury(a *agents.Ant) {
	p.grid.Clear(a.Position)
	p.deaths++
}

// AgeAll increments the age of every live ant.
func (p *Population) AgeAll() {
	for _, a := range p.Ants {
		a.Age++
	}
}

// Deaths returns deaths counted since the last ResetDeaths.
func (p *Population) Deaths() int {
	return p.deaths
}

// ResetDeaths zeroes the death counter.
func (p *Population) ResetDeaths() {
	p.deaths = 0
}
