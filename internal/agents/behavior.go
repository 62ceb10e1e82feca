// Ant decision policy. Branches are evaluated in a fixed order and every
// random draw goes through the shared source, so the draw sequence is part of
// the model's observable behaviour.
package agents

import (
	"github.com/talgya/antpheromones/internal/entropy"
	"github.com/talgya/antpheromones/internal/world"
)

// PheromoneReader exposes the published pheromone level of a cell.
type PheromoneReader interface {
	ValueAt(x, y int) float64
}

// Env is everything an ant may consult during its step.
type Env struct {
	Grid        *world.Grid
	Pheromone   PheromoneReader
	Source      world.Coord
	MaxDistance float64 // distance from (0,0) to Source
	MoveMethod  MoveMethod
	Rand        *entropy.Source
}

// DeathProbability is probDieCenter scaled linearly from full strength at the
// source to zero at maxDistance and beyond.
func DeathProbability(probDieCenter, distance, maxDistance float64) float64 {
	if maxDistance <= 0 {
		return probDieCenter
	}
	falloff := 1 - distance/maxDistance
	if falloff < 0 {
		falloff = 0
	}
	if falloff > 1 {
		falloff = 1
	}
	return probDieCenter * falloff
}

// Step runs one activation of a. On death the ant's cell is left for the
// caller to clear; on a move the grid is updated in place.
func Step(a *Ant, env *Env) Outcome {
	from := a.Position
	out := Outcome{Alive: true, From: from, To: from}

	// 1. Death check.
	d := world.Distance(from, env.Source)
	if env.Rand.Float() < DeathProbability(a.ProbDieCenter, d, env.MaxDistance) {
		out.Alive = false
		out.Action = ActionDied
		return out
	}

	// 2. Random move.
	if env.Rand.Float() < a.ProbRandMove {
		target, ok := pickOpenNeighbor(from, env)
		if !ok {
			out.Action = ActionRandomBlocked
			return out
		}
		moveTo(a, target, env.Grid)
		out.Action = ActionRandomMove
		out.To = target
		return out
	}

	// 3. Gradient move.
	if target, ok := bestGradientNeighbor(from, env); ok {
		moveTo(a, target, env.Grid)
		out.Action = ActionGradientMove
		out.To = target
		return out
	}

	// 4. Jitter fallback: one candidate, no retry.
	dx := env.Rand.IntRange(-1, 1)
	dy := env.Rand.IntRange(-1, 1)
	target := env.Grid.Wrap(from.X+dx, from.Y+dy)
	if env.Grid.IsFree(target) {
		moveTo(a, target, env.Grid)
		out.Action = ActionJitterMove
		out.To = target
		return out
	}
	out.Action = ActionIdle
	return out
}

func openNeighbors(c world.Coord, g *world.Grid) []world.Coord {
	nb := g.MooreNeighbors(c)
	open := make([]world.Coord, 0, len(nb))
	for _, n := range nb {
		if g.IsFree(n) {
			open = append(open, n)
		}
	}
	return open
}

func pickOpenNeighbor(c world.Coord, env *Env) (world.Coord, bool) {
	open := openNeighbors(c, env.Grid)
	if len(open) == 0 {
		return world.Coord{}, false
	}
	switch env.MoveMethod {
	case MoveFirstOpen:
		return open[0], true
	default:
		return open[env.Rand.IntRange(0, len(open)-1)], true
	}
}

// bestGradientNeighbor returns the open neighbour with the highest level if it
// strictly exceeds the current cell. Ties keep the first in enumeration order.
func bestGradientNeighbor(c world.Coord, env *Env) (world.Coord, bool) {
	best := env.Pheromone.ValueAt(c.X, c.Y)
	var target world.Coord
	found := false
	for _, n := range openNeighbors(c, env.Grid) {
		if v := env.Pheromone.ValueAt(n.X, n.Y); v > best {
			best = v
			target = n
			found = true
		}
	}
	return target, found
}

func moveTo(a *Ant, to world.Coord, g *world.Grid) {
	g.Move(a.Position, to, a.Occupant())
	a.Position = to
}
