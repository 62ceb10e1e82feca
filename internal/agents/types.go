// Package agents provides the ant data model and its per-tick decision policy.
package agents

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/talgya/antpheromones/internal/world"
)

// AntID is a unique identifier for an ant. IDs increase monotonically and
// restart at 0 only when the world is reset.
type AntID uint64

// Ant is a mobile agent biased toward the pheromone source.
type Ant struct {
	ID       AntID       `json:"id"`
	Position world.Coord `json:"position"`
	Weight   float64     `json:"weight"` // cosmetic, drawn in [0, maxAntWeight)
	Age      uint64      `json:"age"`    // ticks survived

	// Heritable traits, both in [0,1].
	ProbRandMove  float64 `json:"prob_rand_move"`
	ProbDieCenter float64 `json:"prob_die_center"`
}

// Occupant returns the grid occupant value for the ant.
func (a *Ant) Occupant() world.Occupant {
	return world.AntOccupant(uint64(a.ID))
}

// MoveMethod selects how a random move picks its target among open neighbours.
type MoveMethod uint8

const (
	MoveRandomOpen MoveMethod = 0 // uniformly among open Moore neighbours
	MoveFirstOpen  MoveMethod = 1 // first open neighbour in enumeration order
)

func (m MoveMethod) String() string {
	switch m {
	case MoveRandomOpen:
		return "random_open"
	case MoveFirstOpen:
		return "first_open"
	default:
		return fmt.Sprintf("move_method(%d)", uint8(m))
	}
}

// ErrUnknownMoveMethod is returned for names or codes outside the enumerated set.
var ErrUnknownMoveMethod = errors.New("unknown random move method")

// ParseMoveMethod accepts a method name or its numeric code.
func ParseMoveMethod(s string) (MoveMethod, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "random_open", "random":
		return MoveRandomOpen, nil
	case "first_open", "first":
		return MoveFirstOpen, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return MoveMethodFromCode(n)
	}
	return 0, fmt.Errorf("%w %q (valid: random_open|0, first_open|1)", ErrUnknownMoveMethod, s)
}

// MoveMethodFromCode converts a numeric code.
func MoveMethodFromCode(n int) (MoveMethod, error) {
	switch n {
	case 0:
		return MoveRandomOpen, nil
	case 1:
		return MoveFirstOpen, nil
	}
	return 0, fmt.Errorf("%w code %d (valid: 0, 1)", ErrUnknownMoveMethod, n)
}

// Action records which branch of the decision policy fired.
type Action uint8

const (
	ActionDied Action = iota
	ActionRandomMove
	ActionRandomBlocked // random branch chosen but no open neighbour
	ActionGradientMove
	ActionJitterMove
	ActionIdle // jitter target was occupied
)

func (a Action) String() string {
	switch a {
	case ActionDied:
		return "died"
	case ActionRandomMove:
		return "random_move"
	case ActionRandomBlocked:
		return "random_blocked"
	case ActionGradientMove:
		return "gradient_move"
	case ActionJitterMove:
		return "jitter_move"
	case ActionIdle:
		return "idle"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Outcome is the result of one activation.
type Outcome struct {
	Alive  bool
	Action Action
	From   world.Coord
	To     world.Coord
}
