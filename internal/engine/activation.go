package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/talgya/antpheromones/internal/agents"
)

// ActivationOrder selects how ants are visited within a tick.
type ActivationOrder uint8

const (
	ActivationFixed                    ActivationOrder = 0
	ActivationRandomWithReplacement    ActivationOrder = 1
	ActivationRandomWithoutReplacement ActivationOrder = 2
)

// ErrUnknownActivationOrder is returned for names or codes outside the enumerated set.
var ErrUnknownActivationOrder = errors.New("unknown activation order")

var activationNames = map[ActivationOrder]string{
	ActivationFixed:                    "fixed",
	ActivationRandomWithReplacement:    "random_with_replacement",
	ActivationRandomWithoutReplacement: "random_without_replacement",
}

func (o ActivationOrder) String() string {
	if n, ok := activationNames[o]; ok {
		return n
	}
	return fmt.Sprintf("ActivationOrder(%d)", o)
}

// ParseActivationOrder accepts a name ("fixed", "rwr", "random_with_replacement", ...)
// or an integer code 0..2.
func ParseActivationOrder(s string) (ActivationOrder, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch s {
	case "fixed":
		return ActivationFixed, nil
	case "rwr", "random_with_replacement":
		return ActivationRandomWithReplacement, nil
	case "rwor", "random_without_replacement":
		return ActivationRandomWithoutReplacement, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return ActivationOrderFromCode(n)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownActivationOrder, s)
}

// ActivationOrderFromCode maps the integer codes 0, 1 and 2.
func ActivationOrderFromCode(n int) (ActivationOrder, error) {
	switch n {
	case 0, 1, 2:
		return ActivationOrder(n), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownActivationOrder, n)
}

// ActivationResult counts what happened during one activation pass.
type ActivationResult struct {
	Activations int
	Deaths      int
	Actions     map[agents.Action]int
}

func (r *ActivationResult) record(out agents.Outcome) {
	r.Activations++
	r.Actions[out.Action]++
	if !out.Alive {
		r.Deaths++
	}
}

// Activate steps ants according to order. Dead ants are removed from the grid
// and from the population as soon as they die.
func (p *Population) Activate(order ActivationOrder, env *agents.Env) (ActivationResult, error) {
	res := ActivationResult{Actions: make(map[agents.Action]int)}

	switch order {
	case ActivationFixed:
		for i := 0; i < len(p.Ants); {
			out := agents.Step(p.Ants[i], env)
			res.record(out)
			if !out.Alive {
				// The next ant has shifted into slot i.
				p.Remove(i)
				continue
			}
			i++
		}

	case ActivationRandomWithReplacement:
		n := len(p.Ants)
		for k := 0; k < n && len(p.Ants) > 0; k++ {
			i := p.rng.IntRange(0, len(p.Ants)-1)
			out := agents.Step(p.Ants[i], env)
			res.record(out)
			if !out.Alive {
				p.Remove(i)
			}
		}

	case ActivationRandomWithoutReplacement:
		p.rng.Shuffle(len(p.Ants), func(i, j int) {
			p.Ants[i], p.Ants[j] = p.Ants[j], p.Ants[i]
		})
		survivors := p.Ants[:0]
		for _, a := range p.Ants {
			out := agents.Step(a, env)
			res.record(out)
			if !out.Alive {
				p.bury(a)
				continue
			}
			survivors = append(survivors, a)
		}
		clear(p.Ants[len(survivors):])
		p.Ants = survivors

	default:
		return res, fmt.Errorf("%w: %d", ErrUnknownActivationOrder, order)
	}
	return res, nil
}
