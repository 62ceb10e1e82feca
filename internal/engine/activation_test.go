package engine

import (
	"errors"
	"testing"

	"github.com/talgya/antpheromones/internal/agents"
	"github.com/talgya/antpheromones/internal/world"
)

type flatField struct{}

func (flatField) ValueAt(x, y int) float64 { return 0 }

// deadlyEnv makes death certain for any ant with probDieCenter 1 by
// disabling the distance falloff.
func deadlyEnv(p *Population) *agents.Env {
	return &agents.Env{
		Grid:        p.grid,
		Pheromone:   flatField{},
		Source:      world.Coord{X: 5, Y: 5},
		MaxDistance: 0,
		MoveMethod:  agents.MoveRandomOpen,
		Rand:        p.rng,
	}
}

func TestParseActivationOrder(t *testing.T) {
	tests := []struct {
		in   string
		want ActivationOrder
	}{
		{"fixed", ActivationFixed},
		{"0", ActivationFixed},
		{"RWR", ActivationRandomWithReplacement},
		{"1", ActivationRandomWithReplacement},
		{"random-without-replacement", ActivationRandomWithoutReplacement},
		{"2", ActivationRandomWithoutReplacement},
	}
	for _, tt := range tests {
		got, err := ParseActivationOrder(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseActivationOrder(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"3", "-1", "shuffled", ""} {
		if _, err := ParseActivationOrder(bad); !errors.Is(err, ErrUnknownActivationOrder) {
			t.Errorf("ParseActivationOrder(%q) err = %v", bad, err)
		}
	}
}

func TestActivateAllDie(t *testing.T) {
	for _, order := range []ActivationOrder{ActivationFixed, ActivationRandomWithReplacement, ActivationRandomWithoutReplacement} {
		t.Run(order.String(), func(t *testing.T) {
			p, g := newTestPopulation(10, 5, 2, Selection{})
			withTraits(p, 1, 1, 1, 1, 1)

			res, err := p.Activate(order, deadlyEnv(p))
			if err != nil {
				t.Fatalf("Activate: %v", err)
			}
			if res.Deaths != 5 || res.Activations != 5 || p.Deaths() != 5 {
				t.Fatalf("result %+v, population deaths %d", res, p.Deaths())
			}
			if p.Len() != 0 || g.Occupied() != 0 {
				t.Fatalf("len %d, occupied %d after all died", p.Len(), g.Occupied())
			}
		})
	}
}

func TestActivateFixedKeepsSurvivorOrder(t *testing.T) {
	p, _ := newTestPopulation(10, 6, 2, Selection{})
	withTraits(p, 1, 0, 1, 0, 1, 0)
	ids := []agents.AntID{p.Ants[1].ID, p.Ants[3].ID, p.Ants[5].ID}

	res, _ := p.Activate(ActivationFixed, deadlyEnv(p))
	if res.Activations != 6 || res.Deaths != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	for i, a := range p.Ants {
		if a.ID != ids[i] {
			t.Fatalf("survivor %d has id %d, want %d", i, a.ID, ids[i])
		}
	}
}

func TestActivateWithoutReplacementVisitsEachOnce(t *testing.T) {
	p, g := newTestPopulation(12, 20, 9, Selection{})
	withTraits(p, make([]float64, 20)...)

	res, err := p.Activate(ActivationRandomWithoutReplacement, deadlyEnv(p))
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if res.Activations != 20 || res.Deaths != 0 || p.Len() != 20 {
		t.Fatalf("result %+v, len %d", res, p.Len())
	}
	seen := make(map[agents.AntID]bool)
	for _, a := range p.Ants {
		if seen[a.ID] {
			t.Fatalf("ant %d appears twice", a.ID)
		}
		seen[a.ID] = true
		if g.At(a.Position) != a.Occupant() {
			t.Fatalf("ant %d lost its cell", a.ID)
		}
	}
}

func TestActivateWithReplacementDrawsStartSize(t *testing.T) {
	p, _ := newTestPopulation(12, 8, 9, Selection{})
	withTraits(p, make([]float64, 8)...)

	res, _ := p.Activate(ActivationRandomWithReplacement, deadlyEnv(p))
	if res.Activations != 8 || p.Len() != 8 {
		t.Fatalf("result %+v, len %d", res, p.Len())
	}
}

func TestActivateUnknownOrder(t *testing.T) {
	p, _ := newTestPopulation(5, 1, 1, Selection{})
	withTraits(p, 0)
	if _, err := p.Activate(ActivationOrder(9), deadlyEnv(p)); !errors.Is(err, ErrUnknownActivationOrder) {
		t.Fatalf("expected ErrUnknownActivationOrder, got %v", err)
	}
}
