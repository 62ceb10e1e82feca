package engine

import (
	"gonum.org/v1/gonum/stat"

	"github.com/talgya/antpheromones/internal/agents"
	"github.com/talgya/antpheromones/internal/world"
)

// rollingWindow is the number of ticks in the rolling mean distance.
const rollingWindow = 10

// Stats is the aggregate snapshot published after every tick.
type Stats struct {
	Tick               uint64  `json:"tick"`
	Population         int     `json:"population"`
	Deaths             int     `json:"deaths"`
	Births             int     `json:"births"`
	Shortfall          int     `json:"shortfall"`
	AvgX               float64 `json:"avg_x"`
	AvgDistance        float64 `json:"avg_distance"`
	RollingAvgDistance float64 `json:"rolling_avg_distance"`
	AvgProbRandMove    float64 `json:"avg_prob_rand_move"`
	AvgProbDieCenter   float64 `json:"avg_prob_die_center"`
	TotalPheromone     float64 `json:"total_pheromone"`
	AvgNeighbors1      float64 `json:"avg_neighbors_1"`
	AvgNeighbors2      float64 `json:"avg_neighbors_2"`

	RandomMoves   int `json:"random_moves"`
	GradientMoves int `json:"gradient_moves"`
	JitterMoves   int `json:"jitter_moves"`
	Blocked       int `json:"blocked"`
	Idle          int `json:"idle"`
}

type tickCounts struct {
	deaths    int
	births    int
	shortfall int
	actions   map[agents.Action]int
}

// rollingMean keeps the last n samples.
type rollingMean struct {
	n       int
	samples []float64
}

func newRollingMean(n int) *rollingMean {
	return &rollingMean{n: n, samples: make([]float64, 0, n)}
}

func (r *rollingMean) Add(v float64) float64 {
	if len(r.samples) == r.n {
		copy(r.samples, r.samples[1:])
		r.samples = r.samples[:r.n-1]
	}
	r.samples = append(r.samples, v)
	return stat.Mean(r.samples, nil)
}

// computeStats measures the current state. Averages are zero for an empty
// population. The caller holds the write lock.
func (s *Simulation) computeStats(c tickCounts) Stats {
	ants := s.Population.Ants
	st := Stats{
		Tick:           s.LastTick,
		Population:     len(ants),
		Deaths:         c.deaths,
		Births:         c.births,
		Shortfall:      c.shortfall,
		TotalPheromone: s.Field.Total(),
		RandomMoves:    c.actions[agents.ActionRandomMove],
		GradientMoves:  c.actions[agents.ActionGradientMove],
		JitterMoves:    c.actions[agents.ActionJitterMove],
		Blocked:        c.actions[agents.ActionRandomBlocked],
		Idle:           c.actions[agents.ActionIdle],
	}

	if n := len(ants); n > 0 {
		xs := make([]float64, n)
		dist := make([]float64, n)
		prm := make([]float64, n)
		pdc := make([]float64, n)
		nb1 := make([]float64, n)
		nb2 := make([]float64, n)
		for i, a := range ants {
			xs[i] = float64(a.Position.X)
			dist[i] = world.Distance(a.Position, s.Source)
			prm[i] = a.ProbRandMove
			pdc[i] = a.ProbDieCenter
			nb1[i] = float64(s.Grid.CountAntsWithin(a.Position, 1))
			nb2[i] = float64(s.Grid.CountAntsWithin(a.Position, 2))
		}
		st.AvgX = stat.Mean(xs, nil)
		st.AvgDistance = stat.Mean(dist, nil)
		st.AvgProbRandMove = stat.Mean(prm, nil)
		st.AvgProbDieCenter = stat.Mean(pdc, nil)
		st.AvgNeighbors1 = stat.Mean(nb1, nil)
		st.AvgNeighbors2 = stat.Mean(nb2, nil)
	}
	st.RollingAvgDistance = s.window.Add(st.AvgDistance)
	return st
}
