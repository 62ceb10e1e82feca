// Simulation ties together the grid, the pheromone field and the ant
// population, and advances them one tick at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/talgya/antpheromones/internal/agents"
	"github.com/talgya/antpheromones/internal/entropy"
	"github.com/talgya/antpheromones/internal/logging"
	"github.com/talgya/antpheromones/internal/pheromone"
	"github.com/talgya/antpheromones/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Params is the full set of model parameters.
type Params struct {
	Seed  int64
	SizeX int
	SizeY int

	NumAnts      int
	NumFoods     int
	MaxAntWeight float64

	ProbRandMoveMean   float64
	ProbRandMoveSD     float64
	ProbRandMoveMutSD  float64
	ProbDieCenterMean  float64
	ProbDieCenterSD    float64
	ProbDieCenterMutSD float64

	TournamentSize int
	BestWinsProb   float64

	DiffusionK   float64
	EvapRate     float64
	MaxPher      float64
	ExogRate     float64
	InitialSteps int

	// Background noise, as a fraction of MaxPher. Zero disables it.
	BackgroundNoise float64
	BackgroundScale float64

	ActivationOrder ActivationOrder
	MoveMethod      agents.MoveMethod
}

func (p Params) traits() agents.TraitConfig {
	return agents.TraitConfig{
		MaxWeight:         p.MaxAntWeight,
		ProbRandMoveMean:  p.ProbRandMoveMean,
		ProbRandMoveSD:    p.ProbRandMoveSD,
		ProbDieCenterMean: p.ProbDieCenterMean,
		ProbDieCenterSD:   p.ProbDieCenterSD,
	}
}

func (p Params) selection() Selection {
	return Selection{
		TournamentSize:     p.TournamentSize,
		BestWinsProb:       p.BestWinsProb,
		ProbDieCenterMutSD: p.ProbDieCenterMutSD,
		ProbRandMoveMutSD:  p.ProbRandMoveMutSD,
	}
}

// ErrBadWorldSize is returned by NewSimulation for a non-positive grid.
var ErrBadWorldSize = errors.New("world size must be positive")

// Event is a notable occurrence in the run. Seq increases by one per event
// for the life of the Simulation, across resets.
type Event struct {
	Seq         uint64 `json:"seq"`
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "replenish", "config", "capacity", "reset"
}

// Simulation holds the complete model state.
type Simulation struct {
	mu sync.RWMutex

	Params      Params
	Grid        *world.Grid
	Field       *pheromone.Field
	Population  *Population
	Foods       []world.Food
	Source      world.Coord
	MaxDistance float64
	LastTick    uint64
	Stats       Stats
	Events      []Event
	eventSeq    uint64

	rng    *entropy.Source
	window *rollingMean

	subMu       sync.Mutex
	subscribers map[int]chan Stats
	nextSubID   int
}

// NewSimulation builds a simulation and resets it to its initial state.
func NewSimulation(p Params) (*Simulation, error) {
	if p.SizeX <= 0 || p.SizeY <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadWorldSize, p.SizeX, p.SizeY)
	}
	s := &Simulation{
		Params:      p,
		rng:         entropy.New(p.Seed),
		subscribers: make(map[int]chan Stats),
	}
	s.Reset()
	return s, nil
}

// Reset rebuilds the world from Params: the random source is reseeded, ant
// ids restart at zero, the field is primed and warmed up, then foods and ants
// are placed.
func (s *Simulation) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.Params
	s.rng.Reseed(p.Seed)

	s.Grid = world.NewGrid(p.SizeX, p.SizeY)
	s.Field = pheromone.NewField(p.SizeX, p.SizeY, p.DiffusionK, p.EvapRate)
	s.Source = world.Coord{X: p.SizeX / 2, Y: p.SizeY / 2}
	s.MaxDistance = world.Distance(world.Coord{}, s.Source)
	s.LastTick = 0
	s.Events = nil
	s.window = newRollingMean(rollingWindow)

	if p.BackgroundNoise > 0 {
		s.Field.SeedBackground(p.Seed, p.BackgroundNoise*p.MaxPher, p.BackgroundScale)
	}
	s.Field.PutValueAt(s.Source.X, s.Source.Y, math.Min(2*p.MaxPher*p.ExogRate, p.MaxPher))
	s.Field.Update()
	for i := 0; i < p.InitialSteps; i++ {
		s.inject()
		s.Field.Diffuse()
		s.Field.Update()
	}

	s.Foods = s.Foods[:0]
	for i := 0; i < p.NumFoods; i++ {
		c, ok := s.Grid.RandomUnoccupied(s.rng)
		if !ok {
			slog.Warn("world too full for new food", "placed", len(s.Foods))
			s.addEvent("capacity", fmt.Sprintf("world too full for food %d", i))
			continue
		}
		f := world.Food{ID: uint64(i), Position: c}
		s.Grid.Place(c, world.FoodOccupant(f.ID))
		s.Foods = append(s.Foods, f)
	}

	s.Population = NewPopulation(p.NumAnts, s.Grid, s.rng, p.traits(), p.selection())
	if placed, err := s.Population.Seed(p.NumAnts); err != nil {
		s.addEvent("capacity", fmt.Sprintf("seeded %d of %d ants", placed, p.NumAnts))
	}

	s.Stats = s.computeStats(tickCounts{})
	s.addEvent("reset", fmt.Sprintf("world %dx%d, %d ants, %d foods, seed %d",
		p.SizeX, p.SizeY, s.Population.Len(), len(s.Foods), p.Seed))
	slog.Debug("simulation reset", "ants", s.Population.Len(), "foods", len(s.Foods),
		"source_pher", s.Field.ValueAt(s.Source.X, s.Source.Y))
}

// inject adds the exogenous supply at the source, clamped to MaxPher, and
// publishes the field.
func (s *Simulation) inject() {
	v := s.Params.MaxPher*s.Params.ExogRate + s.Field.PendingValueAt(s.Source.X, s.Source.Y)
	s.Field.PutValueAt(s.Source.X, s.Source.Y, math.Min(v, s.Params.MaxPher))
	s.Field.Update()
}

// Step advances the model by one tick and returns the resulting stats.
// Order: replenish, diffuse, activate, age, inject.
func (s *Simulation) Step() Stats {
	s.mu.Lock()

	s.LastTick++
	tick := s.LastTick
	s.Population.ResetDeaths()

	rep := s.Population.Replenish()
	for _, w := range rep.Warnings {
		s.addEvent("replenish", w)
	}

	s.Field.Diffuse()
	s.Field.Update()

	env := &agents.Env{
		Grid:        s.Grid,
		Pheromone:   s.Field,
		Source:      s.Source,
		MaxDistance: s.MaxDistance,
		MoveMethod:  s.Params.MoveMethod,
		Rand:        s.rng,
	}
	act, err := s.Population.Activate(s.Params.ActivationOrder, env)
	if err != nil {
		// Setters reject unknown orders, so this only fires if Params was edited directly.
		slog.Warn("activation skipped", "tick", tick, "error", err)
	}

	s.Population.AgeAll()
	s.inject()

	s.Stats = s.computeStats(tickCounts{
		deaths:    s.Population.Deaths(),
		births:    rep.Born,
		shortfall: rep.Shortfall,
		actions:   act.Actions,
	})
	st := s.Stats

	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	s.mu.Unlock()

	slog.Log(context.Background(), logging.LevelTrace, "tick", "tick", tick, "ants", st.Population,
		"deaths", st.Deaths, "births", st.Births, "avg_dist", st.AvgDistance)
	s.publish(st)
	return st
}

func (s *Simulation) addEvent(category, desc string) {
	s.eventSeq++
	s.Events = append(s.Events, Event{Seq: s.eventSeq, Tick: s.LastTick, Description: desc, Category: category})
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// Snapshot returns the latest stats.
func (s *Simulation) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// CurrentParams returns a copy of the parameters in effect.
func (s *Simulation) CurrentParams() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Params
}

// RecentEvents returns up to n of the latest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.Events) - n
	if start < 0 || n <= 0 {
		start = 0
	}
	return slices.Clone(s.Events[start:])
}

// AntsSnapshot returns copies of the live ants in population order.
func (s *Simulation) AntsSnapshot() []agents.Ant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agents.Ant, len(s.Population.Ants))
	for i, a := range s.Population.Ants {
		out[i] = *a
	}
	return out
}

// RosterEntry is an ant with its distance to the pheromone source.
type RosterEntry struct {
	agents.Ant
	DistanceToSource float64 `json:"distance_to_source"`
}

// AntsByDistance returns the live ants ordered by ascending distance to the
// source. Ties keep population order.
func (s *Simulation) AntsByDistance() []RosterEntry {
	s.mu.RLock()
	out := make([]RosterEntry, len(s.Population.Ants))
	for i, a := range s.Population.Ants {
		out[i] = RosterEntry{Ant: *a, DistanceToSource: world.Distance(a.Position, s.Source)}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b RosterEntry) int {
		switch {
		case a.DistanceToSource < b.DistanceToSource:
			return -1
		case a.DistanceToSource > b.DistanceToSource:
			return 1
		}
		return 0
	})
	return out
}

// FieldColumns calls fn with each column of the published field, x
// ascending; each column runs y ascending.
func (s *Simulation) FieldColumns(fn func(x int, col []float64)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := make([]float64, s.Field.SizeY)
	for x := 0; x < s.Field.SizeX; x++ {
		col = s.Field.Column(x, col)
		fn(x, col)
	}
}

// ResampleProbRandMove redraws every live ant's probRandMove from the
// configured initial distribution.
func (s *Simulation) ResampleProbRandMove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Population.ResampleProbRandMove()
	s.addEvent("config", "resampled prob_rand_move for all ants")
}

// configError records a rejected runtime setting. The prior value is kept.
func (s *Simulation) configError(name string, err error) error {
	slog.Warn("config value rejected", "param", name, "error", err)
	s.addEvent("config", fmt.Sprintf("%s rejected: %v", name, err))
	return err
}

// SetActivationOrder switches the activation policy by name or integer code.
func (s *Simulation) SetActivationOrder(v string) error {
	o, err := ParseActivationOrder(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.configError("activation_order", err)
	}
	s.Params.ActivationOrder = o
	return nil
}

// SetMoveMethod switches the random-move method by name or integer code.
func (s *Simulation) SetMoveMethod(v string) error {
	m, err := agents.ParseMoveMethod(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return s.configError("random_move_method", err)
	}
	s.Params.MoveMethod = m
	return nil
}

// SetDiffusionK changes the mixing strength for subsequent ticks.
func (s *Simulation) SetDiffusionK(k float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Field.SetDiffusionK(k); err != nil {
		return s.configError("diffusion_k", err)
	}
	s.Params.DiffusionK = k
	return nil
}

// SetEvapRate changes the retention rate for subsequent ticks.
func (s *Simulation) SetEvapRate(r float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Field.SetEvapRate(r); err != nil {
		return s.configError("evap_rate", err)
	}
	s.Params.EvapRate = r
	return nil
}

// ErrOutOfRange is returned for a numeric setting outside its domain.
var ErrOutOfRange = errors.New("value out of range")

// SetExogRate changes the fraction of MaxPher injected per tick.
func (s *Simulation) SetExogRate(r float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r < 0 || r > 1 || math.IsNaN(r) {
		return s.configError("exog_rate", fmt.Errorf("%w: exog_rate %v not in [0,1]", ErrOutOfRange, r))
	}
	s.Params.ExogRate = r
	return nil
}

// Subscribe registers a listener for per-tick stats. Slow listeners miss
// ticks rather than block the simulation.
func (s *Simulation) Subscribe() (int, <-chan Stats) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Stats, 16)
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Simulation) publish(st Stats) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- st:
		default:
		}
	}
}
