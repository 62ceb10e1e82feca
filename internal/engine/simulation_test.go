package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/talgya/antpheromones/internal/agents"
	"github.com/talgya/antpheromones/internal/world"
)

func testParams() Params {
	return Params{
		Seed:               42,
		SizeX:              20,
		SizeY:              20,
		NumAnts:            15,
		NumFoods:           3,
		MaxAntWeight:       10,
		ProbRandMoveMean:   0.2,
		ProbRandMoveSD:     0.1,
		ProbRandMoveMutSD:  0.05,
		ProbDieCenterMean:  0.1,
		ProbDieCenterSD:    0.05,
		ProbDieCenterMutSD: 0.05,
		TournamentSize:     2,
		BestWinsProb:       0.9,
		DiffusionK:         0.9,
		EvapRate:           1,
		MaxPher:            1000,
		ExogRate:           0.3,
		InitialSteps:       5,
		ActivationOrder:    ActivationRandomWithoutReplacement,
		MoveMethod:         agents.MoveRandomOpen,
	}
}

func mustSim(t *testing.T, p Params) *Simulation {
	t.Helper()
	s, err := NewSimulation(p)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	return s
}

func TestNewSimulationRejectsBadSize(t *testing.T) {
	p := testParams()
	p.SizeX = 0
	if _, err := NewSimulation(p); !errors.Is(err, ErrBadWorldSize) {
		t.Fatalf("expected ErrBadWorldSize, got %v", err)
	}
}

func TestResetInitialState(t *testing.T) {
	p := testParams()
	p.InitialSteps = 0
	s := mustSim(t, p)

	if s.Source != (world.Coord{X: 10, Y: 10}) {
		t.Fatalf("source at %+v", s.Source)
	}
	if got := s.Field.ValueAt(10, 10); got != 600 {
		t.Fatalf("initial pheromone %f, want 600", got)
	}
	if s.Population.Len() != 15 || len(s.Foods) != 3 {
		t.Fatalf("ants %d foods %d", s.Population.Len(), len(s.Foods))
	}
	if s.Grid.Occupied() != 18 {
		t.Fatalf("grid holds %d occupants, want 18", s.Grid.Occupied())
	}
	if s.MaxDistance != math.Sqrt(200) {
		t.Fatalf("max distance %f", s.MaxDistance)
	}

	p.ExogRate = 0.9
	s = mustSim(t, p)
	if got := s.Field.ValueAt(10, 10); got != p.MaxPher {
		t.Fatalf("initial pheromone %f not clamped to %f", got, p.MaxPher)
	}
}

func TestRunsAreReproducible(t *testing.T) {
	a := mustSim(t, testParams())
	b := mustSim(t, testParams())
	for i := 0; i < 30; i++ {
		sa, sb := a.Step(), b.Step()
		if sa != sb {
			t.Fatalf("tick %d diverged:\n%+v\n%+v", i+1, sa, sb)
		}
	}
	if !reflect.DeepEqual(a.AntsSnapshot(), b.AntsSnapshot()) {
		t.Fatal("ant rosters diverged")
	}
}

func TestResetRestartsRun(t *testing.T) {
	s := mustSim(t, testParams())
	first := s.AntsSnapshot()
	for i := 0; i < 20; i++ {
		s.Step()
	}
	s.Reset()
	if s.CurrentTick() != 0 {
		t.Fatalf("tick %d after reset", s.CurrentTick())
	}
	if !reflect.DeepEqual(first, s.AntsSnapshot()) {
		t.Fatal("reset did not reproduce the initial roster")
	}
	for i, a := range s.AntsSnapshot() {
		if a.ID != agents.AntID(i) {
			t.Fatalf("ant %d has id %d after reset", i, a.ID)
		}
	}
}

func TestStepInvariants(t *testing.T) {
	for _, order := range []ActivationOrder{ActivationFixed, ActivationRandomWithReplacement, ActivationRandomWithoutReplacement} {
		t.Run(order.String(), func(t *testing.T) {
			p := testParams()
			p.ActivationOrder = order
			p.ProbDieCenterMean = 0.5
			s := mustSim(t, p)

			for i := 0; i < 60; i++ {
				st := s.Step()
				if st.Population > p.NumAnts {
					t.Fatalf("tick %d: population %d above target", st.Tick, st.Population)
				}
				if st.Population != p.NumAnts-st.Deaths && st.Shortfall == 0 {
					t.Fatalf("tick %d: population %d with %d deaths", st.Tick, st.Population, st.Deaths)
				}
				if s.Grid.Occupied() != st.Population+len(s.Foods) {
					t.Fatalf("tick %d: grid holds %d, want %d", st.Tick, s.Grid.Occupied(), st.Population+len(s.Foods))
				}
				for _, a := range s.Population.Ants {
					if s.Grid.At(a.Position) != a.Occupant() {
						t.Fatalf("tick %d: ant %d not on its cell", st.Tick, a.ID)
					}
				}
				if v := s.Field.ValueAt(s.Source.X, s.Source.Y); v > p.MaxPher {
					t.Fatalf("tick %d: source holds %f above cap", st.Tick, v)
				}
			}
		})
	}
}

func TestExogenousClamp(t *testing.T) {
	p := testParams()
	p.ExogRate = 1
	p.DiffusionK = 0
	s := mustSim(t, p)
	for i := 0; i < 10; i++ {
		s.Step()
		if v := s.Field.ValueAt(s.Source.X, s.Source.Y); v != p.MaxPher {
			t.Fatalf("source holds %f, want exactly %f", v, p.MaxPher)
		}
	}
}

func TestFieldMassWithoutInjection(t *testing.T) {
	p := testParams()
	s := mustSim(t, p)
	if err := s.SetExogRate(0); err != nil {
		t.Fatal(err)
	}

	prev := s.Field.Total()
	for i := 0; i < 10; i++ {
		st := s.Step()
		if math.Abs(st.TotalPheromone-prev) > 1e-6*prev {
			t.Fatalf("mass changed from %f to %f with evap 1", prev, st.TotalPheromone)
		}
	}

	p.EvapRate = 0.9
	s = mustSim(t, p)
	if err := s.SetExogRate(0); err != nil {
		t.Fatal(err)
	}
	prev = s.Field.Total()
	for i := 0; i < 10; i++ {
		st := s.Step()
		if st.TotalPheromone >= prev {
			t.Fatalf("mass did not decrease: %f -> %f", prev, st.TotalPheromone)
		}
		prev = st.TotalPheromone
	}
}

func TestLoneAntAtSourceDies(t *testing.T) {
	p := testParams()
	p.SizeX, p.SizeY = 10, 10
	p.NumAnts = 1
	p.NumFoods = 0
	s := mustSim(t, p)

	a := s.Population.Ants[0]
	s.Grid.Clear(a.Position)
	a.Position = world.Coord{X: 5, Y: 5}
	a.ProbDieCenter = 1
	a.ProbRandMove = 0
	s.Grid.Place(a.Position, a.Occupant())

	st := s.Step()
	if st.Deaths != 1 || st.Population != 0 {
		t.Fatalf("expected the ant to die on its first step, got %+v", st)
	}
	if !s.Grid.IsFree(world.Coord{X: 5, Y: 5}) {
		t.Fatal("source cell still occupied")
	}
}

func TestStatsAverages(t *testing.T) {
	p := testParams()
	p.NumFoods = 0
	s := mustSim(t, p)

	var sumX, sumD float64
	for _, a := range s.Population.Ants {
		sumX += float64(a.Position.X)
		sumD += world.Distance(a.Position, s.Source)
	}
	n := float64(s.Population.Len())
	st := s.Snapshot()
	if math.Abs(st.AvgX-sumX/n) > 1e-9 || math.Abs(st.AvgDistance-sumD/n) > 1e-9 {
		t.Fatalf("averages %+v, want x=%f d=%f", st, sumX/n, sumD/n)
	}
	if st.RollingAvgDistance != st.AvgDistance {
		t.Fatalf("rolling mean of one sample should equal the sample")
	}
}

func TestRollingMeanWindow(t *testing.T) {
	r := newRollingMean(3)
	r.Add(1)
	r.Add(2)
	r.Add(3)
	if got := r.Add(10); got != 5 {
		t.Fatalf("window mean %f, want 5", got)
	}
}

func TestSettersRejectAndKeepPrior(t *testing.T) {
	s := mustSim(t, testParams())

	if err := s.SetActivationOrder("sideways"); !errors.Is(err, ErrUnknownActivationOrder) {
		t.Fatalf("expected ErrUnknownActivationOrder, got %v", err)
	}
	if s.CurrentParams().ActivationOrder != ActivationRandomWithoutReplacement {
		t.Fatal("activation order changed on bad input")
	}
	if err := s.SetActivationOrder("0"); err != nil || s.CurrentParams().ActivationOrder != ActivationFixed {
		t.Fatalf("SetActivationOrder(0): %v", err)
	}

	if err := s.SetMoveMethod("7"); !errors.Is(err, agents.ErrUnknownMoveMethod) {
		t.Fatal("expected error for move method 7")
	}
	if err := s.SetMoveMethod("first-open"); err != nil || s.CurrentParams().MoveMethod != agents.MoveFirstOpen {
		t.Fatalf("SetMoveMethod(first-open): %v", err)
	}

	if err := s.SetDiffusionK(1.5); err == nil || s.Field.DiffusionK() != 0.9 {
		t.Fatal("diffusion k accepted out of range")
	}
	if err := s.SetEvapRate(0); err == nil || s.Field.EvapRate() != 1 {
		t.Fatal("evap rate 0 accepted")
	}
	if err := s.SetExogRate(1.2); !errors.Is(err, ErrOutOfRange) || s.CurrentParams().ExogRate != 0.3 {
		t.Fatal("exog rate accepted out of range")
	}
	if err := s.SetDiffusionK(0.5); err != nil || s.CurrentParams().DiffusionK != 0.5 {
		t.Fatalf("SetDiffusionK(0.5): %v", err)
	}

	var configEvents int
	for _, e := range s.RecentEvents(100) {
		if e.Category == "config" {
			configEvents++
		}
	}
	if configEvents != 5 {
		t.Fatalf("expected 5 config events, got %d", configEvents)
	}
}

func TestAntsByDistanceSorted(t *testing.T) {
	s := mustSim(t, testParams())
	roster := s.AntsByDistance()
	if len(roster) != s.Population.Len() {
		t.Fatalf("roster has %d entries", len(roster))
	}
	for i := 1; i < len(roster); i++ {
		if roster[i].DistanceToSource < roster[i-1].DistanceToSource {
			t.Fatalf("roster out of order at %d", i)
		}
	}
}

func TestResampleProbRandMove(t *testing.T) {
	p := testParams()
	s := mustSim(t, p)
	s.Params.ProbRandMoveMean = 0.9
	s.Params.ProbRandMoveSD = 0.01
	s.Population.SetTraits(s.Params.traits())

	s.ResampleProbRandMove()
	for _, a := range s.AntsSnapshot() {
		if math.Abs(a.ProbRandMove-0.9) > 0.1 {
			t.Fatalf("ant %d prob_rand_move %f not resampled", a.ID, a.ProbRandMove)
		}
	}
}

func TestSubscribeReceivesStats(t *testing.T) {
	s := mustSim(t, testParams())
	id, ch := s.Subscribe()

	want := s.Step()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got %+v want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("no stats delivered")
	}

	s.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after Unsubscribe")
	}
	s.Step()
}

func TestFieldColumns(t *testing.T) {
	p := testParams()
	p.SizeX, p.SizeY = 12, 8
	s := mustSim(t, p)

	var total float64
	cols := 0
	s.FieldColumns(func(x int, col []float64) {
		cols++
		if len(col) != 8 {
			t.Fatalf("column %d has %d cells, want 8", x, len(col))
		}
		if x == s.Source.X && col[s.Source.Y] != s.Field.ValueAt(s.Source.X, s.Source.Y) {
			t.Fatalf("source cell %v in column %d, want %v", col[s.Source.Y], x, s.Field.ValueAt(s.Source.X, s.Source.Y))
		}
		for _, v := range col {
			total += v
		}
	})
	if cols != 12 || math.Abs(total-s.Field.Total()) > 1e-6 {
		t.Fatalf("columns %d total %f vs %f", cols, total, s.Field.Total())
	}
}

func TestEventSeqSurvivesReset(t *testing.T) {
	s := mustSim(t, testParams())
	s.SetMoveMethod("sideways")
	before := s.RecentEvents(0)
	last := before[len(before)-1].Seq

	s.Reset()
	after := s.RecentEvents(0)
	if len(after) != 1 || after[0].Category != "reset" {
		t.Fatalf("events after reset = %+v", after)
	}
	if after[0].Seq != last+1 {
		t.Fatalf("reset event seq = %d, want %d", after[0].Seq, last+1)
	}
}
