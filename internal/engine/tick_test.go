package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEngineStopsAtMaxTicks(t *testing.T) {
	e := NewEngine()
	e.MaxTicks = 7
	e.ReportEvery = 3

	var ticks, reports []uint64
	e.OnTick = func(tick uint64) { ticks = append(ticks, tick) }
	e.OnReport = func(tick uint64) { reports = append(reports, tick) }

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ticks) != 7 || ticks[6] != 7 || e.Tick() != 7 {
		t.Fatalf("ticks %v, engine at %d", ticks, e.Tick())
	}
	if len(reports) != 2 || reports[0] != 3 || reports[1] != 6 {
		t.Fatalf("reports %v", reports)
	}
	if e.Running() {
		t.Fatal("engine still marked running")
	}
}

func TestEngineStopFromCallback(t *testing.T) {
	e := NewEngine()
	e.OnTick = func(tick uint64) {
		if tick == 3 {
			e.Stop()
		}
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Tick() != 3 {
		t.Fatalf("stopped at tick %d, want 3", e.Tick())
	}
}

func TestEngineContextCancel(t *testing.T) {
	e := NewEngine()
	e.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	e.OnTick = func(tick uint64) { cancel() }

	err := e.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e.Tick() != 1 {
		t.Fatalf("expected one completed tick, got %d", e.Tick())
	}
}

func TestEnginePaused(t *testing.T) {
	e := NewEngine()
	e.SetSpeed(0)
	e.OnTick = func(uint64) { t.Error("ticked while paused") }

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if e.Tick() != 0 {
		t.Fatalf("paused engine advanced to %d", e.Tick())
	}
}

func TestEngineDrivesSimulation(t *testing.T) {
	s := mustSim(t, testParams())
	e := NewEngine()
	e.MaxTicks = 12
	e.OnTick = func(uint64) { s.Step() }

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.CurrentTick() != 12 || s.Snapshot().Tick != 12 {
		t.Fatalf("simulation at tick %d", s.CurrentTick())
	}
}
