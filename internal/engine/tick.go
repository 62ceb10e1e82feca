package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// pausePoll is how often a paused engine checks for resume or cancellation.
const pausePoll = 100 * time.Millisecond

var errStopped = errors.New("engine stopped")

// Engine drives the simulation forward.
type Engine struct {
	mu       sync.Mutex
	tick     uint64        // monotonic, never resets
	speed    float64       // 1.0 = one tick per Interval, 0 = paused
	running  bool
	stop     chan struct{}
	Interval time.Duration // base tick interval; zero runs flat out

	MaxTicks    uint64 // stop after this many ticks; zero means no limit
	ReportEvery uint64 // OnReport period in ticks; zero disables

	OnTick   func(tick uint64) // every tick
	OnReport func(tick uint64) // every ReportEvery ticks, after OnTick
}

// NewEngine creates an engine at normal speed with no tick delay.
func NewEngine() *Engine {
	return &Engine{speed: 1.0}
}

// Tick returns the last completed tick.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero or less pauses the engine.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	e.speed = v
	e.mu.Unlock()
	slog.Info("engine speed changed", "speed", v)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run steps until ctx is cancelled, Stop is called, or MaxTicks is reached.
// A tick in progress always completes. Run returns ctx.Err() on cancellation
// and nil otherwise.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "max_ticks", e.MaxTicks)

	for {
		if e.MaxTicks > 0 && e.Tick() >= e.MaxTicks {
			slog.Info("simulation engine finished", "tick", e.Tick())
			return nil
		}

		speed := e.Speed()
		if speed <= 0 {
			if err := e.wait(ctx, stop, pausePoll); err != nil {
				return e.stopped(err)
			}
			continue
		}

		start := time.Now()
		e.step()

		var delay time.Duration
		if e.Interval > 0 {
			target := time.Duration(float64(e.Interval) / speed)
			if elapsed := time.Since(start); elapsed < target {
				delay = target - elapsed
			}
		}
		if err := e.wait(ctx, stop, delay); err != nil {
			return e.stopped(err)
		}
	}
}

// wait sleeps for d, returning early with an error when stopped. A zero d
// only polls.
func (e *Engine) wait(ctx context.Context, stop <-chan struct{}, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return errStopped
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return errStopped
	case <-t.C:
		return nil
	}
}

func (e *Engine) stopped(err error) error {
	slog.Info("simulation engine stopped", "tick", e.Tick())
	if errors.Is(err, errStopped) {
		return nil
	}
	return err
}

// Stop halts a running engine after the current tick.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		select {
		case <-e.stop:
		default:
			close(e.stop)
		}
	}
}

// step advances the engine by one tick.
func (e *Engine) step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.ReportEvery > 0 && tick%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(tick)
	}
}
