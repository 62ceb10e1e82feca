package persistence

import (
	"fmt"
	"log/slog"

	"github.com/talgya/antpheromones/internal/engine"
)

// Recorder buffers per-tick stats for one run and writes them in batches.
type Recorder struct {
	DB         *DB
	RunID      string
	FlushEvery int // batch size; values below 1 flush every tick

	pending []engine.Stats
	lastSeq uint64 // Seq of the newest event already written
}

// NewRecorder registers a run for p and returns a recorder bound to it.
func NewRecorder(db *DB, p engine.Params, flushEvery int) (*Recorder, error) {
	id, err := db.StartRun(p)
	if err != nil {
		return nil, err
	}
	return &Recorder{DB: db, RunID: id, FlushEvery: flushEvery}, nil
}

// Record queues st and flushes once the batch is full.
func (r *Recorder) Record(st engine.Stats) error {
	r.pending = append(r.pending, st)
	if len(r.pending) >= r.FlushEvery {
		return r.Flush()
	}
	return nil
}

// Flush writes queued stats.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.DB.SaveStats(r.RunID, r.pending); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	slog.Debug("stats flushed", "run_id", r.RunID, "ticks", len(r.pending))
	r.pending = r.pending[:0]
	return nil
}

// Checkpoint flushes stats and writes events newer than the previous
// checkpoint, plus the current roster when roster is set.
func (r *Recorder) Checkpoint(sim *engine.Simulation, roster bool) error {
	if err := r.Flush(); err != nil {
		return err
	}

	var fresh []engine.Event
	for _, e := range sim.RecentEvents(0) {
		if e.Seq > r.lastSeq {
			fresh = append(fresh, e)
		}
	}
	if err := r.DB.SaveEvents(r.RunID, fresh); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if len(fresh) > 0 {
		r.lastSeq = fresh[len(fresh)-1].Seq
	}

	tick := sim.CurrentTick()
	if roster {
		if err := r.DB.SaveRoster(r.RunID, tick, sim.AntsSnapshot()); err != nil {
			return fmt.Errorf("save roster: %w", err)
		}
	}
	if err := r.DB.SaveMeta("last_run", r.RunID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}

// Close flushes, checkpoints and marks the run finished.
func (r *Recorder) Close(sim *engine.Simulation, roster bool) error {
	if err := r.Checkpoint(sim, roster); err != nil {
		return err
	}
	return r.DB.FinishRun(r.RunID, sim.CurrentTick())
}
