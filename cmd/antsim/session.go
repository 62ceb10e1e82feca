package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/talgya/antpheromones/internal/config"
	"github.com/talgya/antpheromones/internal/engine"
	"github.com/talgya/antpheromones/internal/persistence"
	"github.com/talgya/antpheromones/internal/report"
)

// session wires one simulation to its engine, report files and run store.
type session struct {
	cfg *config.Config
	sim *engine.Simulation
	eng *engine.Engine
	db  *persistence.DB
	rec *persistence.Recorder

	reporter *report.Writer
	dumper   *report.FieldDumper
	closers  []io.Closer

	deaths int
	births int
	start  time.Time
}

func newSession(cfg *config.Config, stdout io.Writer) (*session, error) {
	// Unknown choices are logged by Params and fall back to defaults.
	params, _ := cfg.Params()

	sim, err := engine.NewSimulation(params)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, sim: sim, eng: engine.NewEngine()}

	if cfg.Storage.DBPath != "" {
		if s.db, err = persistence.Open(cfg.Storage.DBPath); err != nil {
			return nil, err
		}
		s.closers = append(s.closers, s.db)
		if s.rec, err = persistence.NewRecorder(s.db, params, int(cfg.Storage.SaveEvery)); err != nil {
			s.close()
			return nil, err
		}
		if err := s.rec.Record(sim.Snapshot()); err != nil {
			s.close()
			return nil, err
		}
	}

	if cfg.Report.File != "" {
		w, err := s.open(cfg.Report.File, stdout)
		if err != nil {
			s.close()
			return nil, err
		}
		if s.reporter, err = report.NewWriter(w, params); err != nil {
			s.close()
			return nil, err
		}
		if err := s.reporter.WriteStats(sim.Snapshot()); err != nil {
			s.close()
			return nil, err
		}
	}
	if cfg.Report.FieldFile != "" {
		w, err := s.open(cfg.Report.FieldFile, stdout)
		if err != nil {
			s.close()
			return nil, err
		}
		s.dumper = report.NewFieldDumper(w)
	}

	s.eng.MaxTicks = cfg.Run.Ticks
	s.eng.Interval = cfg.Run.Interval
	s.eng.SetSpeed(cfg.Run.Speed)
	s.eng.OnTick = s.tick
	if s.reporter != nil {
		s.eng.ReportEvery = cfg.Report.Every
		s.eng.OnReport = s.report
	}
	return s, nil
}

func (s *session) open(path string, stdout io.Writer) (io.Writer, error) {
	if path == "-" {
		return stdout, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	s.closers = append(s.closers, f)
	return f, nil
}

// tick runs one model step and feeds every sink. Sink errors are logged and
// never stop the run.
func (s *session) tick(uint64) {
	st := s.sim.Step()
	s.deaths += st.Deaths
	s.births += st.Births

	if s.dumper != nil && s.cfg.Report.FieldEvery > 0 && st.Tick%s.cfg.Report.FieldEvery == 0 {
		if err := s.dumper.Dump(st.Tick, s.sim); err != nil {
			slog.Error("field dump failed", "error", err)
		}
	}
	if s.rec != nil {
		if err := s.rec.Record(st); err != nil {
			slog.Error("stats save failed", "error", err)
		}
		if s.cfg.Storage.SaveEvery > 0 && st.Tick%s.cfg.Storage.SaveEvery == 0 {
			if err := s.rec.Checkpoint(s.sim, s.cfg.Storage.SaveRoster); err != nil {
				slog.Error("checkpoint failed", "error", err)
			}
		}
	}
}

func (s *session) report(uint64) {
	if err := s.reporter.WriteStats(s.sim.Snapshot()); err != nil {
		slog.Error("report write failed", "error", err)
	}
}

func (s *session) run(ctx context.Context) error {
	s.start = time.Now()
	return s.eng.Run(ctx)
}

// finish writes the final checkpoint and the summary.
func (s *session) finish(w io.Writer) error {
	if s.rec != nil {
		if err := s.rec.Close(s.sim, true); err != nil {
			return fmt.Errorf("final save: %w", err)
		}
		fmt.Fprintf(w, "run %s saved to %s\n", s.rec.RunID, s.cfg.Storage.DBPath)
	}
	return report.Summary(w, s.sim.Snapshot(), s.deaths, s.births, time.Since(s.start))
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i].Close()
	}
	s.closers = nil
}
