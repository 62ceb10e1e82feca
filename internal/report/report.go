// Package report writes plain-text run reports: one aggregate line per
// reporting tick, optional pheromone field dumps, and an end-of-run summary.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/antpheromones/internal/engine"
)

// Writer formats engine.Stats as fixed-width report lines.
type Writer struct {
	w io.Writer
}

// NewWriter writes the parameter and column header comments and returns a
// writer for the data lines.
func NewWriter(w io.Writer, p engine.Params) (*Writer, error) {
	header := []string{
		fmt.Sprintf("# seed=%d world=%dx%d ants=%d foods=%d", p.Seed, p.SizeX, p.SizeY, p.NumAnts, p.NumFoods),
		fmt.Sprintf("# diffusionK=%.3f evapRate=%.3f maxPher=%.0f exogRate=%.3f initialSteps=%d",
			p.DiffusionK, p.EvapRate, p.MaxPher, p.ExogRate, p.InitialSteps),
		fmt.Sprintf("# probRandMove=%.3f/%.3f/%.3f probDieCenter=%.3f/%.3f/%.3f (mean/sd/mutSD)",
			p.ProbRandMoveMean, p.ProbRandMoveSD, p.ProbRandMoveMutSD,
			p.ProbDieCenterMean, p.ProbDieCenterSD, p.ProbDieCenterMutSD),
		fmt.Sprintf("# tournament=%d bestWins=%.2f activation=%s move=%s",
			p.TournamentSize, p.BestWinsProb, p.ActivationOrder, p.MoveMethod),
		"#                                    Win10",
		"#       Num   Num  avg    AveDist   AveDist    Avg      Avg",
		"# time  Ants  Die  AntX   toSource  toSource  RandMov  PrDieC",
	}
	if _, err := io.WriteString(w, strings.Join(header, "\n")+"\n"); err != nil {
		return nil, fmt.Errorf("write report header: %w", err)
	}
	return &Writer{w: w}, nil
}

// WriteStats appends one data line.
func (r *Writer) WriteStats(st engine.Stats) error {
	_, err := fmt.Fprintf(r.w, "%5d   %3d   %3d %6.2f  %6.3f   %6.3f   %6.2f   %6.2f\n",
		st.Tick, st.Population, st.Deaths, st.AvgX,
		st.AvgDistance, st.RollingAvgDistance,
		st.AvgProbRandMove, st.AvgProbDieCenter)
	return err
}

// ColumnSource yields the published pheromone field one x column at a time.
type ColumnSource interface {
	FieldColumns(fn func(x int, col []float64))
}

// FieldDumper writes whole pheromone fields bracketed by step markers.
type FieldDumper struct {
	w io.Writer
}

// NewFieldDumper returns a dumper writing to w.
func NewFieldDumper(w io.Writer) *FieldDumper {
	return &FieldDumper{w: w}
}

// Dump writes "# step N", one line per x with y running along the line,
// then "# endstep".
func (d *FieldDumper) Dump(tick uint64, src ColumnSource) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# step %5d\n", tick)
	src.FieldColumns(func(x int, col []float64) {
		for _, v := range col {
			fmt.Fprintf(&b, " %5.0f", v)
		}
		b.WriteByte('\n')
	})
	b.WriteString("# endstep\n")
	_, err := io.WriteString(d.w, b.String())
	return err
}

// Summary describes a finished run in one human-readable paragraph.
func Summary(w io.Writer, last engine.Stats, totalDeaths, totalBirths int, elapsed time.Duration) error {
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(last.Tick) / s
	}
	_, err := fmt.Fprintf(w,
		"%s ticks in %s (%s ticks/s)\n"+
			"population %d, %s deaths, %s births\n"+
			"mean distance to source %.3f (rolling %.3f)\n"+
			"mean probRandMove %.3f, mean probDieCenter %.3f\n"+
			"total pheromone %s\n",
		humanize.Comma(int64(last.Tick)), elapsed.Round(time.Millisecond), humanize.FormatFloat("#,###.##", rate),
		last.Population, humanize.Comma(int64(totalDeaths)), humanize.Comma(int64(totalBirths)),
		last.AvgDistance, last.RollingAvgDistance,
		last.AvgProbRandMove, last.AvgProbDieCenter,
		humanize.FormatFloat("#,###.", last.TotalPheromone),
	)
	return err
}
