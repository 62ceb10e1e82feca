package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/talgya/antpheromones/internal/engine"
)

func TestWriterHeaderAndLines(t *testing.T) {
	var buf bytes.Buffer
	p := engine.Params{Seed: 7, SizeX: 10, SizeY: 12, NumAnts: 5, ActivationOrder: engine.ActivationRandomWithReplacement}
	w, err := NewWriter(&buf, p)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteStats(engine.Stats{Tick: 3, Population: 5, Deaths: 1, AvgX: 4.5, AvgDistance: 2.25, RollingAvgDistance: 2.5, AvgProbRandMove: 0.1, AvgProbDieCenter: 0.05}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for _, l := range lines[:len(lines)-1] {
		if !strings.HasPrefix(l, "#") {
			t.Fatalf("header line without comment marker: %q", l)
		}
	}
	if !strings.Contains(buf.String(), "seed=7 world=10x12") || !strings.Contains(buf.String(), "activation=random_with_replacement") {
		t.Fatalf("parameters missing from header:\n%s", buf.String())
	}

	fields := strings.Fields(lines[len(lines)-1])
	want := []string{"3", "5", "1", "4.50", "2.250", "2.500", "0.10", "0.05"}
	if strings.Join(fields, " ") != strings.Join(want, " ") {
		t.Fatalf("data line %q, want fields %v", lines[len(lines)-1], want)
	}
}

// gridField is indexed [y][x], the way the field reads on a map.
type gridField [][]float64

func (g gridField) FieldColumns(fn func(x int, col []float64)) {
	for x := range g[0] {
		col := make([]float64, len(g))
		for y := range g {
			col[y] = g[y][x]
		}
		fn(x, col)
	}
}

func TestFieldDump(t *testing.T) {
	var buf bytes.Buffer
	d := NewFieldDumper(&buf)
	// 3 wide, 2 tall: three lines of two values, one line per x.
	field := gridField{
		{0, 1.4, 7},
		{100, 32000, 8},
	}
	if err := d.Dump(12, field); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	want := "# step    12\n     0   100\n     1 32000\n     7     8\n# endstep\n"
	if buf.String() != want {
		t.Fatalf("got\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	last := engine.Stats{Tick: 12000, Population: 60, AvgDistance: 10, TotalPheromone: 1234567}
	if err := Summary(&buf, last, 4321, 4300, 4*time.Second); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	out := buf.String()
	for _, s := range []string{"12,000 ticks", "3,000 ticks/s", "4,321 deaths", "4,300 births", "1,234,567"} {
		if !strings.Contains(out, s) {
			t.Errorf("summary missing %q:\n%s", s, out)
		}
	}
}
