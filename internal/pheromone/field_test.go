package pheromone

import (
	"math"
	"testing"
)

func TestNoDiffusionNoEvaporationKeepsSourceValue(t *testing.T) {
	f := NewField(10, 10, 0, 1)
	f.PutValueAt(5, 5, 100)
	f.Update()

	f.Diffuse()
	f.Update()

	if got := f.ValueAt(5, 5); got != 100 {
		t.Fatalf("expected source unchanged at 100, got %f", got)
	}
	if got := f.Total(); got != 100 {
		t.Fatalf("expected total 100, got %f", got)
	}
}

func TestDiffuseDoesNotTouchReadBuffer(t *testing.T) {
	f := NewField(8, 8, 0.9, 0.95)
	f.PutValueAt(4, 4, 50)
	f.Update()

	f.Diffuse()
	if got := f.ValueAt(4, 4); got != 50 {
		t.Fatalf("read buffer changed before update: %f", got)
	}
	if got := f.ValueAt(3, 4); got != 0 {
		t.Fatalf("neighbour visible before update: %f", got)
	}
	if f.PendingValueAt(3, 4) <= 0 {
		t.Fatal("expected diffused mass pending in write buffer")
	}
}

func TestDiffusionConservesMassWithoutEvaporation(t *testing.T) {
	f := NewField(12, 9, 0.9, 1)
	f.PutValueAt(6, 4, 1000)
	f.PutValueAt(0, 0, 300)
	f.Update()
	before := f.Total()

	for i := 0; i < 50; i++ {
		f.Diffuse()
		f.Update()
		after := f.Total()
		if after > before+1e-9 {
			t.Fatalf("mass increased on step %d: %f -> %f", i, before, after)
		}
		if math.Abs(after-before) > 1e-6 {
			t.Fatalf("mass not conserved on step %d: %f -> %f", i, before, after)
		}
		before = after
	}
}

func TestEvaporationStrictlyDecreasesMass(t *testing.T) {
	f := NewField(10, 10, 0.5, 0.9)
	f.PutValueAt(5, 5, 500)
	f.Update()
	prev := f.Total()
	for i := 0; i < 20; i++ {
		f.Diffuse()
		f.Update()
		cur := f.Total()
		if !(cur < prev) {
			t.Fatalf("expected strict decrease on step %d: %f -> %f", i, prev, cur)
		}
		prev = cur
	}
}

func TestDiffusionWrapsAndStaysNonNegative(t *testing.T) {
	f := NewField(6, 6, 1, 1)
	f.PutValueAt(0, 0, 20)
	f.Update()
	f.Diffuse()
	f.Update()

	if f.ValueAt(5, 5) <= 0 || f.ValueAt(5, 0) <= 0 || f.ValueAt(0, 5) <= 0 {
		t.Fatal("expected mass to cross the wrapped edge")
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if f.ValueAt(x, y) < 0 {
				t.Fatalf("negative value at %d,%d", x, y)
			}
		}
	}
	// k=1: the source keeps none of its own value, orthogonal neighbours get 4/20.
	if got := f.ValueAt(1, 0); math.Abs(got-4) > 1e-12 {
		t.Fatalf("orthogonal neighbour: got %f want 4", got)
	}
	if got := f.ValueAt(1, 1); math.Abs(got-1) > 1e-12 {
		t.Fatalf("diagonal neighbour: got %f want 1", got)
	}
}

func TestSettersValidateRange(t *testing.T) {
	f := NewField(4, 4, 0.5, 1)
	if err := f.SetDiffusionK(1.5); err == nil {
		t.Fatal("expected error for diffusion k > 1")
	}
	if f.DiffusionK() != 0.5 {
		t.Fatalf("diffusion k changed on error: %f", f.DiffusionK())
	}
	if err := f.SetEvapRate(0); err == nil {
		t.Fatal("expected error for evaporation rate 0")
	}
	if err := f.SetEvapRate(0.9); err != nil {
		t.Fatalf("set evap rate: %v", err)
	}
	if f.EvapRate() != 0.9 {
		t.Fatalf("unexpected evap rate %f", f.EvapRate())
	}
}

func TestSeedBackgroundIsDeterministic(t *testing.T) {
	a := NewField(16, 16, 0.5, 1)
	b := NewField(16, 16, 0.5, 1)
	a.SeedBackground(9, 10, 4)
	b.SeedBackground(9, 10, 4)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			va := a.ValueAt(x, y)
			if va != b.ValueAt(x, y) {
				t.Fatalf("background differs at %d,%d", x, y)
			}
			if va < 0 || va > 10 {
				t.Fatalf("background out of range at %d,%d: %f", x, y, va)
			}
			if a.PendingValueAt(x, y) != va {
				t.Fatalf("write buffer not seeded at %d,%d", x, y)
			}
		}
	}

	c := NewField(4, 4, 0.5, 1)
	c.SeedBackground(9, 0, 4)
	if c.Total() != 0 {
		t.Fatalf("zero amplitude should leave field empty, got %f", c.Total())
	}
}

func TestColumnCopiesPublishedValues(t *testing.T) {
	f := NewField(3, 2, 0, 1)
	f.PutValueAt(2, 1, 7)
	f.PutValueAt(1, 0, 5)
	f.Update()
	col := f.Column(2, nil)
	if len(col) != 2 || col[0] != 0 || col[1] != 7 {
		t.Fatalf("unexpected column %v", col)
	}
	col = f.Column(1, col)
	if col[0] != 5 || col[1] != 0 {
		t.Fatalf("reused buffer holds %v", col)
	}
}
