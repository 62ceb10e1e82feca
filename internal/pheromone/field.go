// Package pheromone implements the double-buffered diffusing scalar field.
//
// Agents only ever see the read buffer. Diffuse and PutValueAt build the next
// state in the write buffer, and Update publishes it.
package pheromone

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Orthogonal neighbours weigh 4, diagonals 1, normalised by 20.
const (
	orthogonalWeight = 4.0
	diagonalWeight   = 1.0
	weightTotal      = 4*orthogonalWeight + 4*diagonalWeight
)

// Field is a toroidal sizeX×sizeY pheromone lattice.
type Field struct {
	SizeX int
	SizeY int

	diffusionK float64 // 0 = no mixing, 1 = full mixing with the neighbour average
	evapRate   float64 // retained fraction per diffusion step; 1 = no evaporation

	read  []float64
	write []float64
}

// NewField creates a zeroed field.
func NewField(sizeX, sizeY int, diffusionK, evapRate float64) *Field {
	return &Field{
		SizeX:      sizeX,
		SizeY:      sizeY,
		diffusionK: diffusionK,
		evapRate:   evapRate,
		read:       make([]float64, sizeX*sizeY),
		write:      make([]float64, sizeX*sizeY),
	}
}

// DiffusionK returns the mixing strength.
func (f *Field) DiffusionK() float64 { return f.diffusionK }

// EvapRate returns the multiplicative retention.
func (f *Field) EvapRate() float64 { return f.evapRate }

// SetDiffusionK changes the mixing strength for subsequent Diffuse calls.
func (f *Field) SetDiffusionK(k float64) error {
	if k < 0 || k > 1 {
		return fmt.Errorf("diffusion k must be in [0,1], got %f", k)
	}
	f.diffusionK = k
	return nil
}

// SetEvapRate changes the retention for subsequent Diffuse calls.
func (f *Field) SetEvapRate(r float64) error {
	if r <= 0 || r > 1 {
		return fmt.Errorf("evaporation rate must be in (0,1], got %f", r)
	}
	f.evapRate = r
	return nil
}

func (f *Field) index(x, y int) int {
	x %= f.SizeX
	if x < 0 {
		x += f.SizeX
	}
	y %= f.SizeY
	if y < 0 {
		y += f.SizeY
	}
	return y*f.SizeX + x
}

// Diffuse computes the write buffer from the read buffer:
//
//	next = evap * (v + k*(avg - v))
//
// where avg is the 4:1 weighted Moore average. The read buffer is not touched.
func (f *Field) Diffuse() {
	k := f.diffusionK
	evap := f.evapRate
	for y := 0; y < f.SizeY; y++ {
		for x := 0; x < f.SizeX; x++ {
			v := f.read[f.index(x, y)]
			orth := f.read[f.index(x-1, y)] + f.read[f.index(x+1, y)] +
				f.read[f.index(x, y-1)] + f.read[f.index(x, y+1)]
			diag := f.read[f.index(x-1, y-1)] + f.read[f.index(x+1, y-1)] +
				f.read[f.index(x-1, y+1)] + f.read[f.index(x+1, y+1)]
			avg := (orthogonalWeight*orth + diagonalWeight*diag) / weightTotal
			f.write[f.index(x, y)] = evap * (v + k*(avg-v))
		}
	}
}

// PutValueAt overwrites one cell of the write buffer.
func (f *Field) PutValueAt(x, y int, v float64) {
	f.write[f.index(x, y)] = v
}

// Update publishes the write buffer into the read buffer. The write buffer
// keeps its contents so it remains the basis for the next PutValueAt.
func (f *Field) Update() {
	copy(f.read, f.write)
}

// ValueAt returns the published value at (x, y).
func (f *Field) ValueAt(x, y int) float64 {
	return f.read[f.index(x, y)]
}

// PendingValueAt returns the not-yet-published value at (x, y).
func (f *Field) PendingValueAt(x, y int) float64 {
	return f.write[f.index(x, y)]
}

// Total returns the mass of the published field.
func (f *Field) Total() float64 {
	return floats.Sum(f.read)
}

// Column copies column x of the published field into dst, y ascending,
// allocating if needed.
func (f *Field) Column(x int, dst []float64) []float64 {
	if cap(dst) < f.SizeY {
		dst = make([]float64, f.SizeY)
	}
	dst = dst[:f.SizeY]
	for y := range dst {
		dst[y] = f.read[f.index(x, y)]
	}
	return dst
}
