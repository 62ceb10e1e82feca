package pheromone

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// SeedBackground adds a low-amplitude simplex noise floor to both buffers.
// Values lie in [0, amplitude). scale is the number of noise periods across
// the grid (default 4). A non-positive amplitude leaves the field untouched.
func (f *Field) SeedBackground(seed int64, amplitude, scale float64) {
	if amplitude <= 0 {
		return
	}
	if scale <= 0 {
		scale = 4
	}
	noise := opensimplex.NewNormalized(seed)

	for y := 0; y < f.SizeY; y++ {
		for x := 0; x < f.SizeX; x++ {
			u := float64(x) / float64(f.SizeX) * scale
			v := float64(y) / float64(f.SizeY) * scale
			idx := f.index(x, y)
			f.read[idx] += amplitude * noise.Eval2(u, v)
			f.write[idx] = f.read[idx]
		}
	}
}
