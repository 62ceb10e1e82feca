// Package world provides the toroidal grid, cell occupancy, and spatial helpers.
// Coordinates wrap on both axes; no edge of the grid is a boundary.
package world

import "math"

// Coord is a cell position on the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MooreDirections lists the eight neighbour offsets in enumeration order:
// dx from -1 to 1, and for each dx, dy from -1 to 1, skipping the centre.
// Every "first found" rule in the model refers to this order.
var MooreDirections = [8]Coord{
	{X: -1, Y: -1},
	{X: -1, Y: 0},
	{X: -1, Y: 1},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 1, Y: -1},
	{X: 1, Y: 0},
	{X: 1, Y: 1},
}

// Distance returns the plain Euclidean distance between a and b.
// It does not wrap: distance-to-source is measured on the unrolled plane.
func Distance(a, b Coord) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// wrap maps v into [0, n).
func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
