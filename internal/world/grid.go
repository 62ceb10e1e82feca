package world

import (
	"fmt"

	"github.com/talgya/antpheromones/internal/entropy"
)

// Kind tags what occupies a cell.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindAnt
	KindFood
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindAnt:
		return "ant"
	case KindFood:
		return "food"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Occupant is the content of one cell. ID refers to the ant or food
// occupying it and is meaningless when Kind is KindEmpty.
type Occupant struct {
	Kind Kind
	ID   uint64
}

// Empty is the zero occupant.
var Empty = Occupant{}

// AntOccupant returns the occupant value for ant id.
func AntOccupant(id uint64) Occupant {
	return Occupant{Kind: KindAnt, ID: id}
}

// FoodOccupant returns the occupant value for food id.
func FoodOccupant(id uint64) Occupant {
	return Occupant{Kind: KindFood, ID: id}
}

// Grid is a toroidal sizeX×sizeY occupancy grid. Each cell holds at most one occupant.
type Grid struct {
	SizeX int
	SizeY int
	cells []Occupant
}

// NewGrid creates an empty grid.
func NewGrid(sizeX, sizeY int) *Grid {
	return &Grid{
		SizeX: sizeX,
		SizeY: sizeY,
		cells: make([]Occupant, sizeX*sizeY),
	}
}

// Wrap normalises (x, y) onto the torus.
func (g *Grid) Wrap(x, y int) Coord {
	return Coord{X: wrap(x, g.SizeX), Y: wrap(y, g.SizeY)}
}

func (g *Grid) index(c Coord) int {
	c = g.Wrap(c.X, c.Y)
	return c.Y*g.SizeX + c.X
}

// At returns the occupant of c (wrapped).
func (g *Grid) At(c Coord) Occupant {
	return g.cells[g.index(c)]
}

// IsFree reports whether c holds nothing.
func (g *Grid) IsFree(c Coord) bool {
	return g.At(c).Kind == KindEmpty
}

// Place puts o at c, replacing whatever was there.
func (g *Grid) Place(c Coord, o Occupant) {
	g.cells[g.index(c)] = o
}

// Clear empties c.
func (g *Grid) Clear(c Coord) {
	g.cells[g.index(c)] = Empty
}

// Move clears from and places o at to.
func (g *Grid) Move(from, to Coord, o Occupant) {
	g.Clear(from)
	g.Place(to, o)
}

// MooreNeighbors returns the eight wrapped neighbours of c in MooreDirections order.
func (g *Grid) MooreNeighbors(c Coord) [8]Coord {
	var result [8]Coord
	for i, dir := range MooreDirections {
		result[i] = g.Wrap(c.X+dir.X, c.Y+dir.Y)
	}
	return result
}

// CountAntsWithin counts ants in the Chebyshev ball of radius r around c,
// excluding c itself. On grids smaller than 2r+1 a wrapped cell is counted once.
func (g *Grid) CountAntsWithin(c Coord, r int) int {
	seen := make(map[int]struct{}, (2*r+1)*(2*r+1))
	self := g.index(c)
	count := 0
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			idx := g.index(Coord{X: c.X + dx, Y: c.Y + dy})
			if idx == self {
				continue
			}
			if _, ok := seen[idx]; ok {
				continue
			}
			seen[idx] = struct{}{}
			if g.cells[idx].Kind == KindAnt {
				count++
			}
		}
	}
	return count
}

// RandomUnoccupied picks a uniformly random empty cell using one draw from src.
// It returns false when the grid is full.
func (g *Grid) RandomUnoccupied(src *entropy.Source) (Coord, bool) {
	free := make([]int, 0, len(g.cells))
	for i, o := range g.cells {
		if o.Kind == KindEmpty {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return Coord{}, false
	}
	idx := free[src.IntRange(0, len(free)-1)]
	return Coord{X: idx % g.SizeX, Y: idx / g.SizeX}, true
}

// Occupied returns the number of non-empty cells.
func (g *Grid) Occupied() int {
	n := 0
	for _, o := range g.cells {
		if o.Kind != KindEmpty {
			n++
		}
	}
	return n
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, occupied=%d)", g.SizeX, g.SizeY, g.Occupied())
}
