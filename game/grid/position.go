package grid

import "fmt"

// Position represents x,y tile coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Pos is shorthand for Position{X: x, Y: y}
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Add returns the position offset by dx, dy
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Key packs the coordinates into a single comparable value
func (p Position) Key() uint64 {
	return uint64(uint32(p.Y))<<32 | uint64(uint32(p.X))
}

// Less orders positions by row first, then column
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Adjacent reports whether two positions are 4-connected neighbors
func Adjacent(a, b Position) bool {
	return ManhattanDistance(a, b) == 1
}

// neighborOffsets is the fixed 4-connected enumeration order: down, right, up, left.
// Search tie-breaking downstream depends on it.
var neighborOffsets = [4]Position{
	{X: 0, Y: 1},
	{X: 1, Y: 0},
	{X: 0, Y: -1},
	{X: -1, Y: 0},
}
