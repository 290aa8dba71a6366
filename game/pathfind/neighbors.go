package pathfind

import "github.com/wricardo/rescue-grid/game/grid"

// Neighbors yields the walkable successors of a position.
// Implementations must return them in a stable order.
type Neighbors interface {
	Neighbors(p grid.Position) []grid.Position
}

// NeighborFunc adapts a function to Neighbors
type NeighborFunc func(p grid.Position) []grid.Position

// Neighbors calls f(p)
func (f NeighborFunc) Neighbors(p grid.Position) []grid.Position { return f(p) }

// DefaultNeighbors walks g under its default profile
func DefaultNeighbors(g *grid.Grid) Neighbors {
	return NeighborFunc(g.WalkableNeighbors)
}

// ProfileNeighbors walks g under an explicit profile. nil means the cell-type rule.
func ProfileNeighbors(g *grid.Grid, p *grid.Profile) Neighbors {
	return NeighborFunc(func(pos grid.Position) []grid.Position {
		return g.WalkableNeighborsWith(pos, p)
	})
}
