// Package grid provides the tile grid and walkability model for the rescue simulation.
//
// The grid package implements:
//   - Integer tile coordinates and Manhattan distance
//   - Cells with a terrain type and an occupancy flag
//   - A fixed-size grid indexed [y][x] with bounds-checked queries
//   - Named walkability profiles and binary terrain layers
//   - Profile intersection (Merge) for stacking hazard layers on a base map
//
// Walkability:
//
// A coordinate is walkable when it is inside the grid, its cell is not
// occupied, and the consulted profile reports it passable. When no profile
// is consulted the cell's own type decides: roads and hospitals are
// passable, everything else is not.
//
// Usage:
//
//	g := grid.NewGrid(5, 5)
//	g.SetCell(0, 0, &grid.Cell{Type: grid.Road})
//	g.SetProfile("vehicle", grid.ProfileFromGrid(g, func(c *grid.Cell) bool {
//		return c.Type == grid.Road
//	}))
//
//	if g.IsWalkableWith(0, 0, g.Profile("vehicle")) {
//		// ...
//	}
//
// Invalid coordinates are never an error: every query on them returns
// false or nil.
package grid
