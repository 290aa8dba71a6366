package movement

import (
	"sync"

	"github.com/wricardo/rescue-grid/game/grid"
)

// Validator owns the mutation lock for one grid
type Validator struct {
	grid *grid.Grid
	mu   sync.Mutex
}

// NewValidator wraps g. All occupancy changes on g should go through it.
func NewValidator(g *grid.Grid) *Validator {
	return &Validator{grid: g}
}

// Grid returns the underlying grid
func (v *Validator) Grid() *grid.Grid { return v.grid }

// Check evaluates a move without committing it
func (v *Validator) Check(m Mover, p Policy, to grid.Position) Decision {
	v.mu.Lock()
	defer v.mu.Unlock()
	return p.check(v.grid, m.Position(), to)
}

// Move checks and, if accepted, commits the move atomically
func (v *Validator) Move(m Mover, p Policy, to grid.Position) Decision {
	v.mu.Lock()
	defer v.mu.Unlock()

	from := m.Position()
	d := p.check(v.grid, from, to)
	if d.Accepted() {
		p.commit(v.grid, m, from, to)
	}
	return d
}

// SetOccupied changes occupancy under the lock
func (v *Validator) SetOccupied(p grid.Position, occupied bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.grid.SetOccupied(p.X, p.Y, occupied)
}

// Snapshot returns a consistent deep copy of the grid for read-only searches
func (v *Validator) Snapshot() *grid.Grid {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.grid.Clone()
}
