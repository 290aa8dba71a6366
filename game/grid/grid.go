package grid

import "sort"

// Grid is a fixed-size tile grid indexed [y][x].
//
// Width and height never change after construction. Slots may be empty
// (nil) until the loader populates them.
type Grid struct {
	width  int
	height int
	cells  [][]*Cell

	defaultProfile *Profile
	profiles       map[string]*Profile
	layers         map[string]*Profile
}

// NewGrid creates an empty grid. Negative dimensions are clamped to zero.
func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	g := &Grid{
		width:    width,
		height:   height,
		profiles: make(map[string]*Profile),
		layers:   make(map[string]*Profile),
	}
	g.cells = make([][]*Cell, height)
	for y := range g.cells {
		g.cells[y] = make([]*Cell, width)
	}
	return g
}

// Width returns the number of columns
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// IsValid reports whether (x,y) lies inside the grid
func (g *Grid) IsValid(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Cell returns the cell at (x,y), or nil for invalid or unpopulated coordinates
func (g *Grid) Cell(x, y int) *Cell {
	if !g.IsValid(x, y) {
		return nil
	}
	return g.cells[y][x]
}

// CellAt is Cell for a Position
func (g *Grid) CellAt(p Position) *Cell {
	return g.Cell(p.X, p.Y)
}

// SetCell replaces the slot at (x,y) and stamps the cell's coordinates.
// Invalid coordinates are ignored. A cell already placed elsewhere is copied
// so that no cell is ever shared between two slots.
func (g *Grid) SetCell(x, y int, cell *Cell) {
	if !g.IsValid(x, y) {
		return
	}
	if cell != nil {
		if prev := g.Cell(cell.X, cell.Y); prev == cell && (cell.X != x || cell.Y != y) {
			cp := *cell
			cell = &cp
		}
		cell.X = x
		cell.Y = y
	}
	g.cells[y][x] = cell
}

// SetOccupied sets the occupancy flag. It returns false when the slot is invalid or empty.
func (g *Grid) SetOccupied(x, y int, occupied bool) bool {
	c := g.Cell(x, y)
	if c == nil {
		return false
	}
	c.Occupied = occupied
	return true
}

// IsWalkable checks (x,y) against the default profile
func (g *Grid) IsWalkable(x, y int) bool {
	return g.IsWalkableWith(x, y, g.defaultProfile)
}

// IsWalkableWith checks (x,y) against the given profile. A nil profile falls
// back to the cell's intrinsic type rule.
func (g *Grid) IsWalkableWith(x, y int, p *Profile) bool {
	c := g.Cell(x, y)
	if c == nil || c.Occupied {
		return false
	}
	if p != nil {
		return p.IsWalkable(x, y)
	}
	return c.Type.Walkable()
}

// WalkableNeighbors returns the walkable 4-connected neighbors of pos under
// the default profile, in the order down, right, up, left.
func (g *Grid) WalkableNeighbors(pos Position) []Position {
	return g.WalkableNeighborsWith(pos, g.defaultProfile)
}

// WalkableNeighborsWith is WalkableNeighbors for an explicit profile
func (g *Grid) WalkableNeighborsWith(pos Position, p *Profile) []Position {
	out := make([]Position, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		n := pos.Add(d.X, d.Y)
		if g.IsWalkableWith(n.X, n.Y, p) {
			out = append(out, n)
		}
	}
	return out
}

// SetProfile stores a named profile. A nil profile removes the entry.
func (g *Grid) SetProfile(name string, p *Profile) {
	if p == nil {
		delete(g.profiles, name)
		return
	}
	g.profiles[name] = p
}

// Profile returns the named profile, or nil
func (g *Grid) Profile(name string) *Profile {
	return g.profiles[name]
}

// ProfileNames lists registered profile names in sorted order
func (g *Grid) ProfileNames() []string {
	names := make([]string, 0, len(g.profiles))
	for name := range g.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefaultProfile sets the profile consulted by IsWalkable. nil clears it.
func (g *Grid) SetDefaultProfile(p *Profile) {
	g.defaultProfile = p
}

// DefaultProfile returns the current default profile, possibly nil
func (g *Grid) DefaultProfile() *Profile {
	return g.defaultProfile
}

// SetLayer stores a named binary terrain layer (for example the road mask).
// A nil layer removes the entry.
func (g *Grid) SetLayer(name string, layer *Profile) {
	if layer == nil {
		delete(g.layers, name)
		return
	}
	g.layers[name] = layer
}

// Layer returns the named terrain layer, or nil
func (g *Grid) Layer(name string) *Profile {
	return g.layers[name]
}

// Clear empties every slot. Profiles and layers are kept.
func (g *Grid) Clear() {
	for y := range g.cells {
		for x := range g.cells[y] {
			g.cells[y][x] = nil
		}
	}
}

// Each calls fn for every populated cell in row-major order
func (g *Grid) Each(fn func(c *Cell)) {
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if c := g.cells[y][x]; c != nil {
				fn(c)
			}
		}
	}
}

// Clone returns a deep copy of the cells. Profiles and layers are shared since
// they are immutable.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.width, g.height)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if c := g.cells[y][x]; c != nil {
				cp := *c
				out.cells[y][x] = &cp
			}
		}
	}
	out.defaultProfile = g.defaultProfile
	for k, v := range g.profiles {
		out.profiles[k] = v
	}
	for k, v := range g.layers {
		out.layers[k] = v
	}
	return out
}

// Count returns how many populated cells have the given type
func (g *Grid) Count(t CellType) int {
	n := 0
	g.Each(func(c *Cell) {
		if c.Type == t {
			n++
		}
	})
	return n
}
