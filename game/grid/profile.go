package grid

import "fmt"

// Profile is an immutable walkability matrix indexed [y][x]. It answers
// passability independent of occupancy. Replace a profile by swapping the
// whole value on the grid.
type Profile struct {
	width  int
	height int
	cells  []bool
}

// NewProfile builds a profile where every coordinate has the given passability.
// Negative dimensions are a programming error and panic.
func NewProfile(width, height int, walkable bool) *Profile {
	return NewProfileFunc(width, height, func(int, int) bool { return walkable })
}

// NewProfileFunc builds a profile by classifying every coordinate once
func NewProfileFunc(width, height int, walkable func(x, y int) bool) *Profile {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("grid: invalid profile dimensions %dx%d", width, height))
	}
	p := &Profile{width: width, height: height, cells: make([]bool, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p.cells[y*width+x] = walkable(x, y)
		}
	}
	return p
}

// NewProfileFromRows copies a bool matrix indexed [y][x]. Ragged rows panic.
func NewProfileFromRows(rows [][]bool) *Profile {
	height := len(rows)
	width := 0
	if height > 0 {
		width = len(rows[0])
	}
	for y, row := range rows {
		if len(row) != width {
			panic(fmt.Sprintf("grid: profile row %d has %d columns, want %d", y, len(row), width))
		}
	}
	return NewProfileFunc(width, height, func(x, y int) bool { return rows[y][x] })
}

// ProfileFromGrid classifies every populated cell of g. Empty slots are blocked.
func ProfileFromGrid(g *Grid, walkable func(c *Cell) bool) *Profile {
	return NewProfileFunc(g.Width(), g.Height(), func(x, y int) bool {
		c := g.Cell(x, y)
		return c != nil && walkable(c)
	})
}

// Width returns the number of columns
func (p *Profile) Width() int { return p.width }

// Height returns the number of rows
func (p *Profile) Height() int { return p.height }

// IsWalkable reports passability. Out-of-bounds coordinates are never walkable.
func (p *Profile) IsWalkable(x, y int) bool {
	if p == nil || x < 0 || y < 0 || x >= p.width || y >= p.height {
		return false
	}
	return p.cells[y*p.width+x]
}

// Merge intersects profiles: a coordinate is walkable only if every input
// allows it. The result spans the smallest common dimensions. nil inputs are
// skipped; with no usable input Merge returns nil.
func Merge(profiles ...*Profile) *Profile {
	var in []*Profile
	for _, p := range profiles {
		if p != nil {
			in = append(in, p)
		}
	}
	if len(in) == 0 {
		return nil
	}
	width, height := in[0].width, in[0].height
	for _, p := range in[1:] {
		width = min(width, p.width)
		height = min(height, p.height)
	}
	return NewProfileFunc(width, height, func(x, y int) bool {
		for _, p := range in {
			if !p.IsWalkable(x, y) {
				return false
			}
		}
		return true
	})
}
