package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileBounds(t *testing.T) {
	p := NewProfile(2, 2, true)
	assert.True(t, p.IsWalkable(1, 1))
	assert.False(t, p.IsWalkable(2, 0))
	assert.False(t, p.IsWalkable(0, -1))

	var nilProfile *Profile
	assert.False(t, nilProfile.IsWalkable(0, 0))
}

func TestProfileContractViolations(t *testing.T) {
	assert.Panics(t, func() { NewProfile(-1, 2, true) })
	assert.Panics(t, func() { NewProfileFromRows([][]bool{{true, true}, {true}}) })
	assert.NotPanics(t, func() { NewProfile(0, 0, true) })
}

func TestProfileFromRowsCopies(t *testing.T) {
	rows := [][]bool{{true, false}}
	p := NewProfileFromRows(rows)
	rows[0][1] = true
	assert.False(t, p.IsWalkable(1, 0))
}

func TestProfileFromGrid(t *testing.T) {
	g := NewGrid(3, 1)
	g.SetCell(0, 0, &Cell{Type: Road})
	g.SetCell(1, 0, &Cell{Type: Building})

	p := ProfileFromGrid(g, func(c *Cell) bool { return c.Type == Road })
	assert.True(t, p.IsWalkable(0, 0))
	assert.False(t, p.IsWalkable(1, 0))
	assert.False(t, p.IsWalkable(2, 0), "empty slot")
}

func TestMergeIsIntersection(t *testing.T) {
	base := NewProfileFromRows([][]bool{
		{true, true, true},
		{true, false, true},
	})
	hazard := NewProfileFromRows([][]bool{
		{true, false},
		{true, true},
	})

	m := Merge(base, nil, hazard)
	assert.Equal(t, 2, m.Width())
	assert.Equal(t, 2, m.Height())
	assert.True(t, m.IsWalkable(0, 0))
	assert.False(t, m.IsWalkable(1, 0))
	assert.False(t, m.IsWalkable(1, 1))
	assert.False(t, m.IsWalkable(2, 0), "outside merged bounds")

	assert.Nil(t, Merge())
	assert.Nil(t, Merge(nil))
}
