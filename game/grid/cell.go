package grid

import (
	"fmt"
	"strings"
)

// CellType represents different types of grid cells
type CellType string

const (
	Road     CellType = "road"
	Rubble   CellType = "rubble"
	Hospital CellType = "hospital"
	Building CellType = "building"
	Empty    CellType = "empty"
)

// ParseCellType maps a terrain name to its CellType. "obstacle" is accepted as rubble.
func ParseCellType(s string) (CellType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "road":
		return Road, nil
	case "rubble", "obstacle":
		return Rubble, nil
	case "hospital":
		return Hospital, nil
	case "building":
		return Building, nil
	case "empty", "":
		return Empty, nil
	default:
		return "", fmt.Errorf("unknown cell type %q", s)
	}
}

// Walkable reports the intrinsic passability of the type, used when no profile applies
func (t CellType) Walkable() bool {
	return t == Road || t == Hospital
}

// Cell represents a single grid cell
type Cell struct {
	Type     CellType `json:"type"`
	Occupied bool     `json:"occupied,omitempty"`

	// Coordinates are stamped by Grid.SetCell and always match the slot.
	X int `json:"x"`
	Y int `json:"y"`
}

// Position returns the cell's grid coordinates
func (c *Cell) Position() Position {
	return Position{X: c.X, Y: c.Y}
}
