package movement

import (
	"fmt"
	"strings"

	"github.com/wricardo/rescue-grid/game/grid"
)

// Kind names an actor class
type Kind string

const (
	KindPedestrian Kind = "pedestrian"
	KindVehicle    Kind = "vehicle"
)

// RoadLayer is the conventional name of the binary road mask
const RoadLayer = "road"

// ParseKind maps a name to an actor class
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPedestrian, "":
		return KindPedestrian, nil
	case KindVehicle:
		return KindVehicle, nil
	}
	return "", fmt.Errorf("unknown actor kind %q", s)
}

// Mover is anything with a tile position
type Mover interface {
	Position() grid.Position
	SetPosition(p grid.Position)
}

// Policy is the move contract of one actor class. The unexported methods
// keep the set of policies closed to this package.
type Policy interface {
	Kind() Kind
	check(g *grid.Grid, from, to grid.Position) Decision
	commit(g *grid.Grid, m Mover, from, to grid.Position)
}

// Pedestrian moves anywhere inside the grid. Occupancy and profiles are not
// consulted and a pedestrian never marks cells occupied.
type Pedestrian struct{}

// Kind returns KindPedestrian
func (Pedestrian) Kind() Kind { return KindPedestrian }

func (Pedestrian) check(g *grid.Grid, from, to grid.Position) Decision {
	d := Decision{Actor: KindPedestrian, From: from, To: to}
	if !g.IsValid(to.X, to.Y) {
		d.Outcome = RejectedBounds
		return d
	}
	d.Outcome = Accepted
	return d
}

func (Pedestrian) commit(_ *grid.Grid, m Mover, _, to grid.Position) {
	m.SetPosition(to)
}

// Vehicle is road-bound, blocked by occupancy and barred from hospitals.
type Vehicle struct {
	// Profile is consulted last. nil skips the check.
	Profile *grid.Profile
	Roads   RoadClassifier
}

// Kind returns KindVehicle
func (Vehicle) Kind() Kind { return KindVehicle }

// check runs bounds, occupancy, hospital, road and profile in that order and
// stops at the first failure.
func (v Vehicle) check(g *grid.Grid, from, to grid.Position) Decision {
	d := Decision{Actor: KindVehicle, From: from, To: to}
	if !g.IsValid(to.X, to.Y) {
		d.Outcome = RejectedBounds
		return d
	}
	cell := g.CellAt(to)
	if cell == nil {
		d.Outcome = RejectedImpassable
		return d
	}
	if cell.Occupied {
		d.Outcome = RejectedOccupied
		return d
	}
	if cell.Type == grid.Hospital {
		d.Outcome = RejectedForbiddenTerrain
		return d
	}
	road, src := v.Roads.IsRoad(g, to.X, to.Y)
	d.RoadSource = src
	if !road {
		d.Outcome = RejectedImpassable
		return d
	}
	if v.Profile != nil && !v.Profile.IsWalkable(to.X, to.Y) {
		d.Outcome = RejectedImpassable
		return d
	}
	d.Outcome = Accepted
	return d
}

func (Vehicle) commit(g *grid.Grid, m Mover, from, to grid.Position) {
	g.SetOccupied(from.X, from.Y, false)
	m.SetPosition(to)
	g.SetOccupied(to.X, to.Y, true)
}

// RoadClassifier resolves whether a tile is road. Resolution order:
// Classify if set, then the named layer if the grid has it, then the cell type.
type RoadClassifier struct {
	Classify  func(x, y int) bool
	LayerName string
}

// IsRoad answers for (x,y) and reports which source decided
func (rc RoadClassifier) IsRoad(g *grid.Grid, x, y int) (bool, RoadSource) {
	if rc.Classify != nil {
		return rc.Classify(x, y), RoadSourceClassifier
	}
	if rc.LayerName != "" {
		if layer := g.Layer(rc.LayerName); layer != nil {
			return layer.IsWalkable(x, y), RoadSourceLayer
		}
	}
	c := g.Cell(x, y)
	return c != nil && c.Type == grid.Road, RoadSourceCellType
}

// PolicyFor builds the policy for an actor class against g. Vehicles use the
// grid's profile named after their kind and the RoadLayer mask when present.
func PolicyFor(kind Kind, g *grid.Grid) (Policy, error) {
	switch kind {
	case KindPedestrian:
		return Pedestrian{}, nil
	case KindVehicle:
		return Vehicle{
			Profile: g.Profile(string(KindVehicle)),
			Roads:   RoadClassifier{LayerName: RoadLayer},
		}, nil
	}
	return nil, fmt.Errorf("unknown actor kind %q", kind)
}
