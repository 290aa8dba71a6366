package engine

import (
	"fmt"

	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
)

// FindNearestWaitingVictim returns the waiting victim closest to from by
// Manhattan distance. Ties keep the earlier victim.
func FindNearestWaitingVictim(victims []Victim, from grid.Position) (Victim, int, bool) {
	minDistance := -1
	var nearest Victim
	for _, v := range victims {
		if v.Status != VictimWaiting {
			continue
		}
		distance := grid.ManhattanDistance(from, v.Pos)
		if minDistance == -1 || distance < minDistance {
			minDistance = distance
			nearest = v
		}
	}
	return nearest, minDistance, minDistance != -1
}

// FindNearestHospital returns the hospital cell closest to from
func FindNearestHospital(g *grid.Grid, from grid.Position) (grid.Position, int, bool) {
	minDistance := -1
	var nearest grid.Position
	g.Each(func(c *grid.Cell) {
		if c.Type != grid.Hospital {
			return
		}
		distance := grid.ManhattanDistance(from, c.Position())
		if minDistance == -1 || distance < minDistance {
			minDistance = distance
			nearest = c.Position()
		}
	})
	return nearest, minDistance, minDistance != -1
}

// HospitalApproaches lists tiles from which a delivery can be made: hospital
// cells and their orthogonal neighbors, in row-major order without repeats.
func HospitalApproaches(g *grid.Grid) []grid.Position {
	seen := make(map[grid.Position]bool)
	var out []grid.Position
	g.Each(func(c *grid.Cell) {
		if c.Type != grid.Hospital {
			return
		}
		p := c.Position()
		for _, q := range []grid.Position{p, p.Add(0, -1), p.Add(-1, 0), p.Add(1, 0), p.Add(0, 1)} {
			if g.IsValid(q.X, q.Y) && !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	})
	return out
}

// NearestVictim finds the closest waiting victim to an agent
func (e *RescueEngine) NearestVictim(agentID string) (Victim, int, error) {
	a, _, err := e.agent(agentID)
	if err != nil {
		return Victim{}, 0, err
	}
	v, d, ok := FindNearestWaitingVictim(e.Victims(), a.Pos)
	if !ok {
		return Victim{}, 0, fmt.Errorf("no waiting victims")
	}
	return v, d, nil
}

// NearestHospital finds the closest hospital cell to an agent
func (e *RescueEngine) NearestHospital(agentID string) (grid.Position, int, error) {
	a, _, err := e.agent(agentID)
	if err != nil {
		return grid.Position{}, 0, err
	}
	p, d, ok := FindNearestHospital(e.grid, a.Pos)
	if !ok {
		return grid.Position{}, 0, fmt.Errorf("no hospitals")
	}
	return p, d, nil
}

// RenderASCII draws the world with agents and waiting victims overlaid.
// Vehicles are 'A', pedestrians 'P', waiting victims 'V'.
func RenderASCII(state *WorldState) []string {
	glyph := map[grid.CellType]byte{
		grid.Road:     CharRoad,
		grid.Rubble:   CharRubble,
		grid.Hospital: CharHospital,
		grid.Building: CharBuilding,
		grid.Empty:    CharEmpty,
	}
	rows := make([][]byte, state.Height)
	for y := range rows {
		rows[y] = make([]byte, state.Width)
		for x := range rows[y] {
			b, ok := glyph[state.Cells[y][x].Type]
			if !ok {
				b = ' '
			}
			rows[y][x] = b
		}
	}
	inside := func(p grid.Position) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < state.Width && p.Y < state.Height
	}
	for _, v := range state.Victims {
		if v.Status == VictimWaiting && inside(v.Pos) {
			rows[v.Pos.Y][v.Pos.X] = 'V'
		}
	}
	for _, a := range state.Agents {
		if !inside(a.Pos) {
			continue
		}
		if a.Kind == movement.KindVehicle {
			rows[a.Pos.Y][a.Pos.X] = 'A'
		} else {
			rows[a.Pos.Y][a.Pos.X] = 'P'
		}
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r)
	}
	return out
}
