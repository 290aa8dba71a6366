package pathfind

import (
	"fmt"

	"github.com/wricardo/rescue-grid/game/grid"
)

// Direction names used by the engine and transports
const (
	Up    = "up"
	Down  = "down"
	Left  = "left"
	Right = "right"
)

// Delta returns the unit offset for a direction name
func Delta(dir string) (dx, dy int, ok bool) {
	switch dir {
	case Up:
		return 0, -1, true
	case Down:
		return 0, 1, true
	case Left:
		return -1, 0, true
	case Right:
		return 1, 0, true
	}
	return 0, 0, false
}

// Directions converts a path into a list of direction names. Consecutive
// positions must be 4-connected neighbors.
func Directions(path []grid.Position) ([]string, error) {
	if len(path) < 2 {
		return nil, nil
	}
	dirs := make([]string, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		from, to := path[i-1], path[i]
		switch {
		case to.X == from.X && to.Y == from.Y+1:
			dirs = append(dirs, Down)
		case to.X == from.X+1 && to.Y == from.Y:
			dirs = append(dirs, Right)
		case to.X == from.X && to.Y == from.Y-1:
			dirs = append(dirs, Up)
		case to.X == from.X-1 && to.Y == from.Y:
			dirs = append(dirs, Left)
		default:
			return nil, fmt.Errorf("step %d: %s to %s is not a single move", i, from, to)
		}
	}
	return dirs, nil
}
