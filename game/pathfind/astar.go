package pathfind

import (
	"container/heap"

	"github.com/zyedidia/generic/mapset"

	"github.com/wricardo/rescue-grid/game/grid"
)

// Status tags how a search ended
type Status string

const (
	StatusExact    Status = "exact"
	StatusPartial  Status = "partial"
	StatusNotFound Status = "not_found"
)

// Reason explains why a search stopped short of the goal
type Reason string

const (
	ReasonNone      Reason = "none"
	ReasonBudget    Reason = "budget"
	ReasonExhausted Reason = "exhausted"
)

// Options configures a search
type Options struct {
	// MaxNodes caps the number of expanded nodes. Zero or negative means unlimited.
	MaxNodes int `json:"max_nodes,omitempty" yaml:"max_nodes,omitempty"`
	// ReturnClosestOnFail returns the path to the closed node nearest the goal
	// instead of an empty path when the goal is not reached.
	ReturnClosestOnFail bool `json:"return_closest_on_fail,omitempty" yaml:"return_closest_on_fail,omitempty"`
}

// Result is the outcome of a single search
type Result struct {
	Path     []grid.Position `json:"path"`
	Status   Status          `json:"status"`
	Reason   Reason          `json:"reason"`
	Expanded int             `json:"expanded"`
}

// Found reports whether the path reaches the goal
func (r Result) Found() bool { return r.Status == StatusExact }

// Steps returns the number of moves in the path
func (r Result) Steps() int {
	if len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}

type pathNode struct {
	pos   grid.Position
	g     int
	h     int
	f     int
	index int
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.g != b.g {
		return a.g < b.g
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.pos.Less(b.pos)
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath searches from start to goal. Improved nodes are re-inserted
// rather than decreased in place; stale duplicates are skipped when popped.
func FindPath(start, goal grid.Position, nb Neighbors, opts Options) Result {
	if start == goal {
		return Result{Path: []grid.Position{start}, Status: StatusExact, Reason: ReasonNone}
	}

	open := &pathQueue{}
	h0 := grid.ManhattanDistance(start, goal)
	heap.Push(open, &pathNode{pos: start, g: 0, h: h0, f: h0})

	gScore := map[grid.Position]int{start: 0}
	cameFrom := make(map[grid.Position]grid.Position)
	closed := mapset.New[grid.Position]()

	closest, closestH := start, h0
	expanded := 0
	reason := ReasonExhausted

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if closed.Has(current.pos) {
			continue
		}
		if current.pos == goal {
			return Result{
				Path:     reconstructPath(cameFrom, start, goal),
				Status:   StatusExact,
				Reason:   ReasonNone,
				Expanded: expanded,
			}
		}
		if opts.MaxNodes > 0 && expanded >= opts.MaxNodes {
			reason = ReasonBudget
			break
		}

		closed.Put(current.pos)
		expanded++
		if current.h < closestH {
			closest, closestH = current.pos, current.h
		}

		for _, n := range nb.Neighbors(current.pos) {
			if closed.Has(n) {
				continue
			}
			tentative := current.g + 1
			if prev, ok := gScore[n]; ok && tentative >= prev {
				continue
			}
			gScore[n] = tentative
			cameFrom[n] = current.pos
			h := grid.ManhattanDistance(n, goal)
			heap.Push(open, &pathNode{pos: n, g: tentative, h: h, f: tentative + h})
		}
	}

	if opts.ReturnClosestOnFail && closest != start {
		return Result{
			Path:     reconstructPath(cameFrom, start, closest),
			Status:   StatusPartial,
			Reason:   reason,
			Expanded: expanded,
		}
	}
	return Result{Status: StatusNotFound, Reason: reason, Expanded: expanded}
}

func reconstructPath(cameFrom map[grid.Position]grid.Position, start, end grid.Position) []grid.Position {
	path := []grid.Position{end}
	for cur := end; cur != start; {
		prev, ok := cameFrom[cur]
		if !ok {
			return nil
		}
		path = append(path, prev)
		cur = prev
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
