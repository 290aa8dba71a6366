package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
	"github.com/wricardo/rescue-grid/game/pathfind"
)

// neighborsFor returns the search oracle for an actor class over g. Each
// class plans on its own profile.
func neighborsFor(kind movement.Kind, g *grid.Grid) pathfind.Neighbors {
	return pathfind.ProfileNeighbors(g, g.Profile(string(kind)))
}

// PlanRoute computes a route for the agent and stores it for FollowRoute.
// Only an exact route is stored; a partial or empty result clears any
// stored route, so a completed follow always ends on the goal.
func (e *RescueEngine) PlanRoute(agentID string, goal grid.Position) (RoutePlan, error) {
	a, _, err := e.agent(agentID)
	if err != nil {
		return RoutePlan{}, err
	}
	res := pathfind.FindPath(a.Pos, goal, neighborsFor(a.Kind, e.grid), e.config.Search)
	return e.storePlan(a, goal, res), nil
}

// PlanRoutes plans several agents in parallel over one snapshot of the grid
func (e *RescueEngine) PlanRoutes(ctx context.Context, reqs []RouteRequest, workers int) ([]RoutePlan, error) {
	snap := e.validator.Snapshot()
	batch := make([]pathfind.Request, len(reqs))
	for i, r := range reqs {
		a, _, err := e.agent(r.AgentID)
		if err != nil {
			return nil, err
		}
		batch[i] = pathfind.Request{
			Start:     a.Pos,
			Goal:      r.Goal,
			Neighbors: neighborsFor(a.Kind, snap),
			Options:   e.config.Search,
		}
	}

	results, err := pathfind.Batch(ctx, batch, workers)
	if err != nil {
		return nil, err
	}

	plans := make([]RoutePlan, len(reqs))
	for i, r := range reqs {
		plans[i] = e.storePlan(e.agents[r.AgentID], r.Goal, results[i])
	}
	return plans, nil
}

func (e *RescueEngine) storePlan(a *Agent, goal grid.Position, res pathfind.Result) RoutePlan {
	plan := RoutePlan{AgentID: a.ID, Goal: goal, Result: res}
	a.Route = nil
	if res.Found() && len(res.Path) > 1 {
		a.Route = append([]grid.Position(nil), res.Path[1:]...)
	}
	plan.Directions, _ = pathfind.Directions(res.Path)
	e.log.Debug("route planned",
		zap.String("agent", a.ID),
		zap.Stringer("goal", goal),
		zap.String("status", string(res.Status)),
		zap.Int("steps", res.Steps()),
		zap.Int("expanded", res.Expanded))
	return plan
}

// FollowRoute executes up to maxSteps of the agent's stored route, one
// validator call per step. The route is dropped on the first rejection so
// the caller re-plans. maxSteps <= 0 follows the whole route.
func (e *RescueEngine) FollowRoute(agentID string, maxSteps int) (FollowResult, error) {
	a, policy, err := e.agent(agentID)
	if err != nil {
		return FollowResult{}, err
	}
	if len(a.Route) == 0 {
		return FollowResult{Completed: true}, fmt.Errorf("%w: %s", ErrNoRoute, agentID)
	}

	var out FollowResult
	for len(a.Route) > 0 && (maxSteps <= 0 || len(out.Steps) < maxSteps) {
		next := a.Route[0]
		res := e.move(a, policy, next, directionTo(a.Pos, next))
		out.Steps = append(out.Steps, res)
		if !res.Decision.Accepted() {
			out.Blocked = true
			a.Route = nil
			break
		}
		a.Route = a.Route[1:]
		if e.victory {
			break
		}
	}
	out.Remaining = len(a.Route)
	out.Completed = !out.Blocked && out.Remaining == 0
	if out.Remaining == 0 {
		a.Route = nil
	}
	return out, nil
}

// Step moves an agent one tile in a direction
func (e *RescueEngine) Step(agentID, direction string) (StepResult, error) {
	a, policy, err := e.agent(agentID)
	if err != nil {
		return StepResult{}, err
	}
	dx, dy, ok := pathfind.Delta(direction)
	if !ok {
		return StepResult{}, fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}
	a.Route = nil
	return e.move(a, policy, a.Pos.Add(dx, dy), direction), nil
}

// StepTo moves an agent onto an adjacent tile
func (e *RescueEngine) StepTo(agentID string, to grid.Position) (StepResult, error) {
	a, policy, err := e.agent(agentID)
	if err != nil {
		return StepResult{}, err
	}
	if !grid.Adjacent(a.Pos, to) {
		return StepResult{}, fmt.Errorf("%w: %s -> %s", ErrNotAdjacent, a.Pos, to)
	}
	a.Route = nil
	return e.move(a, policy, to, directionTo(a.Pos, to)), nil
}

// PossibleMoves lists the directions the validator would accept right now
func (e *RescueEngine) PossibleMoves(agentID string) ([]string, error) {
	a, policy, err := e.agent(agentID)
	if err != nil {
		return nil, err
	}
	var possible []string
	for _, dir := range []string{pathfind.Up, pathfind.Down, pathfind.Left, pathfind.Right} {
		dx, dy, _ := pathfind.Delta(dir)
		if e.validator.Check(a, policy, a.Pos.Add(dx, dy)).Accepted() {
			possible = append(possible, dir)
		}
	}
	return possible, nil
}

// move runs one validator call and applies rescue effects on acceptance
func (e *RescueEngine) move(a *Agent, policy movement.Policy, to grid.Position, action string) StepResult {
	from := a.Pos
	d := e.validator.Move(a, policy, to)
	e.ledger.RecordMove(d)

	res := StepResult{Decision: d}
	if d.Accepted() {
		res.PickedUp, res.Delivered = e.applyEffects(a)
		e.message = e.effectMessage(a, res)
	} else {
		e.message = fmt.Sprintf("%s [%s: %s at %s]", e.config.Messages.Blocked, a.ID, d.Outcome, to)
		e.log.Debug("move rejected", zap.String("agent", a.ID), zap.Stringer("decision", d))
	}
	res.Message = e.message

	e.addMoveToHistory(a.ID, action, from, a.Pos, d)
	return res
}

// applyEffects picks up a waiting victim on the agent's tile and delivers a
// carried victim when the agent stands on or next to a hospital.
func (e *RescueEngine) applyEffects(a *Agent) (pickedUp, delivered string) {
	if a.Carrying == "" {
		for _, id := range e.victimOrder {
			v := e.victims[id]
			if v.Status == VictimWaiting && v.Pos == a.Pos {
				v.Status = VictimCarried
				v.CarriedBy = a.ID
				a.Carrying = v.ID
				e.ledger.RecordPickup()
				pickedUp = v.ID
				break
			}
		}
	}
	if v, ok := e.victims[a.Carrying]; ok {
		v.Pos = a.Pos
		if e.nearHospital(a.Pos) {
			v.Status = VictimDelivered
			v.CarriedBy = ""
			a.Carrying = ""
			e.ledger.RecordDelivery()
			delivered = v.ID
			if e.RemainingVictims() == 0 {
				e.victory = true
			}
		}
	}
	return pickedUp, delivered
}

func (e *RescueEngine) nearHospital(p grid.Position) bool {
	check := []grid.Position{p, p.Add(0, 1), p.Add(1, 0), p.Add(0, -1), p.Add(-1, 0)}
	for _, q := range check {
		if c := e.grid.CellAt(q); c != nil && c.Type == grid.Hospital {
			return true
		}
	}
	return false
}

func (e *RescueEngine) effectMessage(a *Agent, res StepResult) string {
	msgs := e.config.Messages
	switch {
	case e.victory:
		return fmt.Sprintf(msgs.Victory, e.ledger.Deliveries)
	case res.Delivered != "":
		return fmt.Sprintf(msgs.Delivered, a.ID, res.Delivered, e.ledger.Score)
	case res.PickedUp != "":
		return fmt.Sprintf(msgs.Pickup, a.ID, res.PickedUp)
	}
	return fmt.Sprintf("%s moved to %s", a.ID, a.Pos)
}

// addMoveToHistory appends to both the cumulative and the current segment
func (e *RescueEngine) addMoveToHistory(agentID, action string, from, to grid.Position, d movement.Decision) {
	entry := MoveHistoryEntry{
		AgentID:      agentID,
		Action:       action,
		FromPosition: from,
		ToPosition:   to,
		Outcome:      d.Outcome,
		Success:      d.Accepted(),
		Score:        e.ledger.Score,
		Timestamp:    time.Now().Unix(),
		MoveNumber:   e.totalMoves + 1,
	}
	e.moveHistory = append(e.moveHistory, entry)
	e.totalMoves++

	e.currentMoves = append(e.currentMoves, entry)
	e.currentMovesCount++
}

func directionTo(from, to grid.Position) string {
	dirs, err := pathfind.Directions([]grid.Position{from, to})
	if err != nil || len(dirs) != 1 {
		return "goto"
	}
	return dirs[0]
}
