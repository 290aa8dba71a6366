package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
)

var (
	ErrAgentNotFound    = errors.New("agent not found")
	ErrUnknownDirection = errors.New("unknown direction")
	ErrNotAdjacent      = errors.New("target is not adjacent")
	ErrNoRoute          = errors.New("agent has no route")
)

// Engine provides the main interface for rescue world operations
type Engine interface {
	// World state management
	Snapshot() *WorldState
	Restore(state *WorldState) error
	Reset() *WorldState
	IsVictory() bool
	Ledger() Ledger

	// Agents
	Agents() []Agent
	Agent(id string) (Agent, error)
	Victims() []Victim

	// Routing
	PlanRoute(agentID string, goal grid.Position) (RoutePlan, error)
	PlanRoutes(ctx context.Context, reqs []RouteRequest, workers int) ([]RoutePlan, error)
	FollowRoute(agentID string, maxSteps int) (FollowResult, error)

	// Movement
	Step(agentID, direction string) (StepResult, error)
	StepTo(agentID string, to grid.Position) (StepResult, error)
	BulkStep(agentID string, directions []string) ([]StepResult, error)
	PossibleMoves(agentID string) ([]string, error)

	// Configuration
	Config() *ScenarioConfig
	SetConfig(config *ScenarioConfig) error

	// History
	MoveHistory() []MoveHistoryEntry
	LastMove() *MoveHistoryEntry
}

// RescueEngine implements Engine. It is not safe for concurrent use; the
// service layer serialises access per session. Occupancy changes always go
// through the world's movement.Validator.
type RescueEngine struct {
	config    *ScenarioConfig
	grid      *grid.Grid
	validator *movement.Validator

	agents      map[string]*Agent
	agentOrder  []string
	policies    map[string]movement.Policy
	victims     map[string]*Victim
	victimOrder []string

	ledger  Ledger
	message string
	victory bool

	moveHistory       []MoveHistoryEntry
	totalMoves        int
	currentMoves      []MoveHistoryEntry
	currentMovesCount int

	log *zap.Logger
}

// NewEngine validates the scenario and builds a world from it
func NewEngine(config *ScenarioConfig, log *zap.Logger) (*RescueEngine, error) {
	if err := ValidateScenarioConfig(config); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	config = cloneScenario(config)
	normalizeScenario(config)

	e := &RescueEngine{config: config, log: log}
	if err := e.initWorld(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithDefaults creates an engine over DefaultScenario
func NewEngineWithDefaults() *RescueEngine {
	e, err := NewEngine(DefaultScenario(), nil)
	if err != nil {
		panic(fmt.Sprintf("engine: default scenario is invalid: %v", err))
	}
	return e
}

// initWorld rebuilds grid, agents and victims from the config
func (e *RescueEngine) initWorld() error {
	g, err := BuildGrid(e.config)
	if err != nil {
		return err
	}
	e.grid = g
	e.validator = movement.NewValidator(g)

	e.agents = make(map[string]*Agent, len(e.config.Agents))
	e.agentOrder = nil
	e.policies = make(map[string]movement.Policy, len(e.config.Agents))
	for _, ac := range e.config.Agents {
		if err := e.addAgent(Agent{ID: ac.ID, Kind: ac.Kind, Pos: ac.Start}); err != nil {
			return err
		}
	}

	e.victims = make(map[string]*Victim, len(e.config.Victims))
	e.victimOrder = nil
	for _, vc := range e.config.Victims {
		e.victims[vc.ID] = &Victim{ID: vc.ID, Pos: vc.Position, Status: VictimWaiting}
		e.victimOrder = append(e.victimOrder, vc.ID)
	}

	e.ledger = Ledger{}
	e.victory = false
	e.message = e.config.Messages.Welcome
	return nil
}

func (e *RescueEngine) addAgent(a Agent) error {
	policy, err := movement.PolicyFor(a.Kind, e.grid)
	if err != nil {
		return err
	}
	if !e.grid.IsValid(a.Pos.X, a.Pos.Y) {
		return fmt.Errorf("agent %s at %s is out of bounds", a.ID, a.Pos)
	}
	if policy.Kind() == movement.KindVehicle {
		cell := e.grid.CellAt(a.Pos)
		if cell == nil || cell.Type != grid.Road {
			return fmt.Errorf("vehicle %s at %s is not on a road", a.ID, a.Pos)
		}
		if cell.Occupied {
			return fmt.Errorf("vehicle %s at %s shares its tile with another vehicle", a.ID, a.Pos)
		}
		e.validator.SetOccupied(a.Pos, true)
	}
	agent := a
	agent.Route = append([]grid.Position(nil), a.Route...)
	e.agents[a.ID] = &agent
	e.agentOrder = append(e.agentOrder, a.ID)
	e.policies[a.ID] = policy
	return nil
}

func (e *RescueEngine) agent(id string) (*Agent, movement.Policy, error) {
	a, ok := e.agents[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a, e.policies[id], nil
}

// Grid exposes the live grid for read-only inspection
func (e *RescueEngine) Grid() *grid.Grid {
	return e.grid
}

// Snapshot returns a deep copy of the world state
func (e *RescueEngine) Snapshot() *WorldState {
	state := &WorldState{
		ConfigName:        e.config.Name,
		Width:             e.grid.Width(),
		Height:            e.grid.Height(),
		Cells:             make([][]grid.Cell, e.grid.Height()),
		Agents:            e.Agents(),
		Victims:           e.Victims(),
		Ledger:            e.ledger,
		Message:           e.message,
		Victory:           e.victory,
		MoveHistory:       append([]MoveHistoryEntry{}, e.moveHistory...),
		TotalMoves:        e.totalMoves,
		CurrentMoves:      append([]MoveHistoryEntry{}, e.currentMoves...),
		CurrentMovesCount: e.currentMovesCount,
	}
	for y := range state.Cells {
		state.Cells[y] = make([]grid.Cell, e.grid.Width())
		for x := range state.Cells[y] {
			if c := e.grid.Cell(x, y); c != nil {
				state.Cells[y][x] = *c
			}
		}
	}
	return state
}

// Restore replaces the dynamic world state (agents, victims, ledger,
// history). Terrain always comes from the scenario; occupancy is derived
// from vehicle positions.
func (e *RescueEngine) Restore(state *WorldState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.ConfigName != "" && state.ConfigName != e.config.Name {
		return fmt.Errorf("state belongs to scenario %q, engine runs %q", state.ConfigName, e.config.Name)
	}

	g, err := BuildGrid(e.config)
	if err != nil {
		return err
	}
	prev := *e
	e.grid = g
	e.validator = movement.NewValidator(g)
	e.agents = make(map[string]*Agent, len(state.Agents))
	e.agentOrder = nil
	e.policies = make(map[string]movement.Policy, len(state.Agents))

	for _, a := range state.Agents {
		if err := e.addAgent(a); err != nil {
			*e = prev
			return fmt.Errorf("restore: %w", err)
		}
	}

	e.victims = make(map[string]*Victim, len(state.Victims))
	e.victimOrder = nil
	for _, v := range state.Victims {
		victim := v
		e.victims[v.ID] = &victim
		e.victimOrder = append(e.victimOrder, v.ID)
	}

	e.ledger = state.Ledger
	e.message = state.Message
	e.victory = state.Victory
	e.moveHistory = append([]MoveHistoryEntry{}, state.MoveHistory...)
	e.totalMoves = state.TotalMoves
	e.currentMoves = append([]MoveHistoryEntry{}, state.CurrentMoves...)
	e.currentMovesCount = state.CurrentMovesCount
	return nil
}

// Reset rebuilds the world from the scenario
func (e *RescueEngine) Reset() *WorldState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.moveHistory
	prevTotal := e.totalMoves

	if err := e.initWorld(); err != nil {
		e.log.Error("reset failed", zap.String("scenario", e.config.Name), zap.Error(err))
	}

	e.moveHistory = prevHistory
	e.totalMoves = prevTotal
	e.currentMoves = []MoveHistoryEntry{}
	e.currentMovesCount = 0

	return e.Snapshot()
}

// IsVictory reports whether every victim has been delivered
func (e *RescueEngine) IsVictory() bool {
	return e.victory
}

// Ledger returns the current score state
func (e *RescueEngine) Ledger() Ledger {
	return e.ledger
}

// Message returns the latest player-facing message
func (e *RescueEngine) Message() string {
	return e.message
}

// Agents returns copies of all agents in scenario order
func (e *RescueEngine) Agents() []Agent {
	out := make([]Agent, 0, len(e.agentOrder))
	for _, id := range e.agentOrder {
		a := *e.agents[id]
		a.Route = append([]grid.Position(nil), a.Route...)
		out = append(out, a)
	}
	return out
}

// Agent returns a copy of one agent
func (e *RescueEngine) Agent(id string) (Agent, error) {
	a, _, err := e.agent(id)
	if err != nil {
		return Agent{}, err
	}
	cp := *a
	cp.Route = append([]grid.Position(nil), a.Route...)
	return cp, nil
}

// Victims returns copies of all victims in scenario order
func (e *RescueEngine) Victims() []Victim {
	out := make([]Victim, 0, len(e.victimOrder))
	for _, id := range e.victimOrder {
		out = append(out, *e.victims[id])
	}
	return out
}

// RemainingVictims counts victims not yet delivered
func (e *RescueEngine) RemainingVictims() int {
	n := 0
	for _, v := range e.victims {
		if v.Status != VictimDelivered {
			n++
		}
	}
	return n
}

// Config returns the scenario the engine runs
func (e *RescueEngine) Config() *ScenarioConfig {
	return e.config
}

// SetConfig switches scenario and rebuilds the world
func (e *RescueEngine) SetConfig(config *ScenarioConfig) error {
	if err := ValidateScenarioConfig(config); err != nil {
		return err
	}
	config = cloneScenario(config)
	normalizeScenario(config)

	prev := *e
	e.config = config
	if err := e.initWorld(); err != nil {
		*e = prev
		return err
	}
	return nil
}

// MoveHistory returns the cumulative move history
func (e *RescueEngine) MoveHistory() []MoveHistoryEntry {
	return e.moveHistory
}

// LastMove returns the last move attempted, or nil if none
func (e *RescueEngine) LastMove() *MoveHistoryEntry {
	if len(e.moveHistory) == 0 {
		return nil
	}
	return &e.moveHistory[len(e.moveHistory)-1]
}

// BulkStep executes several steps for one agent, stopping at the first rejection
func (e *RescueEngine) BulkStep(agentID string, directions []string) ([]StepResult, error) {
	if len(directions) > MaxBulkMoves {
		return nil, fmt.Errorf("too many moves: %d (max %d)", len(directions), MaxBulkMoves)
	}
	results := make([]StepResult, 0, len(directions))
	for _, dir := range directions {
		res, err := e.Step(agentID, dir)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if !res.Decision.Accepted() || e.victory {
			break
		}
	}
	return results, nil
}
