package engine

import (
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
	"github.com/wricardo/rescue-grid/game/pathfind"
)

const (
	// Validation constants
	MinGridSize  = 3
	MaxGridSize  = 64
	MaxAgents    = 16
	MaxVictims   = 64
	MaxBulkMoves = 50

	// Scoring
	PickupPoints   = 1
	DeliveryPoints = 10
)

// Layout characters
const (
	CharRoad     = 'R'
	CharRubble   = 'X'
	CharHospital = 'H'
	CharBuilding = 'B'
	CharEmpty    = '.'
	CharHazard   = '#'
)

// Profile names registered on every world
const (
	ProfilePedestrian = string(movement.KindPedestrian)
	ProfileVehicle    = string(movement.KindVehicle)
)

// AgentConfig places one agent in a scenario
type AgentConfig struct {
	ID    string        `json:"id,omitempty" yaml:"id,omitempty"`
	Kind  movement.Kind `json:"kind" yaml:"kind" jsonschema:"enum=pedestrian,enum=vehicle"`
	Start grid.Position `json:"start" yaml:"start"`
}

// VictimConfig places one victim in a scenario
type VictimConfig struct {
	ID       string        `json:"id,omitempty" yaml:"id,omitempty"`
	Position grid.Position `json:"position" yaml:"position"`
}

// Messages are the player-facing texts of a scenario
type Messages struct {
	Welcome   string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Pickup    string `json:"pickup,omitempty" yaml:"pickup,omitempty"`
	Delivered string `json:"delivered,omitempty" yaml:"delivered,omitempty"`
	Victory   string `json:"victory,omitempty" yaml:"victory,omitempty"`
	Blocked   string `json:"blocked,omitempty" yaml:"blocked,omitempty"`
}

// ScenarioConfig describes a rescue map, loaded from JSON or YAML
type ScenarioConfig struct {
	Name        string            `json:"name" yaml:"name" jsonschema:"required"`
	Description string            `json:"description" yaml:"description" jsonschema:"required"`
	Layout      []string          `json:"layout" yaml:"layout" jsonschema:"required"`
	Legend      map[string]string `json:"legend,omitempty" yaml:"legend,omitempty"`
	Hazards     []string          `json:"hazards,omitempty" yaml:"hazards,omitempty"`
	Agents      []AgentConfig     `json:"agents" yaml:"agents"`
	Victims     []VictimConfig    `json:"victims" yaml:"victims"`

	// DefaultProfile names the profile consulted by plain walkability queries.
	DefaultProfile string           `json:"default_profile,omitempty" yaml:"default_profile,omitempty"`
	Search         pathfind.Options `json:"search,omitempty" yaml:"search,omitempty"`
	Messages       Messages         `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Width returns the layout width
func (c *ScenarioConfig) Width() int {
	if len(c.Layout) == 0 {
		return 0
	}
	return len(c.Layout[0])
}

// Height returns the layout height
func (c *ScenarioConfig) Height() int {
	return len(c.Layout)
}

// Agent is a rescuer on the map. It implements movement.Mover.
type Agent struct {
	ID       string          `json:"id"`
	Kind     movement.Kind   `json:"kind"`
	Pos      grid.Position   `json:"position"`
	Carrying string          `json:"carrying,omitempty"`
	Route    []grid.Position `json:"route,omitempty"`
}

// Position returns the agent's tile
func (a *Agent) Position() grid.Position { return a.Pos }

// SetPosition moves the agent
func (a *Agent) SetPosition(p grid.Position) { a.Pos = p }

// VictimStatus tracks a victim through the rescue cycle
type VictimStatus string

const (
	VictimWaiting   VictimStatus = "waiting"
	VictimCarried   VictimStatus = "carried"
	VictimDelivered VictimStatus = "delivered"
)

// Victim is a person waiting for rescue
type Victim struct {
	ID        string        `json:"id"`
	Pos       grid.Position `json:"position"`
	Status    VictimStatus  `json:"status"`
	CarriedBy string        `json:"carried_by,omitempty"`
}

// Ledger is the score state owned by one world
type Ledger struct {
	Moves      int `json:"moves"`
	Rejected   int `json:"rejected"`
	Pickups    int `json:"pickups"`
	Deliveries int `json:"deliveries"`
	Score      int `json:"score"`
}

// RecordMove counts a validator decision
func (l *Ledger) RecordMove(d movement.Decision) {
	if d.Accepted() {
		l.Moves++
		return
	}
	l.Rejected++
}

// RecordPickup counts a pickup
func (l *Ledger) RecordPickup() {
	l.Pickups++
	l.Score += PickupPoints
}

// RecordDelivery counts a delivery
func (l *Ledger) RecordDelivery() {
	l.Deliveries++
	l.Score += DeliveryPoints
}

// MoveHistoryEntry represents a single move attempt in the history
type MoveHistoryEntry struct {
	AgentID      string           `json:"agent_id"`
	Action       string           `json:"action"`
	FromPosition grid.Position    `json:"from_position"`
	ToPosition   grid.Position    `json:"to_position"`
	Outcome      movement.Outcome `json:"outcome"`
	Success      bool             `json:"success"`
	Score        int              `json:"score"`
	Timestamp    int64            `json:"timestamp"`
	MoveNumber   int              `json:"move_number"`
}

// WorldState is a serialisable snapshot of a world
type WorldState struct {
	ConfigName string        `json:"config_name"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Cells      [][]grid.Cell `json:"cells"`
	Agents     []Agent       `json:"agents"`
	Victims    []Victim      `json:"victims"`
	Ledger     Ledger        `json:"ledger"`
	Message    string        `json:"message"`
	Victory    bool          `json:"victory"`

	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves holds only the moves since the last reset, while
	// MoveHistory stays cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// StepResult is the outcome of a single agent step
type StepResult struct {
	Decision  movement.Decision `json:"decision"`
	PickedUp  string            `json:"picked_up,omitempty"`
	Delivered string            `json:"delivered,omitempty"`
	Message   string            `json:"message"`
}

// FollowResult summarises a FollowRoute call
type FollowResult struct {
	Steps     []StepResult `json:"steps"`
	Completed bool         `json:"completed"`
	Blocked   bool         `json:"blocked"`
	Remaining int          `json:"remaining"`
}

// RouteRequest asks for a route for one agent
type RouteRequest struct {
	AgentID string        `json:"agent_id"`
	Goal    grid.Position `json:"goal"`
}

// RoutePlan pairs an agent with its search result
type RoutePlan struct {
	AgentID    string          `json:"agent_id"`
	Goal       grid.Position   `json:"goal"`
	Result     pathfind.Result `json:"result"`
	Directions []string        `json:"directions,omitempty"`
}
