package service

import (
	"time"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
)

// SessionInfo provides information about a rescue session
type SessionInfo struct {
	ID             string                 `json:"id"`
	ConfigName     string                 `json:"config_name"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
	WorldState     *engine.WorldState     `json:"world_state"`
	Scenario       *engine.ScenarioConfig `json:"scenario"`
	Map            []string               `json:"map"`
}

// MoveResult contains the result of a single agent step
type MoveResult struct {
	Success       bool               `json:"success"`
	AgentID       string             `json:"agent_id"`
	Step          engine.StepResult  `json:"step"`
	WorldState    *engine.WorldState `json:"world_state"`
	Message       string             `json:"message"`
	Events        []GameEvent        `json:"events,omitempty"`
	AttemptedTo   *AttemptInfo       `json:"attempted_to,omitempty"`
	PossibleMoves []string           `json:"possible_moves,omitempty"`
	LocalView3x3  []string           `json:"local_view_3x3,omitempty"`
}

// BulkMoveResult contains the result of several steps for one agent
type BulkMoveResult struct {
	AgentID        string              `json:"agent_id"`
	RequestedMoves int                 `json:"requested_moves"`
	MovesExecuted  int                 `json:"moves_executed"`
	Success        bool                `json:"success"`
	Steps          []engine.StepResult `json:"steps"`
	Events         []GameEvent         `json:"events"`
	StoppedReason  string              `json:"stopped_reason,omitempty"`
	StopReasonCode string              `json:"stop_reason_code,omitempty"` // an outcome name or "victory"
	StoppedOnMove  int                 `json:"stopped_on_move,omitempty"`  // 1-based
	Truncated      bool                `json:"truncated,omitempty"`
	Limit          int                 `json:"limit,omitempty"`

	StartPos   grid.Position `json:"start_pos"`
	EndPos     grid.Position `json:"end_pos"`
	ScoreDelta int           `json:"score_delta"`

	AttemptedTo   *AttemptInfo       `json:"attempted_to,omitempty"`
	WorldState    *engine.WorldState `json:"world_state"`
	Victory       bool               `json:"victory"`
	Message       string             `json:"message,omitempty"`
	PossibleMoves []string           `json:"possible_moves,omitempty"`
	LocalView3x3  []string           `json:"local_view_3x3,omitempty"`
}

// FollowRouteResult wraps a FollowRoute call with the resulting world
type FollowRouteResult struct {
	engine.FollowResult
	AgentID    string             `json:"agent_id"`
	Events     []GameEvent        `json:"events"`
	WorldState *engine.WorldState `json:"world_state"`
	Message    string             `json:"message"`
}

// RouteResult is a planned route for one agent
type RouteResult struct {
	Plan  engine.RoutePlan `json:"plan"`
	Agent engine.Agent     `json:"agent"`
	Map   []string         `json:"map"`
}

// BatchRouteResult holds plans computed together over one snapshot
type BatchRouteResult struct {
	Plans []engine.RoutePlan `json:"plans"`
	Map   []string           `json:"map"`
}

// AttemptInfo details a rejected target cell
type AttemptInfo struct {
	X          int                 `json:"x"`
	Y          int                 `json:"y"`
	TileChar   string              `json:"tile_char"`
	TileType   string              `json:"tile_type"`
	Outcome    movement.Outcome    `json:"outcome"`
	RoadSource movement.RoadSource `json:"road_source,omitempty"`
}

// CellInfo describes a tile as each actor class sees it
type CellInfo struct {
	X          int                 `json:"x"`
	Y          int                 `json:"y"`
	Type       grid.CellType       `json:"type"`
	Occupied   bool                `json:"occupied"`
	Walkable   map[string]bool     `json:"walkable"` // keyed by profile name
	Road       bool                `json:"road"`
	RoadSource movement.RoadSource `json:"road_source"`
	Agents     []string            `json:"agents,omitempty"`
	Victims    []string            `json:"victims,omitempty"`
}

// GameEvent represents something that happened during a call
type GameEvent struct {
	Type      string        `json:"type"` // "move", "rejected", "pickup", "delivery", "victory", "reset"
	AgentID   string        `json:"agent_id,omitempty"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Position  grid.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	Order   string `json:"order"`    // "asc" or "desc"
	AgentID string `json:"agent_id"` // empty means every agent
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a scenario file
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Agents      int    `json:"agents"`
	Victims     int    `json:"victims"`
}

// NearestInfo reports the closest waiting victim and hospital to an agent
type NearestInfo struct {
	AgentID          string         `json:"agent_id"`
	Victim           *engine.Victim `json:"victim,omitempty"`
	VictimDistance   int            `json:"victim_distance,omitempty"`
	Hospital         *grid.Position `json:"hospital,omitempty"`
	HospitalDistance int            `json:"hospital_distance,omitempty"`
}
