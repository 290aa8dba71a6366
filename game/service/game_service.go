package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// GameService defines all rescue operations exposed to transports
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Agent Operations
	Move(ctx context.Context, sessionID, agentID, direction string, reset bool) (*MoveResult, error)
	MoveTo(ctx context.Context, sessionID, agentID string, to grid.Position) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID, agentID string, moves []string, reset bool) (*BulkMoveResult, error)
	PlanRoute(ctx context.Context, sessionID, agentID string, goal grid.Position) (*RouteResult, error)
	PlanRoutes(ctx context.Context, sessionID string, reqs []engine.RouteRequest) (*BatchRouteResult, error)
	FollowRoute(ctx context.Context, sessionID, agentID string, maxSteps int) (*FollowRouteResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.WorldState, error)

	// World State
	GetWorldState(ctx context.Context, sessionID string) (*engine.WorldState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	DescribeCell(ctx context.Context, sessionID string, pos grid.Position) (*CellInfo, error)
	Nearest(ctx context.Context, sessionID, agentID string) (*NearestInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.ScenarioConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.ScenarioConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.ScenarioConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.ScenarioConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles scenario loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.ScenarioConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.ScenarioConfig
	SaveConfig(name string, config *engine.ScenarioConfig) error
}

// Session represents an active rescue world
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.RescueEngine
	Config         *engine.ScenarioConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
