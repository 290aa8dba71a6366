package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
	"github.com/wricardo/rescue-grid/game/pathfind"
)

// Options tunes a GameService
type Options struct {
	// Search replaces the search options of scenarios that leave them unset.
	Search pathfind.Options
	// PlanWorkers bounds parallel searches in PlanRoutes. Zero means one per request.
	PlanWorkers int
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	opts     Options
	log      *zap.Logger
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, log *zap.Logger) GameService {
	return NewGameServiceWithOptions(sessions, configs, log, Options{})
}

// NewGameServiceWithOptions creates a game service with search defaults
func NewGameServiceWithOptions(sessions SessionManager, configs ConfigManager, log *zap.Logger, opts Options) GameService {
	if log == nil {
		log = zap.NewNop()
	}
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		opts:     opts,
		log:      log,
	}
}

// getConfigID returns the config_id for a scenario display name
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// session fetches and touches a session. Touching writes LastAccessedAt,
// so callers must hold s.mu for writing.
func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrSessionNotFound, id, err)
	}
	s.sessions.UpdateLastAccessed(id)
	return sess, nil
}

func (s *gameServiceImpl) save(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.Warn("failed to persist session",
			zap.String("session", sessionID), zap.String("after", after), zap.Error(err))
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	state := sess.Engine.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		WorldState:     state,
		Scenario:       sess.Config,
		Map:            engine.RenderASCII(state),
	}
}

// CreateSession creates a new rescue session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.ScenarioConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configName = s.getConfigID(config.Name)
	}

	if config.Search == (pathfind.Options{}) && s.opts.Search != (pathfind.Options{}) {
		withSearch := *config
		withSearch.Search = s.opts.Search
		config = &withSearch
	}

	sess, err := s.sessions.Create("", configName, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return err
	}
	return nil
}

// Move executes a single step for an agent
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, agentID, direction string, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var events []GameEvent
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	step, err := sess.Engine.Step(agentID, strings.ToLower(strings.TrimSpace(direction)))
	if err != nil {
		return nil, argumentError(err)
	}

	result := s.moveResult(sess, agentID, step, events)
	s.save(sessionID, "move")
	return result, nil
}

// MoveTo steps an agent onto an adjacent tile
func (s *gameServiceImpl) MoveTo(ctx context.Context, sessionID, agentID string, to grid.Position) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	step, err := sess.Engine.StepTo(agentID, to)
	if err != nil {
		return nil, argumentError(err)
	}

	result := s.moveResult(sess, agentID, step, nil)
	s.save(sessionID, "move")
	return result, nil
}

func (s *gameServiceImpl) moveResult(sess *Session, agentID string, step engine.StepResult, events []GameEvent) *MoveResult {
	state := sess.Engine.Snapshot()
	result := &MoveResult{
		Success:    step.Decision.Accepted(),
		AgentID:    agentID,
		Step:       step,
		WorldState: state,
		Message:    step.Message,
		Events:     append(events, stepEvents(agentID, step, state.Victory)...),
	}
	if !result.Success {
		result.AttemptedTo = attemptInfo(sess.Engine.Grid(), step.Decision)
	}
	result.PossibleMoves, _ = sess.Engine.PossibleMoves(agentID)
	result.LocalView3x3 = buildLocal3x3(state, agentID)

	s.log.Debug("step",
		zap.String("session", sess.ID),
		zap.String("agent", agentID),
		zap.Stringer("decision", step.Decision))
	return result
}

// BulkMove executes several steps for one agent, stopping at the first rejection
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID, agentID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		AgentID:        agentID,
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	start, err := sess.Engine.Agent(agentID)
	if err != nil {
		return nil, argumentError(err)
	}
	result.StartPos = start.Pos
	startScore := sess.Engine.Ledger().Score

	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}
	for i := range moves {
		moves[i] = strings.ToLower(strings.TrimSpace(moves[i]))
	}

	steps, err := sess.Engine.BulkStep(agentID, moves)
	if err != nil && len(steps) == 0 {
		return nil, argumentError(err)
	}
	result.Steps = steps

	for i, step := range steps {
		result.Events = append(result.Events, stepEvents(agentID, step, false)...)
		if !step.Decision.Accepted() {
			result.Success = false
			result.StoppedOnMove = i + 1
			result.StopReasonCode = step.Decision.Outcome.String()
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, moves[i])
			result.AttemptedTo = attemptInfo(sess.Engine.Grid(), step.Decision)
			break
		}
		result.MovesExecuted++
	}
	if err != nil {
		// an unknown direction partway through
		result.Success = false
		result.StoppedOnMove = len(steps) + 1
		result.StopReasonCode = "invalid_direction"
		result.StoppedReason = err.Error()
	}

	state := sess.Engine.Snapshot()
	result.WorldState = state
	result.Victory = state.Victory
	result.Message = state.Message
	result.ScoreDelta = state.Ledger.Score - startScore
	if end, err := sess.Engine.Agent(agentID); err == nil {
		result.EndPos = end.Pos
	}
	if state.Victory {
		result.Events = append(result.Events, GameEvent{
			Type:      "victory",
			Message:   state.Message,
			Timestamp: time.Now(),
		})
		if result.StopReasonCode == "" && result.MovesExecuted < len(moves) {
			result.StopReasonCode = "victory"
		}
	}
	result.PossibleMoves, _ = sess.Engine.PossibleMoves(agentID)
	result.LocalView3x3 = buildLocal3x3(state, agentID)

	s.log.Debug("bulk move",
		zap.String("session", sessionID),
		zap.String("agent", agentID),
		zap.Int("executed", result.MovesExecuted),
		zap.Int("requested", result.RequestedMoves),
		zap.String("stop", result.StopReasonCode))

	s.save(sessionID, "bulk move")
	return result, nil
}

// PlanRoute computes and stores a route for one agent
func (s *gameServiceImpl) PlanRoute(ctx context.Context, sessionID, agentID string, goal grid.Position) (*RouteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	plan, err := sess.Engine.PlanRoute(agentID, goal)
	if err != nil {
		return nil, argumentError(err)
	}
	agent, _ := sess.Engine.Agent(agentID)

	s.save(sessionID, "plan")
	return &RouteResult{
		Plan:  plan,
		Agent: agent,
		Map:   engine.RenderASCII(sess.Engine.Snapshot()),
	}, nil
}

// PlanRoutes plans several agents together over one snapshot
func (s *gameServiceImpl) PlanRoutes(ctx context.Context, sessionID string, reqs []engine.RouteRequest) (*BatchRouteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no route requests", ErrInvalidArgument)
	}

	plans, err := sess.Engine.PlanRoutes(ctx, reqs, s.opts.PlanWorkers)
	if err != nil {
		return nil, argumentError(err)
	}

	s.save(sessionID, "plan")
	return &BatchRouteResult{
		Plans: plans,
		Map:   engine.RenderASCII(sess.Engine.Snapshot()),
	}, nil
}

// FollowRoute advances an agent along its stored route
func (s *gameServiceImpl) FollowRoute(ctx context.Context, sessionID, agentID string, maxSteps int) (*FollowRouteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	follow, err := sess.Engine.FollowRoute(agentID, maxSteps)
	if err != nil {
		return nil, argumentError(err)
	}

	state := sess.Engine.Snapshot()
	result := &FollowRouteResult{
		FollowResult: follow,
		AgentID:      agentID,
		Events:       make([]GameEvent, 0, len(follow.Steps)),
		WorldState:   state,
		Message:      state.Message,
	}
	for i, step := range follow.Steps {
		last := i == len(follow.Steps)-1
		result.Events = append(result.Events, stepEvents(agentID, step, last && state.Victory)...)
	}

	s.save(sessionID, "follow")
	return result, nil
}

// Reset rebuilds a session's world from its scenario
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.WorldState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	s.save(sessionID, "reset")
	return state, nil
}

// GetWorldState retrieves the current world
func (s *gameServiceImpl) GetWorldState(ctx context.Context, sessionID string) (*engine.WorldState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.MoveHistory()
	if opts.AgentID != "" {
		filtered := make([]engine.MoveHistoryEntry, 0, len(history))
		for _, m := range history {
			if m.AgentID == opts.AgentID {
				filtered = append(filtered, m)
			}
		}
		history = filtered
	}
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// DescribeCell reports terrain, occupancy and per-profile walkability of a tile
func (s *gameServiceImpl) DescribeCell(ctx context.Context, sessionID string, pos grid.Position) (*CellInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	g := sess.Engine.Grid()
	c := g.CellAt(pos)
	if c == nil {
		return nil, fmt.Errorf("%w: %s is outside the %dx%d grid", ErrInvalidArgument, pos, g.Width(), g.Height())
	}

	info := &CellInfo{
		X:        pos.X,
		Y:        pos.Y,
		Type:     c.Type,
		Occupied: c.Occupied,
		Walkable: make(map[string]bool),
	}
	for _, name := range g.ProfileNames() {
		info.Walkable[name] = g.Profile(name).IsWalkable(pos.X, pos.Y)
	}
	info.Road, info.RoadSource = movement.RoadClassifier{LayerName: movement.RoadLayer}.IsRoad(g, pos.X, pos.Y)

	for _, a := range sess.Engine.Agents() {
		if a.Pos == pos {
			info.Agents = append(info.Agents, a.ID)
		}
	}
	for _, v := range sess.Engine.Victims() {
		if v.Pos == pos && v.Status == engine.VictimWaiting {
			info.Victims = append(info.Victims, v.ID)
		}
	}
	return info, nil
}

// Nearest finds the closest waiting victim and hospital to an agent
func (s *gameServiceImpl) Nearest(ctx context.Context, sessionID, agentID string) (*NearestInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Engine.Agent(agentID); err != nil {
		return nil, argumentError(err)
	}

	info := &NearestInfo{AgentID: agentID}
	if v, d, err := sess.Engine.NearestVictim(agentID); err == nil {
		info.Victim = &v
		info.VictimDistance = d
	}
	if p, d, err := sess.Engine.NearestHospital(agentID); err == nil {
		info.Hospital = &p
		info.HospitalDistance = d
	}
	return info, nil
}

// ListConfigs returns available scenarios
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific scenario
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.ScenarioConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig validates and saves a scenario
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.ScenarioConfig) error {
	if err := engine.ValidateScenarioConfig(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return s.configs.SaveConfig(configName, config)
}

// argumentError marks engine errors caused by the caller's input
func argumentError(err error) error {
	switch {
	case errors.Is(err, engine.ErrAgentNotFound),
		errors.Is(err, engine.ErrUnknownDirection),
		errors.Is(err, engine.ErrNotAdjacent),
		errors.Is(err, engine.ErrNoRoute):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return err
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "World reset to initial state",
		Timestamp: time.Now(),
	}
}

// stepEvents derives events from one step
func stepEvents(agentID string, step engine.StepResult, victory bool) []GameEvent {
	now := time.Now()
	d := step.Decision
	if !d.Accepted() {
		return []GameEvent{{
			Type:      "rejected",
			AgentID:   agentID,
			Message:   fmt.Sprintf("Move to %s rejected: %s", d.To, d.Outcome),
			Timestamp: now,
			Position:  d.From,
		}}
	}

	events := []GameEvent{{
		Type:      "move",
		AgentID:   agentID,
		Message:   fmt.Sprintf("Moved to %s", d.To),
		Timestamp: now,
		Position:  d.To,
	}}
	if step.PickedUp != "" {
		events = append(events, GameEvent{
			Type:      "pickup",
			AgentID:   agentID,
			Message:   fmt.Sprintf("Picked up %s", step.PickedUp),
			Timestamp: now,
			Position:  d.To,
		})
	}
	if step.Delivered != "" {
		events = append(events, GameEvent{
			Type:      "delivery",
			AgentID:   agentID,
			Message:   fmt.Sprintf("Delivered %s", step.Delivered),
			Timestamp: now,
			Position:  d.To,
		})
	}
	if victory {
		events = append(events, GameEvent{
			Type:      "victory",
			Message:   step.Message,
			Timestamp: now,
		})
	}
	return events
}

func cellChar(t grid.CellType) string {
	switch t {
	case grid.Road:
		return string(rune(engine.CharRoad))
	case grid.Rubble:
		return string(rune(engine.CharRubble))
	case grid.Hospital:
		return string(rune(engine.CharHospital))
	case grid.Building:
		return string(rune(engine.CharBuilding))
	default:
		return string(rune(engine.CharEmpty))
	}
}

func attemptInfo(g *grid.Grid, d movement.Decision) *AttemptInfo {
	info := &AttemptInfo{
		X:          d.To.X,
		Y:          d.To.Y,
		Outcome:    d.Outcome,
		RoadSource: d.RoadSource,
	}
	if c := g.CellAt(d.To); c != nil {
		info.TileChar = cellChar(c.Type)
		info.TileType = string(c.Type)
	} else {
		info.TileChar = string(rune(engine.CharBuilding))
		info.TileType = "boundary"
	}
	return info
}

// buildLocal3x3 renders the tiles around an agent; the agent is '@' and
// outside the grid reads as building.
func buildLocal3x3(state *engine.WorldState, agentID string) []string {
	if state == nil {
		return nil
	}
	var pos grid.Position
	found := false
	for _, a := range state.Agents {
		if a.ID == agentID {
			pos, found = a.Pos, true
			break
		}
	}
	if !found {
		return nil
	}

	rows := engine.RenderASCII(state)
	lines := make([]string, 0, 3)
	for dy := -1; dy <= 1; dy++ {
		var row strings.Builder
		for dx := -1; dx <= 1; dx++ {
			x, y := pos.X+dx, pos.Y+dy
			switch {
			case dx == 0 && dy == 0:
				row.WriteByte('@')
			case y < 0 || y >= len(rows) || x < 0 || x >= len(rows[y]):
				row.WriteByte(engine.CharBuilding)
			default:
				row.WriteByte(rows[y][x])
			}
		}
		lines = append(lines, row.String())
	}
	return lines
}
