package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
	"github.com/wricardo/rescue-grid/game/pathfind"
	"github.com/wricardo/rescue-grid/game/service"
	"github.com/wricardo/rescue-grid/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Agent Operations
	MoveFunc        func(ctx context.Context, sessionID, agentID, direction string, reset bool) (*service.MoveResult, error)
	MoveToFunc      func(ctx context.Context, sessionID, agentID string, to grid.Position) (*service.MoveResult, error)
	BulkMoveFunc    func(ctx context.Context, sessionID, agentID string, moves []string, reset bool) (*service.BulkMoveResult, error)
	PlanRouteFunc   func(ctx context.Context, sessionID, agentID string, goal grid.Position) (*service.RouteResult, error)
	PlanRoutesFunc  func(ctx context.Context, sessionID string, reqs []engine.RouteRequest) (*service.BatchRouteResult, error)
	FollowRouteFunc func(ctx context.Context, sessionID, agentID string, maxSteps int) (*service.FollowRouteResult, error)
	ResetFunc       func(ctx context.Context, sessionID string) (*engine.WorldState, error)

	// World State
	GetWorldStateFunc  func(ctx context.Context, sessionID string) (*engine.WorldState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	DescribeCellFunc   func(ctx context.Context, sessionID string, pos grid.Position) (*service.CellInfo, error)
	NearestFunc        func(ctx context.Context, sessionID, agentID string) (*service.NearestInfo, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.ScenarioConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.ScenarioConfig) error
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID, agentID, direction string, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, agentID, direction, reset)
	}
	return &service.MoveResult{Success: true, AgentID: agentID, WorldState: &engine.WorldState{}}, nil
}

func (m *MockGameService) MoveTo(ctx context.Context, sessionID, agentID string, to grid.Position) (*service.MoveResult, error) {
	if m.MoveToFunc != nil {
		return m.MoveToFunc(ctx, sessionID, agentID, to)
	}
	return &service.MoveResult{Success: true, AgentID: agentID, WorldState: &engine.WorldState{}}, nil
}

func (m *MockGameService) BulkMove(ctx context.Context, sessionID, agentID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
	if m.BulkMoveFunc != nil {
		return m.BulkMoveFunc(ctx, sessionID, agentID, moves, reset)
	}
	return &service.BulkMoveResult{Success: true, AgentID: agentID, WorldState: &engine.WorldState{}}, nil
}

func (m *MockGameService) PlanRoute(ctx context.Context, sessionID, agentID string, goal grid.Position) (*service.RouteResult, error) {
	if m.PlanRouteFunc != nil {
		return m.PlanRouteFunc(ctx, sessionID, agentID, goal)
	}
	return &service.RouteResult{Plan: engine.RoutePlan{AgentID: agentID, Goal: goal}}, nil
}

func (m *MockGameService) PlanRoutes(ctx context.Context, sessionID string, reqs []engine.RouteRequest) (*service.BatchRouteResult, error) {
	if m.PlanRoutesFunc != nil {
		return m.PlanRoutesFunc(ctx, sessionID, reqs)
	}
	return &service.BatchRouteResult{}, nil
}

func (m *MockGameService) FollowRoute(ctx context.Context, sessionID, agentID string, maxSteps int) (*service.FollowRouteResult, error) {
	if m.FollowRouteFunc != nil {
		return m.FollowRouteFunc(ctx, sessionID, agentID, maxSteps)
	}
	return &service.FollowRouteResult{AgentID: agentID, WorldState: &engine.WorldState{}}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.WorldState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.WorldState{}, nil
}

func (m *MockGameService) GetWorldState(ctx context.Context, sessionID string) (*engine.WorldState, error) {
	if m.GetWorldStateFunc != nil {
		return m.GetWorldStateFunc(ctx, sessionID)
	}
	return &engine.WorldState{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}, Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (m *MockGameService) DescribeCell(ctx context.Context, sessionID string, pos grid.Position) (*service.CellInfo, error) {
	if m.DescribeCellFunc != nil {
		return m.DescribeCellFunc(ctx, sessionID, pos)
	}
	return &service.CellInfo{X: pos.X, Y: pos.Y, Type: grid.Road}, nil
}

func (m *MockGameService) Nearest(ctx context.Context, sessionID, agentID string) (*service.NearestInfo, error) {
	if m.NearestFunc != nil {
		return m.NearestFunc(ctx, sessionID, agentID)
	}
	return &service.NearestInfo{AgentID: agentID}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.ScenarioConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return engine.DefaultScenario(), nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.ScenarioConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub(nil)
	go hub.Run(ctx)
	return NewServer(mockService, hub, nil)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(t *testing.T, m *MockGameService, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	server := setupTestServer(t, m)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest(method, path, body))
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockGameService)
		expectedStatus int
		expectedConfig string
	}{
		{
			name:           "Create session with default config",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Create session with config_id",
			requestBody:    map[string]string{"config_id": "classic"},
			expectedStatus: http.StatusCreated,
			expectedConfig: "classic",
		},
		{
			name:           "Create session with config_name alias",
			requestBody:    map[string]string{"config_name": "flooded_district"},
			expectedStatus: http.StatusCreated,
			expectedConfig: "flooded_district",
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("%w: 'nope'", service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(t, mockService, "POST", "/api/sessions", tt.requestBody)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if w.Code == http.StatusCreated {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ConfigName != tt.expectedConfig {
					t.Errorf("Expected config %q, got %q", tt.expectedConfig, resp.ConfigName)
				}
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
				{ID: "b", CreatedAt: now.Add(-1 * time.Hour), LastAccessedAt: now.Add(-time.Hour)},
				{ID: "c", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now},
			}, nil
		},
	}

	tests := []struct {
		name      string
		query     string
		wantOrder string
		wantTotal int
	}{
		{"default sorts by access desc", "", "c,a,b", 3},
		{"created ascending", "?sort=created&order=asc", "a,c,b", 3},
		{"limit", "?sort=created&limit=2", "b,c", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, mockService, "GET", "/api/sessions"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			var ids []string
			for _, s := range resp.Sessions {
				ids = append(ids, s.ID)
			}
			if strings.Join(ids, ",") != tt.wantOrder {
				t.Errorf("Expected order %s, got %v", tt.wantOrder, ids)
			}
			if resp.Total != tt.wantTotal || resp.Count != len(ids) {
				t.Errorf("Expected total %d count %d, got %d %d", tt.wantTotal, len(ids), resp.Total, resp.Count)
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "abcd" {
				return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
			}
			return &service.SessionInfo{ID: "abcd", Map: []string{"BBB"}}, nil
		},
	}

	w := serve(t, mockService, "GET", "/api/sessions/abcd", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.SessionInfo
	parseResponse(t, w, &resp)
	if resp.ID != "abcd" || len(resp.Map) != 1 {
		t.Errorf("Unexpected session %+v", resp)
	}

	w = serve(t, mockService, "GET", "/api/sessions/zzzz", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	deleted := ""
	mockService := &MockGameService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "gone" {
				return service.ErrSessionNotFound
			}
			deleted = sessionID
			return nil
		},
	}

	w := serve(t, mockService, "DELETE", "/api/sessions/abcd", nil)
	if w.Code != http.StatusOK || deleted != "abcd" {
		t.Errorf("Expected abcd deleted with 200, got %d %q", w.Code, deleted)
	}

	w = serve(t, mockService, "DELETE", "/api/sessions/gone", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// Agent Operation Tests

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*testing.T, *MockGameService)
		expectedStatus int
	}{
		{
			name: "single direction",
			body: map[string]interface{}{"direction": "up", "reset": true},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, agentID, direction string, reset bool) (*service.MoveResult, error) {
					if sessionID != "abcd" || agentID != "ambulance-1" || direction != "up" || !reset {
						t.Errorf("Unexpected move args %s %s %s %v", sessionID, agentID, direction, reset)
					}
					return &service.MoveResult{Success: true, WorldState: &engine.WorldState{}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "direction list",
			body: map[string]interface{}{"directions": []string{"up", "left"}},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.BulkMoveFunc = func(ctx context.Context, sessionID, agentID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
					if len(moves) != 2 {
						t.Errorf("Expected 2 moves, got %v", moves)
					}
					return &service.BulkMoveResult{MovesExecuted: 2, WorldState: &engine.WorldState{}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "target tile",
			body: map[string]interface{}{"to": map[string]int{"x": 2, "y": 1}},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.MoveToFunc = func(ctx context.Context, sessionID, agentID string, to grid.Position) (*service.MoveResult, error) {
					if to != grid.Pos(2, 1) {
						t.Errorf("Expected target (2,1), got %s", to)
					}
					return &service.MoveResult{Success: true, WorldState: &engine.WorldState{}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "empty body",
			body:           map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown direction",
			body: map[string]interface{}{"direction": "sideways"},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, agentID, direction string, reset bool) (*service.MoveResult, error) {
					return nil, fmt.Errorf("%w: %w", service.ErrInvalidArgument, engine.ErrUnknownDirection)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown agent",
			body: map[string]interface{}{"direction": "up"},
			setupMock: func(t *testing.T, m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, agentID, direction string, reset bool) (*service.MoveResult, error) {
					return nil, fmt.Errorf("%w: %w", service.ErrInvalidArgument, engine.ErrAgentNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(t, mockService)
			}
			w := serve(t, mockService, "POST", "/api/sessions/abcd/agents/ambulance-1/move", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestPlanRoute(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		wantGoal       grid.Position
		expectedStatus int
	}{
		{"flat coordinates", map[string]int{"x": 5, "y": 1}, grid.Pos(5, 1), http.StatusOK},
		{"goal object", map[string]interface{}{"goal": map[string]int{"x": 3, "y": 4}}, grid.Pos(3, 4), http.StatusOK},
		{"missing goal", map[string]int{"x": 5}, grid.Position{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				PlanRouteFunc: func(ctx context.Context, sessionID, agentID string, goal grid.Position) (*service.RouteResult, error) {
					if goal != tt.wantGoal {
						t.Errorf("Expected goal %s, got %s", tt.wantGoal, goal)
					}
					return &service.RouteResult{Plan: engine.RoutePlan{
						AgentID: agentID,
						Goal:    goal,
						Result:  pathfind.Result{Status: pathfind.StatusExact},
					}}, nil
				},
			}
			w := serve(t, mockService, "POST", "/api/sessions/abcd/agents/rescuer-1/route", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestPlanRoutes(t *testing.T) {
	mockService := &MockGameService{
		PlanRoutesFunc: func(ctx context.Context, sessionID string, reqs []engine.RouteRequest) (*service.BatchRouteResult, error) {
			plans := make([]engine.RoutePlan, len(reqs))
			for i, r := range reqs {
				plans[i] = engine.RoutePlan{AgentID: r.AgentID, Goal: r.Goal}
			}
			return &service.BatchRouteResult{Plans: plans}, nil
		},
	}

	body := map[string]interface{}{
		"requests": []map[string]interface{}{
			{"agent_id": "ambulance-1", "goal": map[string]int{"x": 5, "y": 1}},
			{"agent_id": "rescuer-1", "goal": map[string]int{"x": 3, "y": 4}},
		},
	}
	w := serve(t, mockService, "POST", "/api/sessions/abcd/routes", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp service.BatchRouteResult
	parseResponse(t, w, &resp)
	if len(resp.Plans) != 2 || resp.Plans[1].Goal != grid.Pos(3, 4) {
		t.Errorf("Unexpected plans %+v", resp.Plans)
	}
}

func TestFollowRoute(t *testing.T) {
	mockService := &MockGameService{
		FollowRouteFunc: func(ctx context.Context, sessionID, agentID string, maxSteps int) (*service.FollowRouteResult, error) {
			if maxSteps == 0 {
				return nil, fmt.Errorf("%w: %w", service.ErrInvalidArgument, engine.ErrNoRoute)
			}
			return &service.FollowRouteResult{
				FollowResult: engine.FollowResult{Completed: true},
				WorldState:   &engine.WorldState{},
			}, nil
		},
	}

	w := serve(t, mockService, "POST", "/api/sessions/abcd/agents/ambulance-1/follow", map[string]int{"max_steps": 3})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var resp service.FollowRouteResult
	parseResponse(t, w, &resp)
	if !resp.Completed {
		t.Error("Expected embedded follow result in response")
	}

	w = serve(t, mockService, "POST", "/api/sessions/abcd/agents/ambulance-1/follow", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 without a route, got %d", w.Code)
	}
}

func TestNearest(t *testing.T) {
	hospital := grid.Pos(3, 3)
	mockService := &MockGameService{
		NearestFunc: func(ctx context.Context, sessionID, agentID string) (*service.NearestInfo, error) {
			return &service.NearestInfo{AgentID: agentID, Hospital: &hospital, HospitalDistance: 4}, nil
		},
	}

	w := serve(t, mockService, "GET", "/api/sessions/abcd/agents/rescuer-1/nearest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.NearestInfo
	parseResponse(t, w, &resp)
	if resp.Hospital == nil || *resp.Hospital != hospital {
		t.Errorf("Expected hospital %s, got %+v", hospital, resp.Hospital)
	}
}

func TestDescribeCell(t *testing.T) {
	mockService := &MockGameService{
		DescribeCellFunc: func(ctx context.Context, sessionID string, pos grid.Position) (*service.CellInfo, error) {
			if pos.X > 6 {
				return nil, fmt.Errorf("%w: outside", service.ErrInvalidArgument)
			}
			return &service.CellInfo{X: pos.X, Y: pos.Y, Type: grid.Rubble, RoadSource: movement.RoadSourceLayer}, nil
		},
	}

	w := serve(t, mockService, "GET", "/api/sessions/abcd/cells/3/2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.CellInfo
	parseResponse(t, w, &resp)
	if resp.X != 3 || resp.Y != 2 || resp.Type != grid.Rubble {
		t.Errorf("Unexpected cell %+v", resp)
	}

	w = serve(t, mockService, "GET", "/api/sessions/abcd/cells/9/2", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	w = serve(t, mockService, "GET", "/api/sessions/abcd/cells/-1/2", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected no route match for negative coordinates, got %d", w.Code)
	}
}

func TestReset(t *testing.T) {
	mockService := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.WorldState, error) {
			if sessionID == "missing" {
				return nil, service.ErrSessionNotFound
			}
			return &engine.WorldState{ConfigName: "Test"}, nil
		},
	}

	w := serve(t, mockService, "POST", "/api/sessions/abcd/reset", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = serve(t, mockService, "POST", "/api/sessions/missing/reset", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantOpts service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"all params", "?page=2&limit=5&order=asc&agent=rescuer-1", service.HistoryOptions{Page: 2, Limit: 5, Order: "asc", AgentID: "rescuer-1"}},
		{"invalid values fall back", "?page=-1&limit=abc&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					if opts != tt.wantOpts {
						t.Errorf("Expected options %+v, got %+v", tt.wantOpts, opts)
					}
					return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}}, nil
				},
			}
			w := serve(t, mockService, "GET", "/api/sessions/abcd/history"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
		})
	}
}

func TestGetWorldState(t *testing.T) {
	mockService := &MockGameService{
		GetWorldStateFunc: func(ctx context.Context, sessionID string) (*engine.WorldState, error) {
			return engine.NewEngineWithDefaults().Snapshot(), nil
		},
	}

	w := serve(t, mockService, "GET", "/api/sessions/abcd/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp engine.WorldState
	parseResponse(t, w, &resp)
	if len(resp.Agents) != 2 || len(resp.Victims) != 2 {
		t.Errorf("Expected default world, got %d agents %d victims", len(resp.Agents), len(resp.Victims))
	}
}

// Configuration Tests

func TestListConfigs(t *testing.T) {
	mockService := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Width: 7, Height: 7, Agents: 2, Victims: 2}}, nil
		},
	}

	w := serve(t, mockService, "GET", "/api/configs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp []service.ConfigInfo
	parseResponse(t, w, &resp)
	if len(resp) != 1 || resp[0].ConfigID != "classic" {
		t.Errorf("Unexpected configs %+v", resp)
	}
}

func TestGetConfig(t *testing.T) {
	mockService := &MockGameService{
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.ScenarioConfig, error) {
			if configName != "classic" {
				return nil, service.ErrConfigNotFound
			}
			return engine.DefaultScenario(), nil
		},
	}

	w := serve(t, mockService, "GET", "/api/configs/classic", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = serve(t, mockService, "GET", "/api/configs/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreateConfig(t *testing.T) {
	var savedAs string
	mockService := &MockGameService{
		SaveConfigFunc: func(ctx context.Context, configName string, config *engine.ScenarioConfig) error {
			savedAs = configName
			if len(config.Layout) == 0 {
				return fmt.Errorf("%w: empty layout", service.ErrInvalidArgument)
			}
			return nil
		},
	}

	scenario := engine.DefaultScenario()
	scenario.Name = "Harbor Flood 2"
	w := serve(t, mockService, "POST", "/api/configs", scenario)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if savedAs != "harbor_flood_2" {
		t.Errorf("Expected derived config id harbor_flood_2, got %q", savedAs)
	}

	w = serve(t, mockService, "POST", "/api/configs", map[string]interface{}{"name": "Empty", "config_id": "empty"})
	if w.Code != http.StatusBadRequest || savedAs != "empty" {
		t.Errorf("Expected 400 for invalid scenario saved as 'empty', got %d %q", w.Code, savedAs)
	}

	w = serve(t, mockService, "POST", "/api/configs", map[string]interface{}{"description": "no name"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a name, got %d", w.Code)
	}
}

func TestUnifiedSessions(t *testing.T) {
	scenario := engine.DefaultScenario()
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a", ConfigName: "classic", Scenario: scenario},
				{ID: "b", ConfigName: "flooded", Scenario: scenario},
			}, nil
		},
	}

	w := serve(t, mockService, "GET", "/api/sessions/unified?configName=classic", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		ConfigName   string                   `json:"config_name"`
		TotalVictims int                      `json:"total_victims"`
		Sessions     []map[string]interface{} `json:"sessions"`
	}
	parseResponse(t, w, &resp)
	if resp.ConfigName != "classic" || resp.TotalVictims != 2 || len(resp.Sessions) != 1 {
		t.Errorf("Unexpected unified response %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	w := serve(t, &MockGameService{}, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockGameService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			server.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
