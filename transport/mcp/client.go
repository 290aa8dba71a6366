package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/service"
	"go.uber.org/zap"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	log        *zap.Logger
}

// NewClient creates a new MCP client that calls the REST API at baseURL.
// A nil logger disables logging.
func NewClient(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.Named("mcp"),
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Rescue Grid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Rescue Grid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Agents move on a grid, pick up victims (V) and deliver them to a hospital (H).
Vehicles (A) may only drive on road tiles. Pedestrians (P) may step anywhere on the grid.

AVAILABLE TOOLS:
- create_session, list_sessions, get_session: session management
- world_state: current world with ASCII map
- move: one step for one agent (direction or adjacent x/y)
- bulk_move: several directions for one agent, stops on the first rejection
- plan_route / plan_routes: A* routes, stored on the agent
- follow_route: walk the stored route
- nearest: closest waiting victim and hospital for an agent
- describe_cell: terrain, occupancy and walkability of one tile
- reset, move_history, list_configs, instructions

NOTE: the 'intent' parameter on move tools is for explaining your reasoning.`),
	)

	c.registerTools()
}

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func numberProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": desc}
}

func (c *Client) registerTools() {
	session := stringProp("Session ID")
	agent := stringProp("Agent ID, e.g. ambulance-1")

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new rescue session from a scenario config",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": stringProp("Config ID to use (optional, defaults to the built-in scenario)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": session},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_state",
		Description: "Get the current world state with agents, victims, ledger and ASCII map",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": session},
			Required:   []string{"session_id"},
		},
	}, c.handleWorldState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move one agent a single step, either by direction or onto an adjacent tile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": session,
				"agent_id":   agent,
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Direction to move",
				},
				"x":      numberProp("Target column of an adjacent tile (used when direction is empty)"),
				"y":      numberProp("Target row of an adjacent tile (used when direction is empty)"),
				"intent": stringProp("Why you are making this move"),
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset the world before moving",
				},
			},
			Required: []string{"session_id", "agent_id", "intent"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Run up to %d directions for one agent; stops at the first rejected move", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": session,
				"agent_id":   agent,
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"up", "down", "left", "right"},
					},
					"description": "Directions to run in order",
				},
				"intent": stringProp("What this sequence should achieve"),
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset the world before moving",
				},
			},
			Required: []string{"session_id", "agent_id", "moves", "intent"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "plan_route",
		Description: "Plan an A* route for an agent to a goal tile and store it on the agent",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": session,
				"agent_id":   agent,
				"x":          numberProp("Goal column"),
				"y":          numberProp("Goal row"),
			},
			Required: []string{"session_id", "agent_id", "x", "y"},
		},
	}, c.handlePlanRoute)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "plan_routes",
		Description: "Plan routes for several agents at once",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": session,
				"requests": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"agent_id": agent,
							"x":        numberProp("Goal column"),
							"y":        numberProp("Goal row"),
						},
						"required": []string{"agent_id", "x", "y"},
					},
				},
			},
			Required: []string{"session_id", "requests"},
		},
	}, c.handlePlanRoutes)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "follow_route",
		Description: "Walk the agent along its stored route until done, blocked or max_steps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": session,
				"agent_id":   agent,
				"max_steps":  numberProp("Maximum steps to take (0 or omitted walks the whole route)"),
			},
			Required: []string{"session_id", "agent_id"},
		},
	}, c.handleFollowRoute)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "nearest",
		Description: "Find the nearest waiting victim and hospital for an agent",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": session,
				"agent_id":   agent,
			},
			Required: []string{"session_id", "agent_id"},
		},
	}, c.handleNearest)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one grid cell: terrain, occupancy, road status and walkability per profile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": session,
				"x":          numberProp("Column (0-based)"),
				"y":          numberProp("Row (0-based)"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset",
		Description: "Reset the session to its initial world",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": session},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get paginated move history",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": session,
				"agent_id":   stringProp("Only show moves of this agent (optional)"),
				"page":       numberProp("Page number (default 1)"),
				"limit":      numberProp("Moves per page (default 20)"),
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available scenario configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "instructions",
		Description: "Rules, legend and movement semantics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall sends body as JSON and decodes the response into result.
// Error responses surface the server's "error" field.
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key].(float64)
	return int(v), ok
}

func sessionPath(sessionID string, parts ...string) string {
	p := "/api/sessions/" + url.PathEscape(sessionID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func agentPath(sessionID, agentID, action string) string {
	return sessionPath(sessionID, "agents", url.PathEscape(agentID), action)
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configName, _ := args["config_name"].(string)

	body := map[string]string{}
	if configName != "" {
		body["config_name"] = configName
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatWorldState(session.WorldState))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		remaining := 0
		if s.WorldState != nil {
			for _, v := range s.WorldState.Victims {
				if v.Status != engine.VictimDelivered {
					remaining++
				}
			}
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Victims left: %d, Created: %s)\n",
			s.ID, s.ConfigName, remaining, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleWorldState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.WorldState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatWorldState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	agentID, _ := args["agent_id"].(string)
	direction, _ := args["direction"].(string)
	reset, _ := args["reset"].(bool)
	intent, _ := args["intent"].(string)

	body := map[string]interface{}{"reset": reset}
	if direction != "" {
		body["direction"] = direction
	} else {
		x, okX := intArg(args, "x")
		y, okY := intArg(args, "y")
		if !okX || !okY {
			return mcp.NewToolResultError("either direction or both x and y are required"), nil
		}
		body["to"] = grid.Pos(x, y)
	}

	c.log.Debug("move", zap.String("session", sessionID), zap.String("agent", agentID), zap.String("intent", intent))

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", agentPath(sessionID, agentID, "move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	agentID, _ := args["agent_id"].(string)
	movesRaw, _ := args["moves"].([]interface{})
	reset, _ := args["reset"].(bool)
	intent, _ := args["intent"].(string)

	moves := make([]string, 0, len(movesRaw))
	for _, m := range movesRaw {
		if move, ok := m.(string); ok {
			moves = append(moves, move)
		}
	}
	if len(moves) == 0 {
		return mcp.NewToolResultError("moves must contain at least one direction"), nil
	}

	c.log.Debug("bulk move", zap.String("session", sessionID), zap.String("agent", agentID),
		zap.Int("moves", len(moves)), zap.String("intent", intent))

	body := map[string]interface{}{
		"directions": moves,
		"reset":      reset,
	}
	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", agentPath(sessionID, agentID, "move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkMoveResult(&result)), nil
}

func (c *Client) handlePlanRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	agentID, _ := args["agent_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var result service.RouteResult
	if err := c.apiCall(ctx, "POST", agentPath(sessionID, agentID, "route"), map[string]int{"x": x, "y": y}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRoutePlan(&result.Plan) + "\n" + strings.Join(result.Map, "\n")), nil
}

func (c *Client) handlePlanRoutes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	raw, _ := args["requests"].([]interface{})

	reqs := make([]engine.RouteRequest, 0, len(raw))
	for i, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("request %d is not an object", i)), nil
		}
		agentID, _ := m["agent_id"].(string)
		x, okX := intArg(m, "x")
		y, okY := intArg(m, "y")
		if agentID == "" || !okX || !okY {
			return mcp.NewToolResultError(fmt.Sprintf("request %d needs agent_id, x and y", i)), nil
		}
		reqs = append(reqs, engine.RouteRequest{AgentID: agentID, Goal: grid.Pos(x, y)})
	}

	var result service.BatchRouteResult
	body := map[string]interface{}{"requests": reqs}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "routes"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	for i := range result.Plans {
		b.WriteString(formatRoutePlan(&result.Plans[i]))
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(result.Map, "\n"))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleFollowRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	agentID, _ := args["agent_id"].(string)
	maxSteps, _ := intArg(args, "max_steps")

	var result service.FollowRouteResult
	if err := c.apiCall(ctx, "POST", agentPath(sessionID, agentID, "follow"), map[string]int{"max_steps": maxSteps}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatFollowResult(&result)), nil
}

func (c *Client) handleNearest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	agentID, _ := args["agent_id"].(string)

	var near service.NearestInfo
	if err := c.apiCall(ctx, "GET", agentPath(sessionID, agentID, "nearest"), nil, &near); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Nearest targets for %s:\n", near.AgentID)
	if near.Victim != nil {
		fmt.Fprintf(&b, "  Victim: %s at %s (distance %d)\n", near.Victim.ID, near.Victim.Pos, near.VictimDistance)
	} else {
		b.WriteString("  Victim: none waiting\n")
	}
	if near.Hospital != nil {
		fmt.Fprintf(&b, "  Hospital: %s (distance %d)\n", *near.Hospital, near.HospitalDistance)
	} else {
		b.WriteString("  Hospital: none\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY || x < 0 || y < 0 {
		return mcp.NewToolResultError("x and y must be non-negative numbers"), nil
	}

	var cell service.CellInfo
	path := sessionPath(sessionID, "cells", fmt.Sprint(x), fmt.Sprint(y))
	if err := c.apiCall(ctx, "GET", path, nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCell(&cell)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string             `json:"message"`
		State   *engine.WorldState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatWorldState(response.State))), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}
	if agentID, ok := args["agent_id"].(string); ok && agentID != "" {
		params.Set("agent", agentID)
	}
	path := sessionPath(sessionID, "history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Agents: %d, Victims: %d\n\n",
			config.Name, config.ConfigID, config.Description,
			config.Width, config.Height, config.Agents, config.Victims)
	}
	return mcp.NewToolResultText(b.String()), nil
}

const instructionsText = `Rescue Grid - Instructions

OBJECTIVE:
Deliver every victim to a hospital. An agent picks up a waiting victim by
stepping onto its tile while empty-handed, and delivers it by stepping onto
or next to a hospital tile.

LEGEND:
• A - Vehicle agent (ambulance)
• P - Pedestrian agent (rescuer on foot)
• V - Waiting victim
• R - Road
• H - Hospital
• X - Rubble
• B - Building
• . - Open ground

MOVEMENT:
Vehicles drive on road tiles only, never enter a hospital and block each
other. Pedestrians may step onto any tile inside the grid. Route planning
for pedestrians avoids rubble and hazard tiles.

COORDINATES:
x is the column and y the row, both 0-based from the top-left corner.
"up" decreases y, "down" increases y.

MOVEMENT OUTCOMES:
• accepted
• rejected_bounds - the target is off the grid
• rejected_occupied - another vehicle stands there
• rejected_forbidden_terrain - a vehicle tried to enter a hospital
• rejected_impassable - a vehicle tried to leave the road

ROUTES:
plan_route runs A* with a Manhattan heuristic over the agent's walkable
tiles and stores the path. follow_route walks it and stops at the first
rejected step, so replan after the world changes. A partial status means
the search gave up and returned the closest tile it reached.

SCORING:
Every accepted move, pickup and delivery is recorded in the ledger.
A pickup scores 1 point and a delivery 10.

TIPS:
- Use nearest to pick a target, then plan_route and follow_route.
- describe_cell shows which profiles may enter a tile.
- bulk_move stops on the first rejection and reports where it stopped.`

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructionsText), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatWorldState(session.WorldState))
}

func formatWorldState(state *engine.WorldState) string {
	if state == nil {
		return "No world state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s | Score: %d | Moves: %d | Rejected: %d | Pickups: %d | Deliveries: %d\n",
		state.ConfigName, state.Ledger.Score, state.Ledger.Moves, state.Ledger.Rejected,
		state.Ledger.Pickups, state.Ledger.Deliveries)

	b.WriteString("\nAgents:\n")
	for _, a := range state.Agents {
		fmt.Fprintf(&b, "  %s (%s) at %s", a.ID, a.Kind, a.Pos)
		if a.Carrying != "" {
			fmt.Fprintf(&b, " carrying %s", a.Carrying)
		}
		if len(a.Route) > 0 {
			fmt.Fprintf(&b, ", %d route steps left", len(a.Route))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nVictims:\n")
	for _, v := range state.Victims {
		fmt.Fprintf(&b, "  %s at %s: %s", v.ID, v.Pos, v.Status)
		if v.CarriedBy != "" {
			fmt.Fprintf(&b, " by %s", v.CarriedBy)
		}
		b.WriteString("\n")
	}

	if len(state.Cells) == state.Height && state.Height > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(engine.RenderASCII(state), "\n"))
		b.WriteString("\n")
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", state.Message)
	}
	if state.Victory {
		b.WriteString("\nVICTORY! Every victim has been delivered.\n")
	}
	return b.String()
}

func formatAttempt(a *service.AttemptInfo) string {
	s := fmt.Sprintf("Attempted (%d,%d) '%s' %s: %s", a.X, a.Y, a.TileChar, a.TileType, a.Outcome)
	if a.RoadSource != "" {
		s += fmt.Sprintf(" [road: %s]", a.RoadSource)
	}
	return s
}

func formatLocalView(rows []string) string {
	if len(rows) != 3 {
		return ""
	}
	return "Local 3x3:\n" + strings.Join(rows, "\n") + "\n"
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✅ %s: %s\n", result.AgentID, result.Step.Decision)
	} else {
		fmt.Fprintf(&b, "❌ %s: %s\n", result.AgentID, result.Step.Decision)
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	if result.AttemptedTo != nil {
		fmt.Fprintf(&b, "%s\n", formatAttempt(result.AttemptedTo))
	}
	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(result.PossibleMoves, ", "))
	}
	b.WriteString(formatLocalView(result.LocalView3x3))
	b.WriteString("\n")
	b.WriteString(formatWorldState(result.WorldState))
	return b.String()
}

func formatBulkMoveResult(result *service.BulkMoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bulk move for %s: %d/%d executed, %s -> %s, score %+d\n",
		result.AgentID, result.MovesExecuted, result.RequestedMoves,
		result.StartPos, result.EndPos, result.ScoreDelta)
	if result.Truncated {
		fmt.Fprintf(&b, "Request truncated to %d moves\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s (%s)\n", result.StoppedOnMove, result.StoppedReason, result.StopReasonCode)
	}
	if result.AttemptedTo != nil {
		fmt.Fprintf(&b, "%s\n", formatAttempt(result.AttemptedTo))
	}
	for _, ev := range result.Events {
		if ev.Type == "pickup" || ev.Type == "delivery" || ev.Type == "victory" {
			fmt.Fprintf(&b, "• %s\n", ev.Message)
		}
	}
	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(result.PossibleMoves, ", "))
	}
	b.WriteString(formatLocalView(result.LocalView3x3))
	b.WriteString("\n")
	b.WriteString(formatWorldState(result.WorldState))
	return b.String()
}

func formatRoutePlan(plan *engine.RoutePlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Route for %s to %s: %s", plan.AgentID, plan.Goal, plan.Result.Status)
	if plan.Result.Reason != "" {
		fmt.Fprintf(&b, " (%s)", plan.Result.Reason)
	}
	fmt.Fprintf(&b, ", %d steps, %d nodes expanded\n", plan.Result.Steps(), plan.Result.Expanded)
	if len(plan.Directions) > 0 {
		fmt.Fprintf(&b, "  Directions: %s\n", strings.Join(plan.Directions, " "))
	}
	return b.String()
}

func formatFollowResult(result *service.FollowRouteResult) string {
	var b strings.Builder
	status := "in progress"
	switch {
	case result.Completed:
		status = "completed"
	case result.Blocked:
		status = "blocked"
	}
	fmt.Fprintf(&b, "%s followed %d steps, route %s, %d steps remaining\n",
		result.AgentID, len(result.Steps), status, result.Remaining)
	for _, ev := range result.Events {
		if ev.Type != "move" {
			fmt.Fprintf(&b, "• %s\n", ev.Message)
		}
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatWorldState(result.WorldState))
	return b.String()
}

func formatCell(cell *service.CellInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell at position (%d, %d):\n", cell.X, cell.Y)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "Type: %s\n", cell.Type)
	fmt.Fprintf(&b, "Occupied: %v\n", cell.Occupied)
	fmt.Fprintf(&b, "Road: %v", cell.Road)
	if cell.RoadSource != "" {
		fmt.Fprintf(&b, " (%s)", cell.RoadSource)
	}
	b.WriteString("\n")
	for _, name := range sortedKeys(cell.Walkable) {
		fmt.Fprintf(&b, "Walkable for %s: %v\n", name, cell.Walkable[name])
	}
	if len(cell.Agents) > 0 {
		fmt.Fprintf(&b, "Agents: %s\n", strings.Join(cell.Agents, ", "))
	}
	if len(cell.Victims) > 0 {
		fmt.Fprintf(&b, "Victims: %s\n", strings.Join(cell.Victims, ", "))
	}
	return b.String()
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d moves)\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		mark := "✅"
		if !move.Success {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s #%d %s %s: %s -> %s (%s) score %d\n",
			mark, move.MoveNumber, move.AgentID, move.Action,
			move.FromPosition, move.ToPosition, move.Outcome, move.Score)
	}

	if history.HasNext || history.HasPrevious {
		b.WriteString("\n")
		if history.HasPrevious {
			fmt.Fprintf(&b, "← Previous page: %d\n", history.Page-1)
		}
		if history.HasNext {
			fmt.Fprintf(&b, "→ Next page: %d\n", history.Page+1)
		}
	}
	return b.String()
}
