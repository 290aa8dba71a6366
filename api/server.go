package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/service"
	"github.com/wricardo/rescue-grid/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	log     *zap.Logger
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     log,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// must be before the {id} pattern
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// World operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetWorldState).Methods("GET")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/routes", s.handlePlanRoutes).Methods("POST")
	api.HandleFunc("/sessions/{id}/cells/{x:[0-9]+}/{y:[0-9]+}", s.handleDescribeCell).Methods("GET")

	// Agent operations
	api.HandleFunc("/sessions/{id}/agents/{agent}/route", s.handlePlanRoute).Methods("POST")
	api.HandleFunc("/sessions/{id}/agents/{agent}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/agents/{agent}/follow", s.handleFollow).Methods("POST")
	api.HandleFunc("/sessions/{id}/agents/{agent}/nearest", s.handleNearest).Methods("GET")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// the upgrader needs the raw writer
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrConfigNotFound),
		errors.Is(err, engine.ErrAgentNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoRoute):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	respondError(w, status, err.Error())
}

func (s *Server) broadcast(sessionID string, state *engine.WorldState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // alias of config_id
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	session, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.log.Info("session created", zap.String("session", session.ID), zap.String("scenario", session.ConfigName))
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// World Handlers

func (s *Server) handleGetWorldState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetWorldState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.broadcast(sessionID, state)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "World reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}
	opts.AgentID = query.Get("agent")

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "Invalid cell coordinates")
		return
	}

	cell, err := s.service.DescribeCell(r.Context(), vars["id"], grid.Pos(x, y))
	if err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cell)
}

// Agent Handlers

// goalRequest accepts {"x":1,"y":2} or {"goal":{"x":1,"y":2}}
type goalRequest struct {
	X    *int           `json:"x,omitempty"`
	Y    *int           `json:"y,omitempty"`
	Goal *grid.Position `json:"goal,omitempty"`
}

func (g goalRequest) position() (grid.Position, bool) {
	if g.Goal != nil {
		return *g.Goal, true
	}
	if g.X != nil && g.Y != nil {
		return grid.Pos(*g.X, *g.Y), true
	}
	return grid.Position{}, false
}

func (s *Server) handlePlanRoute(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	goal, ok := req.position()
	if !ok {
		respondError(w, http.StatusBadRequest, "goal is required")
		return
	}

	route, err := s.service.PlanRoute(r.Context(), vars["id"], vars["agent"], goal)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.log.Info("route planned",
		zap.String("session", vars["id"]),
		zap.String("agent", vars["agent"]),
		zap.Stringer("goal", goal),
		zap.String("status", string(route.Plan.Result.Status)),
		zap.Int("steps", route.Plan.Result.Steps()))
	respondJSON(w, http.StatusOK, route)
}

func (s *Server) handlePlanRoutes(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Requests []engine.RouteRequest `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.PlanRoutes(r.Context(), sessionID, req.Requests)
	if err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleMove runs one direction, a list of directions, or a step onto an
// adjacent tile depending on the body.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, agentID := vars["id"], vars["agent"]

	var req struct {
		Direction  string         `json:"direction,omitempty"`
		Directions []string       `json:"directions,omitempty"`
		To         *grid.Position `json:"to,omitempty"`
		Reset      bool           `json:"reset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch {
	case len(req.Directions) > 0:
		result, err := s.service.BulkMove(r.Context(), sessionID, agentID, req.Directions, req.Reset)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.broadcast(sessionID, result.WorldState)
		s.log.Info("bulk move",
			zap.String("session", sessionID),
			zap.String("agent", agentID),
			zap.Int("executed", result.MovesExecuted),
			zap.Int("requested", result.RequestedMoves),
			zap.String("stop", result.StopReasonCode),
			zap.Stringer("end", result.EndPos),
			zap.Int("score_delta", result.ScoreDelta))
		respondJSON(w, http.StatusOK, result)

	case req.Direction != "" || req.To != nil:
		var result *service.MoveResult
		var err error
		if req.To != nil {
			result, err = s.service.MoveTo(r.Context(), sessionID, agentID, *req.To)
		} else {
			result, err = s.service.Move(r.Context(), sessionID, agentID, req.Direction, req.Reset)
		}
		if err != nil {
			s.fail(w, err)
			return
		}
		s.broadcast(sessionID, result.WorldState)
		s.log.Info("move",
			zap.String("session", sessionID),
			zap.String("agent", agentID),
			zap.Stringer("decision", result.Step.Decision))
		respondJSON(w, http.StatusOK, result)

	default:
		respondError(w, http.StatusBadRequest, "one of direction, directions or to is required")
	}
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, agentID := vars["id"], vars["agent"]

	var req struct {
		MaxSteps int `json:"max_steps,omitempty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := s.service.FollowRoute(r.Context(), sessionID, agentID, req.MaxSteps)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.broadcast(sessionID, result.WorldState)
	s.log.Info("route followed",
		zap.String("session", sessionID),
		zap.String("agent", agentID),
		zap.Int("steps", len(result.Steps)),
		zap.Bool("completed", result.Completed),
		zap.Bool("blocked", result.Blocked))
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	near, err := s.service.Nearest(r.Context(), vars["id"], vars["agent"])
	if err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, near)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		engine.ScenarioConfig
		ConfigID string `json:"config_id,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = configIDFromName(req.Name)
	}

	if err := s.service.SaveConfig(r.Context(), configID, &req.ScenarioConfig); err != nil {
		s.fail(w, fmt.Errorf("failed to save config: %w", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// configIDFromName turns a display name into a file-safe identifier
func configIDFromName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo
	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		for _, id := range strings.Split(sessionIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if session, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, session)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		configName := query.Get("configName")
		for _, session := range all {
			if configName == "" || session.ConfigName == configName {
				sessions = append(sessions, session)
			}
		}
	}

	configName := ""
	totalVictims := 0
	if len(sessions) > 0 {
		configName = sessions[0].ConfigName
		if sessions[0].Scenario != nil {
			totalVictims = len(sessions[0].Scenario.Victims)
		}
	}

	entries := make([]map[string]interface{}, 0, len(sessions))
	for _, session := range sessions {
		entries = append(entries, map[string]interface{}{
			"session_id":    session.ID,
			"config_name":   session.ConfigName,
			"world_state":   session.WorldState,
			"map":           session.Map,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_name":   configName,
		"total_victims": totalVictims,
		"sessions":      entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not enabled", http.StatusNotImplemented)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
