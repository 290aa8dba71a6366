// Package service provides the business logic layer shared by every
// transport (REST, WebSocket, MCP).
//
// GameService is the facade. It owns a service-wide lock, resolves sessions
// through a SessionManager, loads scenarios through a ConfigManager, and
// persists each session after every mutating call.
//
// Each session runs its own engine.RescueEngine, so sessions never share
// grids, agents or ledgers.
//
// Usage:
//
//	sessions := session.NewManager(log)
//	configs, _ := config.NewManager("configs", log)
//	svc := service.NewGameService(sessions, configs, log)
//
//	info, err := svc.CreateSession(ctx, "classic")
//	plan, err := svc.PlanRoute(ctx, info.ID, "ambulance-1", grid.Pos(5, 1))
//	follow, err := svc.FollowRoute(ctx, info.ID, "ambulance-1", 0)
//
// Errors wrap ErrSessionNotFound, ErrConfigNotFound or ErrInvalidArgument so
// transports can map them with errors.Is.
package service
