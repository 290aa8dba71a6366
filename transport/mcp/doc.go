// Package mcp exposes the rescue REST API as Model Context Protocol tools.
//
// The Client holds no world state of its own. Every tool call becomes one or
// two HTTP requests against the api package and the JSON response is turned
// into a short text report an LLM agent can read: ledger, agents, victims and
// the ASCII map.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - world_state, reset, move_history, list_configs
//   - move, bulk_move: single steps and direction lists for one agent
//   - plan_route, plan_routes, follow_route: A* routes stored on agents
//   - nearest, describe_cell: lookups that help choose the next target
//   - instructions: rules and legend
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", log)
//	server.ServeStdio(client.GetMCPServer())
package mcp
