// Package api exposes the rescue service over HTTP using gorilla/mux.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                 create ({"config_id": "classic"}; empty uses the default scenario)
//   - GET    /api/sessions                 list (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/unified         several sessions side by side (?sessionIds=a,b or ?configName=x)
//   - GET    /api/sessions/{id}            session with world snapshot and ASCII map
//   - DELETE /api/sessions/{id}
//
// World:
//   - GET  /api/sessions/{id}/state
//   - POST /api/sessions/{id}/reset
//   - GET  /api/sessions/{id}/history      (?page&limit&order&agent)
//   - GET  /api/sessions/{id}/cells/{x}/{y}
//   - POST /api/sessions/{id}/routes       plan several agents over one snapshot
//
// Agents:
//   - POST /api/sessions/{id}/agents/{agent}/route    {"x":5,"y":1}
//   - POST /api/sessions/{id}/agents/{agent}/move     {"direction":"up"} | {"directions":[...]} | {"to":{"x":2,"y":1}}
//   - POST /api/sessions/{id}/agents/{agent}/follow   {"max_steps":3}; 0 follows the whole route
//   - GET  /api/sessions/{id}/agents/{agent}/nearest
//
// Configuration:
//   - GET  /api/configs
//   - POST /api/configs                   scenario body, saved under config_id or a name-derived id
//   - GET  /api/configs/{name}
//
// Other:
//   - GET /api/health
//   - GET /ws?session={id}                WebSocket stream of world snapshots
//
// Errors are returned as {"error": "..."}; missing sessions, scenarios and
// agents map to 404, bad input to 400, following without a route to 409.
// Every mutating call broadcasts the new snapshot to the session's
// WebSocket clients.
package api
