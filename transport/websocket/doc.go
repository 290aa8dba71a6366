// Package websocket pushes world snapshots to browser or agent clients.
//
// A Hub owns every connection. Clients attach to one session through
// /ws?session=<id>; after each mutating REST call the API server hands the
// new engine.WorldState to BroadcastToSession and every client of that
// session receives:
//
//	{"session_id": "a1b2", "event": "state_update", "world_state": {...}, "map": ["BBB", ...]}
//
// Register, unregister and broadcast requests are serialised through the
// Run loop. Broadcasts are queued without blocking the caller; a slow client
// whose send buffer fills up is disconnected.
//
//	hub := websocket.NewHub(log)
//	go hub.Run(ctx)
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
