// Package session manages the lifecycle of rescue sessions.
//
// A session pairs a short hex ID with its own engine.RescueEngine and the
// scenario it was built from. IDs are case-insensitive and either supplied
// by the caller or generated as 4 random hex characters.
//
// Manager is safe for concurrent use. With a SessionPersistence attached it
// saves on create and on demand, reloads sessions that were evicted from
// memory, and leaves persisted copies alone when CleanupExpiredSessions
// drops idle sessions.
//
// FilePersistence stores one JSON file per session holding the normalized
// scenario and a world snapshot. Loading rebuilds the engine from the
// scenario and restores the snapshot on top of it.
//
//	store, _ := session.NewFilePersistence("sessions", configs)
//	manager := session.NewManagerWithPersistence(store, log)
//	sess, err := manager.Create("", "classic", scenario)
package session
