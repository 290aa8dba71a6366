// Package movement validates and commits single-step moves on a grid.
//
// Each actor class is a Policy. The set is closed: Pedestrian and Vehicle
// are the only implementations, chosen when an agent is created.
//
// A Validator serialises every occupancy mutation on its grid. Move runs
// the whole check chain and, only if it passes, commits the move while
// holding the lock, so a rejected move never changes state.
package movement
