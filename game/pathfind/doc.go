// Package pathfind implements deterministic A* search over a tile grid.
//
// Searches are pure: they read cell and profile state through a Neighbors
// oracle and keep all bookkeeping local to the call, so any number of
// searches may run in parallel over read-only snapshots (see Batch).
//
// Ordering of the open set is fully determined: f ascending, then g, then
// the Manhattan heuristic, then row, then column. Identical inputs always
// yield identical paths.
//
// A Result is tagged: StatusExact paths end on the goal, StatusPartial paths
// end on the closed node nearest to the goal (only when ReturnClosestOnFail
// is set), and StatusNotFound carries an empty path.
package pathfind
