// Package engine runs the rescue world on top of the grid, pathfind and
// movement packages.
//
// The engine package implements:
//   - Scenario loading and validation (JSON or YAML layouts, hazards, agents, victims)
//   - Grid construction with pedestrian and vehicle profiles and the road layer
//   - Route planning per agent, single and batched over grid snapshots
//   - Step-by-step route following through the movement validator
//   - Victim pickup and hospital delivery with an explicit score Ledger
//   - Snapshots, restore and move history
//
// Core Types:
//
// The Engine interface defines the contract used by the service layer,
// implemented by RescueEngine. WorldState is a serialisable snapshot, while
// ScenarioConfig defines the map and cast loaded from configs/.
//
// Usage:
//
//	config, err := engine.LoadScenarioConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	world, err := engine.NewEngine(config, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	plan, _ := world.PlanRoute("ambulance-1", grid.Pos(5, 1))
//	if plan.Result.Found() {
//		world.FollowRoute("ambulance-1", 0)
//	}
//
// Rescue Rules:
//
// An agent that ends a step on a waiting victim picks it up, one victim at a
// time. A carried victim is delivered as soon as its carrier stands on or
// next to a hospital cell. Vehicles never enter hospitals, so ambulances
// deliver from the curb. The scenario is won when every victim is delivered.
package engine
