// Package config provides scenario and server configuration management.
//
// The config package handles:
//   - Loading rescue scenarios from JSON or YAML files
//   - Scenario validation through the engine package
//   - Default scenario selection and listing
//   - Server settings from config.yaml and the environment
//
// Scenario Format:
//
// Scenarios are stored in the configs directory as name.json, name.yaml or
// name.yml. The name without extension is the scenario ID used to create
// sessions. Each scenario defines:
//   - Layout rows (R road, X rubble, H hospital, B building, . empty)
//   - Optional hazard rows (# blocks both profiles)
//   - Agents (pedestrian or vehicle) and victims
//   - Search options (node budget, closest-on-fail)
//
// Usage:
//
//	manager, err := config.NewManager("configs", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	scenario, err := manager.LoadConfig("flooded_district")
//	defaultScenario := manager.GetDefault()
//	scenarios, err := manager.ListConfigs()
//
// Settings:
//
// LoadSettings applies defaults, then the YAML file, then environment
// variables (RESCUE_HOST, PORT, CONFIG_DIR, SESSIONS_DIR, LOG_LEVEL, LOG_FILE).
// Command-line flags are applied last by the caller.
package config
