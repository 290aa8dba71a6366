package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
)

func TestValidateScenarioConfig_Valid(t *testing.T) {
	if err := ValidateScenarioConfig(createTestConfig()); err != nil {
		t.Errorf("Expected valid config, got error: %v", err)
	}
}

func TestValidateScenarioConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ScenarioConfig)
		wantErr string
	}{
		{"missing name", func(c *ScenarioConfig) { c.Name = "" }, "name is required"},
		{"missing description", func(c *ScenarioConfig) { c.Description = "" }, "description is required"},
		{"too few rows", func(c *ScenarioConfig) { c.Layout = c.Layout[:2] }, "between 3 and 64 rows"},
		{"ragged row", func(c *ScenarioConfig) { c.Layout[2] = "BRB" }, "row 3 must have 7 characters"},
		{"bad character", func(c *ScenarioConfig) { c.Layout[1] = "BRRZRRB" }, "invalid character 'Z'"},
		{"no hospital", func(c *ScenarioConfig) { c.Layout[3] = "BRRRRRB" }, "at least one hospital"},
		{"bad legend key", func(c *ScenarioConfig) { c.Legend = map[string]string{"RR": "road"} }, "single character"},
		{"bad legend type", func(c *ScenarioConfig) { c.Legend = map[string]string{"W": "water"} }, "unknown cell type"},
		{"hazard rows", func(c *ScenarioConfig) { c.Hazards = []string{"......."} }, "hazards must have 7 rows"},
		{"hazard character", func(c *ScenarioConfig) {
			c.Hazards = []string{".......", ".......", ".......", "...x...", ".......", ".......", "......."}
		}, "invalid hazard character"},
		{"no agents", func(c *ScenarioConfig) { c.Agents = nil }, "at least one agent"},
		{"bad kind", func(c *ScenarioConfig) { c.Agents[0].Kind = "helicopter" }, "unknown actor kind"},
		{"agent out of bounds", func(c *ScenarioConfig) { c.Agents[1].Start = grid.Pos(7, 0) }, "out of bounds"},
		{"vehicle off road", func(c *ScenarioConfig) { c.Agents[0].Start = grid.Pos(0, 0) }, "must start on a clear road"},
		{"vehicle on hazard", func(c *ScenarioConfig) {
			c.Hazards = []string{".......", ".#.....", ".......", ".......", ".......", ".......", "......."}
		}, "must start on a clear road"},
		{"stacked vehicles", func(c *ScenarioConfig) {
			c.Agents = append(c.Agents, AgentConfig{ID: "ambulance-2", Kind: movement.KindVehicle, Start: grid.Pos(1, 1)})
		}, "shares start"},
		{"pedestrian on rubble", func(c *ScenarioConfig) { c.Agents[1].Start = grid.Pos(3, 2) }, "starts on rubble"},
		{"duplicate id", func(c *ScenarioConfig) { c.Victims[0].ID = "ambulance-1" }, "duplicate id"},
		{"victim out of bounds", func(c *ScenarioConfig) { c.Victims[0].Position = grid.Pos(-1, 2) }, "out of bounds"},
		{"victim in rubble", func(c *ScenarioConfig) { c.Victims[0].Position = grid.Pos(3, 2) }, "buried in rubble"},
		{"default profile", func(c *ScenarioConfig) { c.DefaultProfile = "boat" }, "default_profile"},
		{"negative budget", func(c *ScenarioConfig) { c.Search.MaxNodes = -1 }, "max_nodes"},
		{"victory format", func(c *ScenarioConfig) { c.Messages.Victory = "Done!" }, "messages.victory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig()
			tt.mutate(config)
			err := ValidateScenarioConfig(config)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.HasPrefix(err.Error(), "config validation:") {
				t.Errorf("Expected 'config validation:' prefix, got %q", err.Error())
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidateScenarioConfig_Nil(t *testing.T) {
	if err := ValidateScenarioConfig(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestValidateScenarioConfig_CustomLegend(t *testing.T) {
	config := createTestConfig()
	config.Legend = map[string]string{"~": "obstacle"}
	config.Layout[4] = "BRB~BRB"
	config.Victims[1].Position = grid.Pos(5, 4)
	if err := ValidateScenarioConfig(config); err != nil {
		t.Fatalf("Expected custom legend to validate, got %v", err)
	}

	g, err := BuildGrid(config)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}
	if g.Cell(3, 4).Type != grid.Rubble {
		t.Errorf("Expected '~' to map to rubble, got %s", g.Cell(3, 4).Type)
	}
}

func TestBuildGrid_Profiles(t *testing.T) {
	config := createTestConfig()
	config.Hazards = []string{
		".......",
		".......",
		".......",
		".......",
		".......",
		".#.....",
		".......",
	}
	config.DefaultProfile = ProfilePedestrian

	g, err := BuildGrid(config)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}

	ped := g.Profile(ProfilePedestrian)
	veh := g.Profile(ProfileVehicle)
	road := g.Layer(movement.RoadLayer)
	if ped == nil || veh == nil || road == nil {
		t.Fatal("Expected pedestrian, vehicle profiles and road layer")
	}
	if g.DefaultProfile() != ped {
		t.Error("Expected pedestrian default profile")
	}

	tests := []struct {
		pos            grid.Position
		ped, veh, road bool
	}{
		{grid.Pos(1, 1), true, true, true},
		{grid.Pos(0, 0), true, false, false},
		{grid.Pos(3, 2), false, false, false},
		{grid.Pos(3, 3), true, false, false},
		{grid.Pos(3, 4), true, false, false},
		{grid.Pos(1, 5), false, false, true},
	}
	for _, tt := range tests {
		if got := ped.IsWalkable(tt.pos.X, tt.pos.Y); got != tt.ped {
			t.Errorf("pedestrian %s: expected %v, got %v", tt.pos, tt.ped, got)
		}
		if got := veh.IsWalkable(tt.pos.X, tt.pos.Y); got != tt.veh {
			t.Errorf("vehicle %s: expected %v, got %v", tt.pos, tt.veh, got)
		}
		if got := road.IsWalkable(tt.pos.X, tt.pos.Y); got != tt.road {
			t.Errorf("road %s: expected %v, got %v", tt.pos, tt.road, got)
		}
	}
}

func TestParseScenarioConfig_YAML(t *testing.T) {
	data := []byte(`
name: tiny
description: three by three
layout:
  - RRR
  - RHR
  - RRR
agents:
  - id: amb
    kind: vehicle
    start: {x: 0, y: 0}
victims:
  - id: v1
    position: {x: 2, y: 2}
search:
  max_nodes: 50
  return_closest_on_fail: true
`)
	config, err := ParseScenarioConfig(data, "yaml")
	if err != nil {
		t.Fatalf("ParseScenarioConfig failed: %v", err)
	}
	if err := ValidateScenarioConfig(config); err != nil {
		t.Fatalf("Expected valid YAML scenario, got %v", err)
	}
	if config.Agents[0].Kind != movement.KindVehicle || config.Victims[0].Position != grid.Pos(2, 2) {
		t.Errorf("Unexpected decode: %+v", config)
	}
	if config.Search.MaxNodes != 50 || !config.Search.ReturnClosestOnFail {
		t.Errorf("Expected search options decoded, got %+v", config.Search)
	}

	if _, err := ParseScenarioConfig(data, "toml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestLoadScenarioConfig(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "tiny.json")
	jsonData := `{
		"name": "tiny",
		"description": "json scenario",
		"layout": ["RRR", "RHR", "RRR"],
		"agents": [{"id": "r1", "kind": "pedestrian", "start": {"x": 0, "y": 0}}],
		"victims": [{"id": "v1", "position": {"x": 2, "y": 0}}]
	}`
	if err := os.WriteFile(jsonPath, []byte(jsonData), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	config, err := LoadScenarioConfig(jsonPath)
	if err != nil {
		t.Fatalf("LoadScenarioConfig failed: %v", err)
	}
	if config.Name != "tiny" || config.Width() != 3 || config.Height() != 3 {
		t.Errorf("Unexpected config: %+v", config)
	}

	if _, err := LoadScenarioConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	badPath := filepath.Join(dir, "bad.json")
	os.WriteFile(badPath, []byte("{not json"), 0644)
	if _, err := LoadScenarioConfig(badPath); err == nil {
		t.Error("Expected error for malformed JSON")
	}

	invalidPath := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalidPath, []byte("name: x\ndescription: y\nlayout: [RRR, RRR, RRR]\n"), 0644)
	_, err = LoadScenarioConfig(invalidPath)
	if err == nil || !strings.Contains(err.Error(), "hospital") {
		t.Errorf("Expected hospital validation error, got %v", err)
	}
}
