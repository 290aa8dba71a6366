package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
)

var defaultLegend = map[rune]grid.CellType{
	CharRoad:     grid.Road,
	CharRubble:   grid.Rubble,
	CharHospital: grid.Hospital,
	CharBuilding: grid.Building,
	CharEmpty:    grid.Empty,
}

// legendFor merges the scenario legend over the default characters
func legendFor(config *ScenarioConfig) (map[rune]grid.CellType, error) {
	legend := make(map[rune]grid.CellType, len(defaultLegend)+len(config.Legend))
	for k, v := range defaultLegend {
		legend[k] = v
	}
	for key, name := range config.Legend {
		runes := []rune(key)
		if len(runes) != 1 {
			return nil, fmt.Errorf("config validation: legend key %q must be a single character", key)
		}
		if runes[0] == CharHazard {
			return nil, fmt.Errorf("config validation: legend key %q is reserved for hazards", key)
		}
		ct, err := grid.ParseCellType(name)
		if err != nil {
			return nil, fmt.Errorf("config validation: legend[%q]: %v", key, err)
		}
		legend[runes[0]] = ct
	}
	return legend, nil
}

// ValidateScenarioConfig checks a scenario for structural correctness
func ValidateScenarioConfig(config *ScenarioConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	height := config.Height()
	width := config.Width()
	if height < MinGridSize || height > MaxGridSize {
		return fmt.Errorf("config validation: layout must have between %d and %d rows, got %d", MinGridSize, MaxGridSize, height)
	}
	if width < MinGridSize || width > MaxGridSize {
		return fmt.Errorf("config validation: layout rows must have between %d and %d characters, got %d", MinGridSize, MaxGridSize, width)
	}

	legend, err := legendFor(config)
	if err != nil {
		return err
	}

	hasHospital := false
	for i, row := range config.Layout {
		if len([]rune(row)) != width {
			return fmt.Errorf("config validation: row %d must have %d characters, got %d", i+1, width, len([]rune(row)))
		}
		for j, char := range []rune(row) {
			ct, ok := legend[char]
			if !ok {
				return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
			if ct == grid.Hospital {
				hasHospital = true
			}
		}
	}
	if !hasHospital {
		return fmt.Errorf("config validation: layout must contain at least one hospital cell")
	}

	if len(config.Hazards) > 0 {
		if len(config.Hazards) != height {
			return fmt.Errorf("config validation: hazards must have %d rows to match layout, got %d", height, len(config.Hazards))
		}
		for i, row := range config.Hazards {
			if len([]rune(row)) != width {
				return fmt.Errorf("config validation: hazard row %d must have %d characters, got %d", i+1, width, len([]rune(row)))
			}
			for j, char := range row {
				if char != CharHazard && char != CharEmpty {
					return fmt.Errorf("config validation: invalid hazard character '%c' at row %d, col %d", char, i+1, j+1)
				}
			}
		}
	}

	cellAt := func(p grid.Position) grid.CellType {
		return legend[[]rune(config.Layout[p.Y])[p.X]]
	}
	hazardAt := func(p grid.Position) bool {
		return len(config.Hazards) > 0 && []rune(config.Hazards[p.Y])[p.X] == CharHazard
	}
	inBounds := func(p grid.Position) bool {
		return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
	}

	if len(config.Agents) == 0 {
		return fmt.Errorf("config validation: at least one agent is required")
	}
	if len(config.Agents) > MaxAgents {
		return fmt.Errorf("config validation: at most %d agents allowed, got %d", MaxAgents, len(config.Agents))
	}
	if len(config.Victims) > MaxVictims {
		return fmt.Errorf("config validation: at most %d victims allowed, got %d", MaxVictims, len(config.Victims))
	}

	ids := make(map[string]bool)
	vehicleCells := make(map[grid.Position]string)
	for i, a := range config.Agents {
		if a.ID != "" {
			if ids[a.ID] {
				return fmt.Errorf("config validation: duplicate id %q", a.ID)
			}
			ids[a.ID] = true
		}
		kind, err := movement.ParseKind(string(a.Kind))
		if err != nil {
			return fmt.Errorf("config validation: agent %d: %v", i+1, err)
		}
		if !inBounds(a.Start) {
			return fmt.Errorf("config validation: agent %d starts out of bounds at %s", i+1, a.Start)
		}
		switch kind {
		case movement.KindVehicle:
			if cellAt(a.Start) != grid.Road || hazardAt(a.Start) {
				return fmt.Errorf("config validation: vehicle agent %d must start on a clear road, got %s at %s", i+1, cellAt(a.Start), a.Start)
			}
			if other, taken := vehicleCells[a.Start]; taken {
				return fmt.Errorf("config validation: agent %d shares start %s with vehicle %s", i+1, a.Start, other)
			}
			vehicleCells[a.Start] = fmt.Sprintf("%d", i+1)
		case movement.KindPedestrian:
			if cellAt(a.Start) == grid.Rubble {
				return fmt.Errorf("config validation: agent %d starts on rubble at %s", i+1, a.Start)
			}
		}
	}

	for i, v := range config.Victims {
		if v.ID != "" {
			if ids[v.ID] {
				return fmt.Errorf("config validation: duplicate id %q", v.ID)
			}
			ids[v.ID] = true
		}
		if !inBounds(v.Position) {
			return fmt.Errorf("config validation: victim %d is out of bounds at %s", i+1, v.Position)
		}
		if cellAt(v.Position) == grid.Rubble {
			return fmt.Errorf("config validation: victim %d is buried in rubble at %s", i+1, v.Position)
		}
	}

	switch config.DefaultProfile {
	case "", ProfilePedestrian, ProfileVehicle:
	default:
		return fmt.Errorf("config validation: default_profile must be %q or %q, got %q", ProfilePedestrian, ProfileVehicle, config.DefaultProfile)
	}
	if config.Search.MaxNodes < 0 {
		return fmt.Errorf("config validation: search.max_nodes must not be negative, got %d", config.Search.MaxNodes)
	}

	if config.Messages.Victory != "" && !strings.Contains(config.Messages.Victory, "%d") {
		return fmt.Errorf("config validation: messages.victory must contain %%d for victim count")
	}
	if config.Messages.Delivered != "" && !strings.Contains(config.Messages.Delivered, "%d") {
		return fmt.Errorf("config validation: messages.delivered must contain %%d for score")
	}

	return nil
}

// ParseScenarioConfig decodes a scenario. format is "json" or "yaml".
func ParseScenarioConfig(data []byte, format string) (*ScenarioConfig, error) {
	var config ScenarioConfig
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", format)
	}
	return &config, nil
}

// LoadScenarioConfig loads and validates a scenario file. The format follows
// the file extension.
func LoadScenarioConfig(filename string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseScenarioConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(filename), err)
	}

	if err := ValidateScenarioConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// normalizeScenario fills generated IDs and defaulted fields in place.
// It runs once per engine so IDs survive resets.
func normalizeScenario(config *ScenarioConfig) {
	for i := range config.Agents {
		if config.Agents[i].Kind == "" {
			config.Agents[i].Kind = movement.KindPedestrian
		}
		config.Agents[i].Kind, _ = movement.ParseKind(string(config.Agents[i].Kind))
		if config.Agents[i].ID == "" {
			config.Agents[i].ID = "agent-" + uuid.NewString()[:8]
		}
	}
	for i := range config.Victims {
		if config.Victims[i].ID == "" {
			config.Victims[i].ID = "victim-" + uuid.NewString()[:8]
		}
	}
	if config.Messages.Welcome == "" {
		config.Messages.Welcome = fmt.Sprintf("%s: %d victims waiting for rescue", config.Name, len(config.Victims))
	}
	if config.Messages.Pickup == "" {
		config.Messages.Pickup = "%s picked up %s"
	}
	if config.Messages.Delivered == "" {
		config.Messages.Delivered = "%s delivered %s to hospital. Score: %d"
	}
	if config.Messages.Victory == "" {
		config.Messages.Victory = "All %d victims delivered!"
	}
	if config.Messages.Blocked == "" {
		config.Messages.Blocked = "Move blocked"
	}
}

// cloneScenario deep-copies a scenario so callers cannot mutate engine config
func cloneScenario(config *ScenarioConfig) *ScenarioConfig {
	cp := *config
	cp.Layout = append([]string(nil), config.Layout...)
	cp.Hazards = append([]string(nil), config.Hazards...)
	cp.Agents = append([]AgentConfig(nil), config.Agents...)
	cp.Victims = append([]VictimConfig(nil), config.Victims...)
	if config.Legend != nil {
		cp.Legend = make(map[string]string, len(config.Legend))
		for k, v := range config.Legend {
			cp.Legend[k] = v
		}
	}
	return &cp
}

// BuildGrid turns a validated scenario into a grid with the pedestrian and
// vehicle profiles and the road layer registered.
func BuildGrid(config *ScenarioConfig) (*grid.Grid, error) {
	legend, err := legendFor(config)
	if err != nil {
		return nil, err
	}

	g := grid.NewGrid(config.Width(), config.Height())
	for y, row := range config.Layout {
		for x, char := range []rune(row) {
			ct, ok := legend[char]
			if !ok {
				return nil, fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", char, y+1, x+1)
			}
			g.SetCell(x, y, &grid.Cell{Type: ct})
		}
	}

	var hazards *grid.Profile
	if len(config.Hazards) > 0 {
		hazards = grid.NewProfileFunc(g.Width(), g.Height(), func(x, y int) bool {
			row := []rune(config.Hazards[y])
			return x >= len(row) || row[x] != CharHazard
		})
	}

	roads := grid.ProfileFromGrid(g, func(c *grid.Cell) bool { return c.Type == grid.Road })
	onFoot := grid.ProfileFromGrid(g, func(c *grid.Cell) bool { return c.Type != grid.Rubble })

	g.SetLayer(movement.RoadLayer, roads)
	g.SetProfile(ProfilePedestrian, grid.Merge(onFoot, hazards))
	g.SetProfile(ProfileVehicle, grid.Merge(roads, hazards))
	if config.DefaultProfile != "" {
		g.SetDefaultProfile(g.Profile(config.DefaultProfile))
	}

	return g, nil
}

// DefaultScenario returns the built-in scenario used when no file is available
func DefaultScenario() *ScenarioConfig {
	return &ScenarioConfig{
		Name:        "default",
		Description: "A small district with one hospital, one ambulance and one rescuer",
		Layout: []string{
			"BBBBBBB",
			"BRRRRRB",
			"BRBXBRB",
			"BRRHRRB",
			"BRB.BRB",
			"BRRRRRB",
			"BBBBBBB",
		},
		Agents: []AgentConfig{
			{ID: "ambulance-1", Kind: movement.KindVehicle, Start: grid.Pos(1, 1)},
			{ID: "rescuer-1", Kind: movement.KindPedestrian, Start: grid.Pos(5, 5)},
		},
		Victims: []VictimConfig{
			{ID: "victim-1", Position: grid.Pos(5, 1)},
			{ID: "victim-2", Position: grid.Pos(3, 4)},
		},
	}
}
