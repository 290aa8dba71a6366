// Package validate checks scenario files before they are served. Beyond the
// structural rules enforced by engine.ValidateScenarioConfig it proves that
// every victim can be rescued: some agent can reach the victim on its own
// profile and then carry it to a tile from which a hospital delivery counts.
package validate

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zyedidia/generic/mapset"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/movement"
	"github.com/wricardo/rescue-grid/game/pathfind"
)

// ValidationResult captures the outcome of validating a single file.
// Errors is empty when Valid is true; Info always carries the summary lines.
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
	Info   []string `json:"info"`
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) note(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// AgentReach summarises what one agent can get to from its start
type AgentReach struct {
	AgentID   string        `json:"agent_id"`
	Kind      movement.Kind `json:"kind"`
	Start     grid.Position `json:"start"`
	Tiles     int           `json:"tiles"`
	Hospitals int           `json:"hospital_approaches"`
}

// VictimReach is the cheapest known rescue of one victim. Rescuer is empty
// when no agent can both reach the victim and deliver it.
type VictimReach struct {
	VictimID      string        `json:"victim_id"`
	Position      grid.Position `json:"position"`
	Rescuer       string        `json:"rescuer,omitempty"`
	PickupSteps   int           `json:"pickup_steps"`
	DeliverySteps int           `json:"delivery_steps"`
	DeliverAt     grid.Position `json:"deliver_at"`
}

// Reachable reports whether some agent can rescue the victim
func (v VictimReach) Reachable() bool { return v.Rescuer != "" }

// Report is the reachability analysis of a scenario
type Report struct {
	Name       string        `json:"name"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Hospitals  int           `json:"hospitals"`
	Approaches int           `json:"approaches"`
	Agents     []AgentReach  `json:"agents"`
	Victims    []VictimReach `json:"victims"`
}

// Unreachable lists victims nobody can rescue
func (r *Report) Unreachable() []VictimReach {
	var out []VictimReach
	for _, v := range r.Victims {
		if !v.Reachable() {
			out = append(out, v)
		}
	}
	return out
}

// Analyze builds the scenario's world and measures every rescue with A*.
// Occupancy is ignored so that agents parked in a corridor do not hide
// routes that open once they move.
func Analyze(config *engine.ScenarioConfig) (*Report, error) {
	eng, err := engine.NewEngine(config, nil)
	if err != nil {
		return nil, err
	}
	g := eng.Grid().Clone()
	g.Each(func(c *grid.Cell) { c.Occupied = false })

	approaches := engine.HospitalApproaches(g)
	report := &Report{
		Name:       eng.Config().Name,
		Width:      g.Width(),
		Height:     g.Height(),
		Hospitals:  g.Count(grid.Hospital),
		Approaches: len(approaches),
	}

	agents := eng.Agents()
	reach := make([]mapset.Set[grid.Position], len(agents))
	for i, a := range agents {
		nb := pathfind.ProfileNeighbors(g, g.Profile(string(a.Kind)))
		reach[i] = flood(a.Pos, nb)
		ar := AgentReach{AgentID: a.ID, Kind: a.Kind, Start: a.Pos, Tiles: reach[i].Size()}
		for _, p := range approaches {
			if reach[i].Has(p) {
				ar.Hospitals++
			}
		}
		report.Agents = append(report.Agents, ar)
	}

	for _, v := range eng.Victims() {
		vr := VictimReach{VictimID: v.ID, Position: v.Pos}
		best := -1
		for i, a := range agents {
			if !reach[i].Has(v.Pos) {
				continue
			}
			nb := pathfind.ProfileNeighbors(g, g.Profile(string(a.Kind)))
			pickup := pathfind.FindPath(a.Pos, v.Pos, nb, pathfind.Options{})
			if !pickup.Found() {
				continue
			}
			for _, p := range approaches {
				if !reach[i].Has(p) {
					continue
				}
				deliver := pathfind.FindPath(v.Pos, p, nb, pathfind.Options{})
				if !deliver.Found() {
					continue
				}
				total := pickup.Steps() + deliver.Steps()
				if best == -1 || total < best {
					best = total
					vr.Rescuer = a.ID
					vr.PickupSteps = pickup.Steps()
					vr.DeliverySteps = deliver.Steps()
					vr.DeliverAt = p
				}
			}
		}
		report.Victims = append(report.Victims, vr)
	}

	return report, nil
}

// flood collects every tile reachable from start
func flood(start grid.Position, nb pathfind.Neighbors) mapset.Set[grid.Position] {
	seen := mapset.New[grid.Position]()
	seen.Put(start)
	queue := []grid.Position{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range nb.Neighbors(current) {
			if !seen.Has(n) {
				seen.Put(n)
				queue = append(queue, n)
			}
		}
	}
	return seen
}

// Scenario validates an already parsed scenario
func Scenario(config *engine.ScenarioConfig) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []string{}, Info: []string{}}

	if err := engine.ValidateScenarioConfig(config); err != nil {
		result.fail("%v", err)
		return result
	}

	report, err := Analyze(config)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	unreachable := report.Unreachable()
	if len(unreachable) > 0 {
		result.fail("Connectivity failure: %d/%d victims cannot be rescued", len(unreachable), len(report.Victims))
		for _, v := range unreachable {
			result.fail("Unreachable: %s at %s", v.VictimID, v.Position)
		}
	}

	result.note("✓ Name: %s", report.Name)
	result.note("✓ Grid: %dx%d", report.Width, report.Height)
	result.note("✓ Hospitals: %d (%d delivery tiles)", report.Hospitals, report.Approaches)
	result.note("✓ Agents: %d", len(report.Agents))
	for _, a := range report.Agents {
		if a.Hospitals == 0 {
			result.note("! %s (%s) cannot reach any hospital", a.AgentID, a.Kind)
		}
	}
	if len(unreachable) == 0 {
		result.note("✓ Connectivity: all %d victims can be rescued", len(report.Victims))
	}
	return result
}

// File loads and validates one scenario file. JSON and YAML are accepted.
func File(path string) ValidationResult {
	config, err := engine.LoadScenarioConfig(path)
	if err != nil {
		return ValidationResult{
			File:   filepath.Base(path),
			Errors: []string{err.Error()},
			Info:   []string{},
		}
	}
	result := Scenario(config)
	result.File = filepath.Base(path)
	return result
}

// ScenarioFiles lists the scenario files in dir, sorted by name
func ScenarioFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// Dir validates every scenario file in dir
func Dir(dir string) ([]ValidationResult, error) {
	files, err := ScenarioFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("finding config files: %w", err)
	}
	results := make([]ValidationResult, 0, len(files))
	for _, f := range files {
		results = append(results, File(f))
	}
	return results, nil
}

// Format renders results the way the validate command prints them and
// reports whether all of them passed.
func Format(results []ValidationResult) (string, bool) {
	var b strings.Builder
	allValid := true
	for _, result := range results {
		fmt.Fprintf(&b, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			b.WriteString("✅ VALID\n")
			for _, info := range result.Info {
				b.WriteString("  " + info + "\n")
			}
			continue
		}
		allValid = false
		b.WriteString("❌ INVALID\n")
		for _, err := range result.Errors {
			b.WriteString("  ❌ " + err + "\n")
		}
	}

	fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		b.WriteString("✅ All configurations are valid!\n")
	} else {
		b.WriteString("❌ Some configurations have errors\n")
	}
	return b.String(), allValid
}
