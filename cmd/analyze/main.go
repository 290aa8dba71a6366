// Command analyze prints a reachability report for scenario files: grid
// dimensions, hospitals and delivery tiles, how much of the map each agent
// can cover, and which agent can rescue each victim most cheaply.
//
//	analyze [--json] [file-or-dir ...]
//
// With no arguments the configs directory is analyzed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/validate"
)

func main() {
	if err := run(context.Background(), os.Args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, w io.Writer) error {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "reachability report for rescue scenarios",
		ArgsUsage: "[file-or-dir ...]",
		Writer:    w,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print reports as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				paths = []string{"configs"}
			}
			files, err := expand(paths)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return writeJSON(w, files)
			}
			critical := 0
			for _, f := range files {
				fmt.Fprintf(w, "\n=== Analyzing %s ===\n", filepath.Base(f))
				n, err := analyzeConfig(w, f)
				if err != nil {
					fmt.Fprintf(w, "Error: %v\n", err)
					critical++
					continue
				}
				critical += n
			}
			if critical > 0 {
				return fmt.Errorf("%d problems found", critical)
			}
			return nil
		},
	}
	return cmd.Run(ctx, args)
}

// expand replaces directories with the scenario files inside them
func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := validate.ScenarioFiles(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func load(path string) (*validate.Report, error) {
	config, err := engine.LoadScenarioConfig(path)
	if err != nil {
		return nil, err
	}
	return validate.Analyze(config)
}

// analyzeConfig prints one report and returns the number of victims nobody
// can rescue.
func analyzeConfig(w io.Writer, path string) (int, error) {
	report, err := load(path)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(w, "Name: %s\n", report.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", report.Width, report.Height)
	fmt.Fprintf(w, "Hospitals: %d (%d delivery tiles)\n", report.Hospitals, report.Approaches)

	fmt.Fprintf(w, "Agents:\n")
	for _, a := range report.Agents {
		fmt.Fprintf(w, "  %s (%s) at %s: %d tiles reachable, %d delivery tiles\n",
			a.AgentID, a.Kind, a.Start, a.Tiles, a.Hospitals)
	}

	fmt.Fprintf(w, "Victims:\n")
	for _, v := range report.Victims {
		if !v.Reachable() {
			fmt.Fprintf(w, "  ⚠️  %s at %s: no agent can rescue\n", v.VictimID, v.Position)
			continue
		}
		fmt.Fprintf(w, "  ✅ %s at %s: %s, %d steps to pick up + %d to deliver at %s\n",
			v.VictimID, v.Position, v.Rescuer, v.PickupSteps, v.DeliverySteps, v.DeliverAt)
	}

	unreachable := report.Unreachable()
	if len(unreachable) > 0 {
		fmt.Fprintf(w, "⚠️  CRITICAL: %d victims cannot be rescued!\n", len(unreachable))
	} else {
		fmt.Fprintf(w, "✅ All victims can be rescued\n")
	}
	return len(unreachable), nil
}

func writeJSON(w io.Writer, files []string) error {
	type entry struct {
		File   string           `json:"file"`
		Report *validate.Report `json:"report,omitempty"`
		Error  string           `json:"error,omitempty"`
	}
	out := make([]entry, 0, len(files))
	for _, f := range files {
		e := entry{File: filepath.Base(f)}
		report, err := load(f)
		if err != nil {
			e.Error = err.Error()
		} else {
			e.Report = report
		}
		out = append(out, e)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
