package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const reachableConfig = `{
	"name": "Test Config",
	"description": "Test configuration",
	"layout": [
		"BBBBB",
		"BRRRB",
		"BRHRB",
		"BRRRB",
		"BBBBB"
	],
	"agents": [
		{"id": "amb", "kind": "vehicle", "start": {"x": 1, "y": 1}}
	],
	"victims": [
		{"id": "v1", "position": {"x": 3, "y": 3}}
	]
}`

// the right-hand column is walled off from the ambulance
const unreachableConfig = `{
	"name": "Unreachable Test",
	"description": "Config with a sealed pocket",
	"layout": [
		"BBBBBBB",
		"BRRRBRB",
		"BRHRBRB",
		"BRRRBRB",
		"BBBBBBB"
	],
	"agents": [
		{"id": "amb", "kind": "vehicle", "start": {"x": 1, "y": 1}}
	],
	"victims": [
		{"id": "v1", "position": {"x": 3, "y": 3}},
		{"id": "v2", "position": {"x": 5, "y": 2}}
	]
}`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestAnalyzeConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "district.json", reachableConfig)

	var out bytes.Buffer
	n, err := analyzeConfig(&out, path)
	if err != nil {
		t.Fatalf("analyzeConfig failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no unreachable victims, got %d", n)
	}

	for _, want := range []string{
		"Name: Test Config",
		"Grid Size: 5 x 5",
		"Hospitals: 1 (5 delivery tiles)",
		"amb (vehicle) at (1,1): 8 tiles reachable",
		"✅ v1 at (3,3): amb, 4 steps to pick up + 1 to deliver",
		"All victims can be rescued",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestAnalyzeConfig_Unreachable(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "pocket.json", unreachableConfig)

	var out bytes.Buffer
	n, err := analyzeConfig(&out, path)
	if err != nil {
		t.Fatalf("analyzeConfig failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 unreachable victim, got %d", n)
	}
	if !strings.Contains(out.String(), "v2 at (5,2): no agent can rescue") {
		t.Errorf("Expected v2 flagged, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "CRITICAL: 1 victims cannot be rescued") {
		t.Errorf("Expected critical summary, got:\n%s", out.String())
	}
}

func TestAnalyzeConfig_InvalidFile(t *testing.T) {
	var out bytes.Buffer
	if _, err := analyzeConfig(&out, "/non/existent/file.json"); err == nil {
		t.Error("Expected error for missing file")
	}

	path := writeConfig(t, t.TempDir(), "broken.json", `{"name": "test", invalid json}`)
	if _, err := analyzeConfig(&out, path); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestRun_Directory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.json", reachableConfig)
	writeConfig(t, dir, "b.json", reachableConfig)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"analyze", dir}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := strings.Count(out.String(), "=== Analyzing"); got != 2 {
		t.Errorf("Expected 2 reports, got %d:\n%s", got, out.String())
	}
}

func TestRun_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "pocket.json", unreachableConfig)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"analyze", "--json", path}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var entries []struct {
		File   string `json:"file"`
		Report struct {
			Victims []struct {
				VictimID string `json:"victim_id"`
				Rescuer  string `json:"rescuer"`
			} `json:"victims"`
		} `json:"report"`
	}
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, out.String())
	}
	if len(entries) != 1 || entries[0].File != "pocket.json" {
		t.Fatalf("Unexpected entries: %+v", entries)
	}
	victims := entries[0].Report.Victims
	if len(victims) != 2 || victims[0].Rescuer != "amb" || victims[1].Rescuer != "" {
		t.Errorf("Unexpected victims: %+v", victims)
	}
}

func TestRun_MissingPath(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"analyze", "/non/existent"}, &out); err == nil {
		t.Error("Expected error for missing path")
	}
}
