package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/grid"
	"github.com/wricardo/rescue-grid/game/service"
)

// stubConfigs resolves every name to the test scenario
type stubConfigs struct{}

func (stubConfigs) LoadConfig(name string) (*engine.ScenarioConfig, error) {
	if name != "test" {
		return nil, service.ErrConfigNotFound
	}
	return createTestConfig(), nil
}
func (stubConfigs) ListConfigs() ([]*service.ConfigInfo, error)     { return nil, nil }
func (stubConfigs) GetDefault() *engine.ScenarioConfig              { return createTestConfig() }
func (stubConfigs) SaveConfig(string, *engine.ScenarioConfig) error { return nil }

func newTestSession(t *testing.T, id string) *service.Session {
	t.Helper()
	eng, err := engine.NewEngine(createTestConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	now := time.Now().Truncate(time.Second)
	return &service.Session{
		ID:             id,
		ConfigID:       "test",
		Engine:         eng,
		Config:         eng.Config(),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestFilePersistence(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir, stubConfigs{})
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	t.Run("save and load round trip", func(t *testing.T) {
		sess := newTestSession(t, "abcd")
		for _, dir := range []string{"right", "right"} {
			if _, err := sess.Engine.Step("amb", dir); err != nil {
				t.Fatalf("Step failed: %v", err)
			}
		}

		if err := fp.Save(sess); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := fp.Load("abcd")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.ID != "abcd" || loaded.ConfigID != "test" {
			t.Errorf("Expected abcd/test, got %s/%s", loaded.ID, loaded.ConfigID)
		}
		if !loaded.CreatedAt.Equal(sess.CreatedAt) {
			t.Errorf("Expected created at %v, got %v", sess.CreatedAt, loaded.CreatedAt)
		}

		amb, _ := loaded.Engine.Agent("amb")
		if amb.Pos != grid.Pos(3, 1) || amb.Carrying != "v1" {
			t.Errorf("Expected ambulance at (3,1) carrying v1, got %+v", amb)
		}
		if loaded.Engine.Ledger() != sess.Engine.Ledger() {
			t.Errorf("Expected ledger %+v, got %+v", sess.Engine.Ledger(), loaded.Engine.Ledger())
		}
		if len(loaded.Engine.MoveHistory()) != 2 {
			t.Errorf("Expected 2 history entries, got %d", len(loaded.Engine.MoveHistory()))
		}
		if loaded.Engine.Grid().Cell(1, 1).Occupied || !loaded.Engine.Grid().Cell(3, 1).Occupied {
			t.Error("Expected occupancy to follow the restored vehicle")
		}
	})

	t.Run("generated IDs survive reload", func(t *testing.T) {
		config := createTestConfig()
		config.Victims[0].ID = ""
		eng, err := engine.NewEngine(config, nil)
		if err != nil {
			t.Fatalf("Failed to create engine: %v", err)
		}
		victimID := eng.Victims()[0].ID
		sess := &service.Session{ID: "gen1", ConfigID: "test", Engine: eng, Config: eng.Config()}

		if err := fp.Save(sess); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := fp.Load("gen1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got := loaded.Engine.Victims()[0].ID; got != victimID {
			t.Errorf("Expected victim ID %s, got %s", victimID, got)
		}
	})

	t.Run("scenario falls back to config manager", func(t *testing.T) {
		sess := newTestSession(t, "old1")
		data := PersistedSessionData{
			ID:         "old1",
			ConfigName: "test",
			WorldState: sess.Engine.Snapshot(),
		}
		raw, _ := json.Marshal(data)
		if err := os.WriteFile(filepath.Join(dir, "old1.json"), raw, 0644); err != nil {
			t.Fatal(err)
		}

		loaded, err := fp.Load("old1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.Config.Name != "Test Config" {
			t.Errorf("Expected scenario from config manager, got %s", loaded.Config.Name)
		}
	})

	t.Run("load missing", func(t *testing.T) {
		if _, err := fp.Load("none"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		ids, err := fp.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(ids) != 3 {
			t.Errorf("Expected 3 sessions on disk, got %v", ids)
		}

		if err := fp.Delete("abcd"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if fp.Exists("abcd") {
			t.Error("Expected file to be removed")
		}
		if err := fp.Delete("abcd"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("nil session", func(t *testing.T) {
		if err := fp.Save(nil); err == nil {
			t.Error("Expected error saving nil session")
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	if err := fp.Save(newTestSession(t, "MiXeD")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "mixed.json"))
	if err != nil {
		t.Fatalf("Expected lower-case file name: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	for _, key := range []string{"id", "config_name", "created_at", "last_accessed_at", "scenario", "world_state"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("Expected key %q in session file", key)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "mixed.json.tmp")); !os.IsNotExist(err) {
		t.Error("Expected no temporary file left behind")
	}
}
