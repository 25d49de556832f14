package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AaronLay10/Hellevator/internal/topology"
)

func writeScene(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write scene file: %v", err)
	}
	return path
}

func TestLoadSceneConfig(t *testing.T) {
	path := writeScene(t, `
version: 1
scene:
  id: lobby
  name: Lobby
layout:
  - [0, 1]
  - [2, -1]
simulation:
  tick_ms: 20
  spawn_ms: 1000
  seed: 42
elevators:
  - {start: 0, end: 1, shaft: 0}
  - {start: 1, end: 0, shaft: 2, reverse: true}
network:
  api_port: 9090
`)

	cfg, err := LoadSceneConfig(path)
	if err != nil {
		t.Fatalf("LoadSceneConfig: %v", err)
	}
	if cfg.SceneID() != "lobby" {
		t.Errorf("SceneID() = %q", cfg.SceneID())
	}
	if cfg.BuildingLayout().Shafts() != 3 {
		t.Errorf("expected 3 shafts, got %d", cfg.BuildingLayout().Shafts())
	}
	if cfg.TickInterval() != 20*time.Millisecond {
		t.Errorf("TickInterval() = %v", cfg.TickInterval())
	}
	if cfg.SpawnInterval() != time.Second {
		t.Errorf("SpawnInterval() = %v", cfg.SpawnInterval())
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("seed = %d", cfg.Simulation.Seed)
	}
	if len(cfg.Elevators) != 2 || !cfg.Elevators[1].Reverse {
		t.Errorf("unexpected elevators: %+v", cfg.Elevators)
	}
	if cfg.APIPort() != 9090 {
		t.Errorf("APIPort() = %d", cfg.APIPort())
	}
	if cfg.MQTTPrefix() != "hellevator/lobby" {
		t.Errorf("MQTTPrefix() = %q", cfg.MQTTPrefix())
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.APIPort() != 8080 {
		t.Errorf("APIPort() = %d, want 8080", cfg.APIPort())
	}
	if cfg.TickInterval() != 50*time.Millisecond {
		t.Errorf("TickInterval() = %v", cfg.TickInterval())
	}
	if cfg.SpawnInterval() != 5*time.Second {
		t.Errorf("SpawnInterval() = %v", cfg.SpawnInterval())
	}
	if cfg.BuildingLayout().Levels() != topology.DefaultLayout.Levels() {
		t.Error("expected the default layout")
	}
	if cfg.MaxAgents() != 0 {
		t.Errorf("MaxAgents() = %d", cfg.MaxAgents())
	}
}

func TestLoadSceneConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"version", "version: 2\n", "unsupported scene version"},
		{"ragged layout", "version: 1\nlayout: [[0, 1], [0]]\n", "columns"},
		{"same level", "version: 1\nelevators: [{start: 2, end: 2, shaft: 0}]\n", "both 2"},
		{"level range", "version: 1\nelevators: [{start: 0, end: 9, shaft: 0}]\n", "level 9"},
		{"shaft range", "version: 1\nelevators: [{start: 0, end: 1, shaft: 4}]\n", "shaft 4"},
		{"yaml", "version: [\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSceneConfig(writeScene(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadSceneConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestShippedSceneLoads(t *testing.T) {
	cfg, err := LoadSceneConfig(filepath.Join("..", "..", "scenes", "hell.yaml"))
	if err != nil {
		t.Fatalf("shipped scene failed to load: %v", err)
	}
	if cfg.SceneID() != "hell" {
		t.Errorf("scene id = %q, want hell", cfg.SceneID())
	}
	if len(cfg.Elevators) != 2 {
		t.Errorf("expected 2 preinstalled elevators, got %d", len(cfg.Elevators))
	}
	if cfg.BuildingLayout().Shafts() != topology.DefaultLayout.Shafts() {
		t.Errorf("shipped layout should match the default building")
	}
}
