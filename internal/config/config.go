// Package config loads the scene file and resolves runtime secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/Hellevator/internal/topology"
)

type SceneConfig struct {
	Version int `yaml:"version"`
	Scene   struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"scene"`
	// Layout rows are levels top to bottom; each cell is a room type or -1.
	Layout     [][]int `yaml:"layout"`
	Simulation struct {
		TickMS    int    `yaml:"tick_ms"`
		SpawnMS   int    `yaml:"spawn_ms"`
		Seed      uint64 `yaml:"seed"`
		MaxAgents int    `yaml:"max_agents"`
	} `yaml:"simulation"`
	Elevators []ElevatorConfig `yaml:"elevators"`
	Network   struct {
		APIPort    int    `yaml:"api_port"`
		MQTTPrefix string `yaml:"mqtt_prefix"`
	} `yaml:"network"`
}

// ElevatorConfig is an elevator installed when the scene starts.
type ElevatorConfig struct {
	Start   int  `yaml:"start"`
	End     int  `yaml:"end"`
	Shaft   int  `yaml:"shaft"`
	Reverse bool `yaml:"reverse"`
}

// Default returns the built-in scene: the default layout, no elevators.
func Default() *SceneConfig {
	cfg := &SceneConfig{Version: 1}
	cfg.Scene.ID = "hell"
	cfg.Scene.Name = "Hellevator"
	return cfg
}

// SceneID returns the configured scene id, defaulting to "hell".
func (c *SceneConfig) SceneID() string {
	if c.Scene.ID == "" {
		return "hell"
	}
	return c.Scene.ID
}

// BuildingLayout returns the configured layout, or topology.DefaultLayout.
func (c *SceneConfig) BuildingLayout() topology.Layout {
	if len(c.Layout) == 0 {
		return topology.DefaultLayout
	}
	return topology.Layout(c.Layout)
}

// TickInterval returns the simulation step, defaulting to 50ms.
func (c *SceneConfig) TickInterval() time.Duration {
	if c.Simulation.TickMS <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.Simulation.TickMS) * time.Millisecond
}

// SpawnInterval returns the time between spawns, defaulting to 5s.
func (c *SceneConfig) SpawnInterval() time.Duration {
	if c.Simulation.SpawnMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Simulation.SpawnMS) * time.Millisecond
}

// MaxAgents caps the live population; 0 means no cap.
func (c *SceneConfig) MaxAgents() int {
	if c.Simulation.MaxAgents < 0 {
		return 0
	}
	return c.Simulation.MaxAgents
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *SceneConfig) APIPort() int {
	if c.Network.APIPort == 0 {
		return 8080
	}
	return c.Network.APIPort
}

// MQTTPrefix returns the topic prefix, defaulting to "hellevator/<scene>".
func (c *SceneConfig) MQTTPrefix() string {
	if c.Network.MQTTPrefix == "" {
		return "hellevator/" + c.SceneID()
	}
	return c.Network.MQTTPrefix
}

// Validate checks the layout and every preinstalled elevator.
func (c *SceneConfig) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported scene version: %d", c.Version)
	}
	layout := c.BuildingLayout()
	if err := layout.Validate(); err != nil {
		return err
	}
	for i, e := range c.Elevators {
		if e.Start == e.End {
			return fmt.Errorf("elevator %d: start and end level are both %d", i, e.Start)
		}
		for _, level := range []int{e.Start, e.End} {
			if level < 0 || level >= layout.Levels() {
				return fmt.Errorf("elevator %d: level %d outside 0..%d", i, level, layout.Levels()-1)
			}
		}
		if e.Shaft < 0 || e.Shaft >= layout.Shafts() {
			return fmt.Errorf("elevator %d: shaft %d outside 0..%d", i, e.Shaft, layout.Shafts()-1)
		}
	}
	return nil
}

func LoadSceneConfig(path string) (*SceneConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg SceneConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}
