package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
)

// RendererConfig sizes the GPU frame ring and its per-frame attachments.
type RendererConfig struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
	Width          uint32 `toml:"width"`
	Height         uint32 `toml:"height"`
	MeshCapacity   uint32 `toml:"mesh_capacity"`
	ShadowMapSize  uint32 `toml:"shadow_map_size"`
}

type AssetsConfig struct {
	ShaderDir string `toml:"shader_dir"`
}

type DemoConfig struct {
	SimulatedFrames uint32 `toml:"simulated_frames"`
}

type Config struct {
	AppName  string         `toml:"app_name"`
	LogLevel string         `toml:"log_level"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Demo     DemoConfig     `toml:"demo"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		AppName:  "Penumbra",
		LogLevel: "info",
		Renderer: RendererConfig{
			FramesInFlight: 3,
			Width:          1280,
			Height:         720,
			MeshCapacity:   64,
			ShadowMapSize:  2048,
		},
		Assets: AssetsConfig{
			ShaderDir: "shaders",
		},
		Demo: DemoConfig{
			SimulatedFrames: 240,
		},
	}
}

// LoadConfig reads a TOML file at path. A missing file is not an error and
// yields the defaults. Values present in the file override the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogInfo("no config file at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the renderer cannot work with and clamps the
// shadow map to a sane range.
func (c *Config) Validate() error {
	if c.Renderer.FramesInFlight < 1 {
		return fmt.Errorf("frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Renderer.Width == 0 || c.Renderer.Height == 0 {
		return fmt.Errorf("render target dimensions must be non-zero, got %dx%d", c.Renderer.Width, c.Renderer.Height)
	}
	if c.Renderer.MeshCapacity < 1 {
		return fmt.Errorf("mesh_capacity must be at least 1, got %d", c.Renderer.MeshCapacity)
	}
	if c.Assets.ShaderDir == "" {
		return errors.New("shader_dir must not be empty")
	}

	clamped := math.Clamp(c.Renderer.ShadowMapSize, 256, 8192)
	if clamped != c.Renderer.ShadowMapSize {
		core.LogWarn("shadow_map_size %d out of range, clamped to %d", c.Renderer.ShadowMapSize, clamped)
		c.Renderer.ShadowMapSize = clamped
	}
	return nil
}
