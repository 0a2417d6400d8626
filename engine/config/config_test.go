package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	def := DefaultConfig()
	if *cfg != *def {
		t.Fatalf("expected defaults %+v; got %+v", def, cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penumbra.toml")
	content := `
app_name = "Test"
log_level = "debug"

[renderer]
frames_in_flight = 2
mesh_capacity = 8
shadow_map_size = 1024
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if cfg.AppName != "Test" {
		t.Fatalf("expected app name Test; got %s", cfg.AppName)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug; got %s", cfg.LogLevel)
	}
	if cfg.Renderer.FramesInFlight != 2 {
		t.Fatalf("expected 2 frames in flight; got %d", cfg.Renderer.FramesInFlight)
	}
	if cfg.Renderer.MeshCapacity != 8 {
		t.Fatalf("expected mesh capacity 8; got %d", cfg.Renderer.MeshCapacity)
	}
	if cfg.Renderer.ShadowMapSize != 1024 {
		t.Fatalf("expected shadow map size 1024; got %d", cfg.Renderer.ShadowMapSize)
	}
	// Untouched keys keep their defaults.
	if cfg.Renderer.Width != 1280 || cfg.Renderer.Height != 720 {
		t.Fatalf("expected default dimensions; got %dx%d", cfg.Renderer.Width, cfg.Renderer.Height)
	}
	if cfg.Assets.ShaderDir != "shaders" {
		t.Fatalf("expected default shader dir; got %s", cfg.Assets.ShaderDir)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("frames_in_flight = ["), 0o644); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for malformed config")
	}
}

func TestValidate(t *testing.T) {
	type spec struct {
		mutate  func(*Config)
		wantErr bool
	}
	specs := []spec{
		{func(c *Config) {}, false},
		{func(c *Config) { c.Renderer.FramesInFlight = 0 }, true},
		{func(c *Config) { c.Renderer.Width = 0 }, true},
		{func(c *Config) { c.Renderer.MeshCapacity = 0 }, true},
		{func(c *Config) { c.Assets.ShaderDir = "" }, true},
	}

	for index, s := range specs {
		cfg := DefaultConfig()
		s.mutate(cfg)
		err := cfg.Validate()
		if s.wantErr && err == nil {
			t.Fatalf("[spec %d] expected error; got nil", index)
		}
		if !s.wantErr && err != nil {
			t.Fatalf("[spec %d] unexpected error %v", index, err)
		}
	}
}

func TestValidateClampsShadowMapSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Renderer.ShadowMapSize = 64
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if cfg.Renderer.ShadowMapSize != 256 {
		t.Fatalf("expected clamp to 256; got %d", cfg.Renderer.ShadowMapSize)
	}

	cfg.Renderer.ShadowMapSize = 1 << 20
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if cfg.Renderer.ShadowMapSize != 8192 {
		t.Fatalf("expected clamp to 8192; got %d", cfg.Renderer.ShadowMapSize)
	}
}
