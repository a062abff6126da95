package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plus3/softbody/gfx/soft"
	"github.com/plus3/softbody/resource"
	"github.com/plus3/softbody/systems"
)

// Config holds the asset location, the optional systems and the render
// settings of a run.
type Config struct {
	// Paths
	AssetRoot string   `json:"asset_root"`
	Autoload  []string `json:"autoload"`

	// MeshManagement enables the loader and buffer systems. Nil means on.
	MeshManagement *bool `json:"mesh_management"`

	// Window and shaders
	Title          string `json:"title"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	VertexShader   string `json:"vertex_shader"`
	FragmentShader string `json:"fragment_shader"`

	// Software device settings
	Supersample    int `json:"supersample"`
	MaxBufferBytes int `json:"max_buffer_bytes"`
}

// Load reads a JSON config file. Fields not set in the file keep their zero
// values until Resolve fills them.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	AssetRoot        string
	Autoload         string
	NoMeshManagement bool
	Width            int
	Height           int
	Supersample      int
}

// Resolve applies flag overrides, then fills every empty field with its
// default. CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.AssetRoot != "" {
		c.AssetRoot = flags.AssetRoot
	}
	if flags.Autoload != "" {
		c.Autoload = splitList(flags.Autoload)
	}
	if flags.NoMeshManagement {
		off := false
		c.MeshManagement = &off
	}
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Supersample > 0 {
		c.Supersample = flags.Supersample
	}

	if c.AssetRoot == "" {
		c.AssetRoot = detectAssetRoot()
	}

	defaults := systems.DefaultRenderConfig()
	if c.Title == "" {
		c.Title = defaults.Title
	}
	if c.Width <= 0 {
		c.Width = defaults.Width
	}
	if c.Height <= 0 {
		c.Height = defaults.Height
	}
	if c.VertexShader == "" {
		c.VertexShader = defaults.VertexShader
	}
	if c.FragmentShader == "" {
		c.FragmentShader = defaults.FragmentShader
	}
	if c.Supersample <= 0 {
		c.Supersample = 1
	}
}

// MeshManagementEnabled reports whether the loader systems run.
func (c *Config) MeshManagementEnabled() bool {
	return c.MeshManagement == nil || *c.MeshManagement
}

func (c *Config) Resolver() resource.Resolver {
	return resource.Resolver{Root: c.AssetRoot}
}

func (c *Config) RenderConfig() systems.RenderConfig {
	return systems.RenderConfig{
		Title:          c.Title,
		Width:          c.Width,
		Height:         c.Height,
		VertexShader:   c.VertexShader,
		FragmentShader: c.FragmentShader,
		Resolver:       c.Resolver(),
	}
}

func (c *Config) DeviceOptions() soft.Options {
	opts := soft.DefaultOptions()
	opts.Supersample = c.Supersample
	opts.MaxBufferBytes = c.MaxBufferBytes
	return opts
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// detectAssetRoot looks for an assets directory holding the default shaders
// next to the executable, then in and above the working directory.
func detectAssetRoot() string {
	marker := filepath.Join("shaders", "phong.vert")

	var candidates []string
	if exe, _ := os.Executable(); exe != "" {
		dir := filepath.Dir(exe)
		candidates = append(candidates, filepath.Join(dir, "assets"), filepath.Join(dir, "..", "assets"))
	}
	if cwd, _ := os.Getwd(); cwd != "" {
		candidates = append(candidates, filepath.Join(cwd, "assets"), cwd, filepath.Join(filepath.Dir(cwd), "assets"))
	}

	for _, base := range candidates {
		if _, err := os.Stat(filepath.Join(base, marker)); err == nil {
			return base
		}
	}
	return "assets"
}
