// Package config loads the YAML engine configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/mapengine.yaml
var defaultYAML []byte

var ErrInvalid = errors.New("invalid config")

// Config contains everything the engine and its hosts are tuned with.
type Config struct {
	Window    Window  `yaml:"window"`
	FrameRate int     `yaml:"frame_rate"`
	MapsDir   string  `yaml:"maps_dir"`
	Tileset   Tileset `yaml:"tileset"`
	Person    Person  `yaml:"person"`
	Talk      Talk    `yaml:"talk"`
	Scripts   Scripts `yaml:"scripts"`
	LogLevel  string  `yaml:"log_level"`
}

// Window defines the host window.
type Window struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Scale  float64 `yaml:"scale"`
	Title  string  `yaml:"title"`
}

// Tileset defines tile geometry, passability and the flat colours tiles are
// drawn with.
type Tileset struct {
	TileWidth  int            `yaml:"tile_width"`
	TileHeight int            `yaml:"tile_height"`
	Obstructed []int          `yaml:"obstructed"`
	Palette    map[int]string `yaml:"palette"`
}

// Person defines defaults for newly created persons.
type Person struct {
	BaseWidth  float64 `yaml:"base_width"`
	BaseHeight float64 `yaml:"base_height"`
	Speed      float64 `yaml:"speed"`
}

// Talk defines talk activation.
type Talk struct {
	Key      string  `yaml:"key"`
	Distance float64 `yaml:"distance"`
}

// Scripts names tengo files loaded into the engine's script slots.
type Scripts struct {
	Enter      string `yaml:"enter"`
	Leave      string `yaml:"leave"`
	LeaveNorth string `yaml:"leave_north"`
	LeaveEast  string `yaml:"leave_east"`
	LeaveSouth string `yaml:"leave_south"`
	LeaveWest  string `yaml:"leave_west"`
	Update     string `yaml:"update"`
	Render     string `yaml:"render"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window:    Window{Width: 320, Height: 240, Scale: 2, Title: "Map Engine"},
		FrameRate: 60,
		MapsDir:   "maps",
		Tileset: Tileset{
			TileWidth:  16,
			TileHeight: 16,
			Obstructed: []int{2, 3},
		},
		Person:   Person{BaseWidth: 12, BaseHeight: 12, Speed: 1},
		Talk:     Talk{Key: "SPACE", Distance: 8},
		LogLevel: "info",
	}
}

// Load reads the configuration.
// Search order: customPath -> ~/.mapengine/config.yaml -> ./configs/mapengine.yaml -> embedded default
func Load(customPath string) (Config, error) {
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		cfg, err := Parse(data)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return cfg, nil
	}

	if userCfgPath := userConfigPath("config.yaml"); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if cfg, err := Parse(data); err == nil {
				return cfg, nil
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join("configs", "mapengine.yaml")); err == nil {
		if cfg, err := Parse(data); err == nil {
			return cfg, nil
		}
	}

	cfg, err := Parse(defaultYAML)
	if err != nil {
		return Default(), nil
	}
	return cfg, nil
}

// Parse decodes data over the built-in defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Window.Scale <= 0:
		return fmt.Errorf("%w: window scale %v", ErrInvalid, c.Window.Scale)
	case c.Tileset.TileWidth <= 0 || c.Tileset.TileHeight <= 0:
		return fmt.Errorf("%w: tile size %dx%d", ErrInvalid, c.Tileset.TileWidth, c.Tileset.TileHeight)
	case c.FrameRate < 0:
		return fmt.Errorf("%w: frame rate %d", ErrInvalid, c.FrameRate)
	case c.Person.Speed < 0 || c.Person.BaseWidth < 0 || c.Person.BaseHeight < 0:
		return fmt.Errorf("%w: person defaults %+v", ErrInvalid, c.Person)
	}
	return nil
}

// userConfigPath returns the path to the user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mapengine", filename)
}
