// Package config loads gridpath scenario configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pdrpinto/gridpath"
	"github.com/pdrpinto/gridpath/internal/terrain"
)

// Config is the top-level scenario configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	// World describes the mapped area and cell size.
	World WorldConfig `yaml:"world"`

	// Obstacles are footprints checked against each cell's clearance disc.
	Obstacles terrain.Obstacles `yaml:"obstacles"`

	// Layout is an optional ASCII map ('.' free, '#' blocked), one character
	// per cell, first row at the far (+Z) edge. Its size must match the grid.
	Layout []string `yaml:"layout"`

	Serializer SerializerConfig `yaml:"serializer"`
	Agents     []AgentConfig    `yaml:"agents"`
	Log        LogConfig        `yaml:"log"`
	Diag       DiagConfig       `yaml:"diag"`
}

// WorldConfig describes the grid's extent.
type WorldConfig struct {
	Origin     r3.Vec  `yaml:"origin"`
	Size       r2.Vec  `yaml:"size"`
	CellRadius float64 `yaml:"cell_radius"`
}

// SerializerConfig tunes the request serializer's worker.
type SerializerConfig struct {
	// StepsPerTick is the number of cell evaluations per frame; 0 runs each
	// search to completion in one frame.
	StepsPerTick int `yaml:"steps_per_tick"`
}

// AgentConfig is one simulated agent.
type AgentConfig struct {
	Name   string  `yaml:"name"`
	Start  r3.Vec  `yaml:"start"`
	Target r3.Vec  `yaml:"target"`
	Speed  float64 `yaml:"speed"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DiagConfig configures the diagnostics HTTP server.
type DiagConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns a 20x20 open world with unit cells.
func Default() Config {
	return Config{
		World: WorldConfig{
			Size:       r2.Vec{X: 20, Y: 20},
			CellRadius: 0.5,
		},
		Serializer: SerializerConfig{StepsPerTick: 64},
		Log:        LogConfig{Level: "info", Format: "text"},
		Diag:       DiagConfig{Listen: "127.0.0.1:8080"},
	}
}

// Load loads configuration with priority: env > file > defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	envErr := loadFromEnv(&cfg)

	if err := errors.Join(envErr, cfg.Validate()); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadFromEnv applies GRIDPATH_* overrides. Values that do not parse leave
// the field unchanged and are reported.
func loadFromEnv(cfg *Config) error {
	var errs []error
	if v := os.Getenv("GRIDPATH_CELL_RADIUS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("GRIDPATH_CELL_RADIUS: %w", err))
		} else {
			cfg.World.CellRadius = f
		}
	}
	if v := os.Getenv("GRIDPATH_STEPS_PER_TICK"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GRIDPATH_STEPS_PER_TICK: %w", err))
		} else {
			cfg.Serializer.StepsPerTick = i
		}
	}
	if v := os.Getenv("GRIDPATH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GRIDPATH_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("GRIDPATH_DIAG_LISTEN"); v != "" {
		cfg.Diag.Listen = v
	}
	return errors.Join(errs...)
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	var errs []error
	if !(c.World.CellRadius > 0) {
		errs = append(errs, fmt.Errorf("world.cell_radius must be positive, got %v", c.World.CellRadius))
	}
	if !(c.World.Size.X > 0) || !(c.World.Size.Y > 0) {
		errs = append(errs, fmt.Errorf("world.size must be positive, got %vx%v", c.World.Size.X, c.World.Size.Y))
	}
	if err := c.Obstacles.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("obstacles: %w", err))
	}
	if c.Serializer.StepsPerTick < 0 {
		errs = append(errs, fmt.Errorf("serializer.steps_per_tick must be >= 0, got %d", c.Serializer.StepsPerTick))
	}
	for i, a := range c.Agents {
		if !(a.Speed > 0) {
			errs = append(errs, fmt.Errorf("agents[%d] %q: speed must be positive", i, a.Name))
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Traversable assembles the traversability predicate from obstacles and layout.
func (c Config) Traversable() (gridpath.TraversableFunc, error) {
	layout, err := c.parseLayout()
	if err != nil {
		return nil, err
	}
	return c.traversable(layout), nil
}

// parseLayout returns nil when no layout is configured.
func (c Config) parseLayout() (*terrain.Layout, error) {
	if len(c.Layout) == 0 {
		return nil, nil
	}
	return terrain.ParseLayout(c.Layout)
}

func (c Config) traversable(layout *terrain.Layout) gridpath.TraversableFunc {
	predicates := []terrain.Predicate{c.Obstacles.Traversable(c.World.CellRadius)}
	if layout != nil {
		predicates = append(predicates, layout.Traversable(c.World.Origin, 2*c.World.CellRadius))
	}
	return gridpath.TraversableFunc(terrain.All(predicates...))
}

// BuildGrid constructs the grid described by the configuration.
func (c Config) BuildGrid() (*gridpath.Grid, error) {
	layout, err := c.parseLayout()
	if err != nil {
		return nil, err
	}
	grid, err := gridpath.NewGrid(c.World.Origin, c.World.Size, c.World.CellRadius, c.traversable(layout))
	if err != nil {
		return nil, err
	}
	if layout != nil && (layout.Width != grid.Width() || layout.Height != grid.Height()) {
		return nil, fmt.Errorf("layout is %dx%d but grid is %dx%d",
			layout.Width, layout.Height, grid.Width(), grid.Height())
	}
	return grid, nil
}

// Logger builds the slog logger described by the log section.
func (c Config) Logger() *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
