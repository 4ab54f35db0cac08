// Package config loads the batch-round configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/graphoracle/internal/topology"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "graphoracle.yaml"

// Environment overrides, applied after the file is read.
const (
	EnvSeed     = "GRAPHORACLE_SEED"
	EnvWorkers  = "GRAPHORACLE_WORKERS"
	EnvLogLevel = "GRAPHORACLE_LOG_LEVEL"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds the settings of a batch run.
type Config struct {
	Seed      int64  `yaml:"seed"`
	Workers   int    `yaml:"workers"`
	CacheSize int    `yaml:"cache_size"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Grid      Grid   `yaml:"grid"`
}

// Grid is the cross product of generation settings to run. Every
// combination of Modes, Nodes, AvgLengths and Changes is one round.
type Grid struct {
	Modes         []string `yaml:"modes"`
	Nodes         []int    `yaml:"nodes"`
	AvgLengths    []int    `yaml:"avg_lengths"`
	Changes       []int    `yaml:"changes"`
	Branches      int      `yaml:"branches"`
	Loops         int      `yaml:"loops"`
	Connectivity  float64  `yaml:"connectivity"`
	SemanticNames bool     `yaml:"semantic_names"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Seed:      1,
		Workers:   4,
		CacheSize: 256,
		LogLevel:  "info",
		LogFormat: "console",
		Grid: Grid{
			Modes:        []string{string(topology.Chain), string(topology.Branch), string(topology.Random)},
			Nodes:        []int{5, 10},
			AvgLengths:   []int{5, 20},
			Changes:      []int{0, 2},
			Branches:     1,
			Loops:        1,
			Connectivity: 0.5,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error when path is the
// default location.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvSeed, v, ErrInvalid)
		}
		c.Seed = seed
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvWorkers, v, ErrInvalid)
		}
		c.Workers = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks ranges and mode names.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers=%d: %w", c.Workers, ErrInvalid)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size=%d: %w", c.CacheSize, ErrInvalid)
	}
	g := c.Grid
	if len(g.Modes) == 0 || len(g.Nodes) == 0 || len(g.AvgLengths) == 0 || len(g.Changes) == 0 {
		return fmt.Errorf("grid: every axis needs at least one value: %w", ErrInvalid)
	}
	for _, m := range g.Modes {
		if _, err := topology.ParseMode(m); err != nil {
			return fmt.Errorf("grid: %v: %w", err, ErrInvalid)
		}
	}
	for _, n := range g.Nodes {
		if n < 1 {
			return fmt.Errorf("grid: nodes=%d: %w", n, ErrInvalid)
		}
	}
	for _, l := range g.AvgLengths {
		if l < 0 {
			return fmt.Errorf("grid: avg_length=%d: %w", l, ErrInvalid)
		}
	}
	for _, k := range g.Changes {
		if k < 0 {
			return fmt.Errorf("grid: changes=%d: %w", k, ErrInvalid)
		}
	}
	if g.Branches < 0 || g.Loops < 0 {
		return fmt.Errorf("grid: branches=%d loops=%d: %w", g.Branches, g.Loops, ErrInvalid)
	}
	if g.Connectivity < 0 || g.Connectivity > 1 {
		return fmt.Errorf("grid: connectivity=%g: %w", g.Connectivity, ErrInvalid)
	}
	return nil
}

// Starter returns the YAML written by `graphoracle init`.
func Starter() ([]byte, error) {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	header := "# graphoracle batch rounds. Every combination of the grid axes is one round.\n" +
		"# Environment overrides: " + EnvSeed + ", " + EnvWorkers + ", " + EnvLogLevel + ".\n"
	return append([]byte(header), data...), nil
}
