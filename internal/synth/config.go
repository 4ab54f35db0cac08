package synth

import (
	"errors"
	"fmt"

	"github.com/phobologic/graphoracle/internal/topology"
)

// ErrInvalidConfig indicates a negative size parameter. Node count,
// connectivity and mode problems surface as topology sentinels.
var ErrInvalidConfig = errors.New("synth: invalid config")

// Config holds the generation parameters.
type Config struct {
	Nodes        int           `yaml:"nodes"`
	AvgLength    int           `yaml:"avg_length"`
	Branches     int           `yaml:"branches"`
	Loops        int           `yaml:"loops"`
	Connectivity float64       `yaml:"connectivity"`
	Mode         topology.Mode `yaml:"mode"`

	// SemanticNames names nodes after their position in the graph
	// (function_start, class_from_2, ...) instead of Function_i / Class_i.
	SemanticNames bool `yaml:"semantic_names"`

	// Seed fully determines the generated program.
	Seed int64 `yaml:"seed"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Nodes:        5,
		AvgLength:    5,
		Branches:     1,
		Loops:        1,
		Connectivity: 0.5,
		Mode:         topology.Random,
	}
}

func (c Config) validate() error {
	switch {
	case c.AvgLength < 0:
		return fmt.Errorf("avg_length=%d: %w", c.AvgLength, ErrInvalidConfig)
	case c.Branches < 0:
		return fmt.Errorf("branches=%d: %w", c.Branches, ErrInvalidConfig)
	case c.Loops < 0:
		return fmt.Errorf("loops=%d: %w", c.Loops, ErrInvalidConfig)
	}
	return nil
}
