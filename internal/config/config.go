// Package config loads run files. JSON run files are valid YAML and load
// unchanged.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/talgya/spinmc/internal/engine"
	"github.com/talgya/spinmc/internal/entropy"
	"github.com/talgya/spinmc/internal/lattice"
)

// Defaults.
const (
	DefaultMCS = 5000
	MinMCS     = 10
	DefaultKB  = 1.0
)

var validate = validator.New()

// Files is a list of paths; a single string is accepted as a one-item list.
type Files []string

// UnmarshalYAML accepts a string or a sequence of strings.
func (f *Files) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*f = Files{s}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*f = list
	return nil
}

// Config is one simulation run.
type Config struct {
	Sample       string                 `yaml:"sample" validate:"required"`
	MCS          int                    `yaml:"mcs" validate:"gte=10"`
	KB           float64                `yaml:"kb" validate:"gt=0"`
	Out          string                 `yaml:"out"`
	Seed         *int64                 `yaml:"seed" validate:"omitempty,gte=0"`
	Temperature  Schedule               `yaml:"temperature"`
	Field        Schedule               `yaml:"field"`
	InitialState string                 `yaml:"initialstate"`
	Anisotropy   Files                  `yaml:"anisotropy" validate:"dive,required"`
	Texture      *lattice.TextureConfig `yaml:"texture"`

	// Older run files spell the constant "Kb".
	LegacyKB *float64 `yaml:"Kb"`
}

// Default returns a config with every optional key at its default.
func Default() Config {
	return Config{
		MCS:         DefaultMCS,
		KB:          DefaultKB,
		Temperature: Scalar(0),
		Field:       Scalar(0),
	}
}

// Load reads and validates a run file. Relative paths inside the file are
// resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes a run file, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if cfg.LegacyKB != nil {
		cfg.KB = *cfg.LegacyKB
		cfg.LegacyKB = nil
	}
	if cfg.Out == "" && cfg.Sample != "" {
		cfg.Out = cfg.Sample + ".db"
	}
	if cfg.Seed == nil {
		seed := entropy.Seed()
		cfg.Seed = &seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that the schedule expands.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, _, err := Pair(c.Temperature, c.Field); err != nil {
		return err
	}
	return nil
}

func (c *Config) resolve(dir string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Sample = join(c.Sample)
	c.Out = join(c.Out)
	c.InitialState = join(c.InitialState)
	for i, a := range c.Anisotropy {
		c.Anisotropy[i] = join(a)
	}
}

// EngineOptions expands the schedule into engine options.
func (c *Config) EngineOptions() (engine.Options, error) {
	temps, fields, err := Pair(c.Temperature, c.Field)
	if err != nil {
		return engine.Options{}, err
	}
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
	}
	return engine.Options{
		Temperatures: temps,
		Fields:       fields,
		MCS:          c.MCS,
		Seed:         seed,
		KB:           c.KB,
	}, nil
}
