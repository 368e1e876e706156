// Package config loads optimizer settings from a toml file and the
// environment.
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
	"tlog.app/go/errors"

	"lazyjit/internal/analysis"
	ierrors "lazyjit/internal/errors"
)

// Environment variables that override file settings
const (
	EnvVerbosity  = "LAZYJIT_VERBOSITY"
	EnvVerify     = "LAZYJIT_VERIFY"
	EnvWorklist   = "LAZYJIT_WORKLIST"
	EnvReflection = "LAZYJIT_REFLECTION"
)

type Config struct {
	Analysis  Analysis  `toml:"analysis"`
	Optimizer Optimizer `toml:"optimizer"`
	Log       Log       `toml:"log"`
}

type Analysis struct {
	// Worklist is "fifo" or "lifo"
	Worklist string `toml:"worklist"`
	// MaxVisits bounds how often one block may be processed
	MaxVisits int `toml:"max_visits"`
	// Reflection makes the dataflow analysis assume calls may write any
	// variable of the caller
	Reflection bool `toml:"reflection"`
}

type Optimizer struct {
	Passes []string `toml:"passes"`
	// Verify checks the graph after every structural edit
	Verify bool `toml:"verify"`
	// MaxInputSize skips functions with more instructions; 0 disables it
	MaxInputSize int `toml:"max_input_size"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// DefaultPasses is the pipeline run when no pass list is configured
var DefaultPasses = []string{"cleanup", "constprop", "force-elision", "assumptions", "cleanup"}

func Default() Config {
	return Config{
		Analysis: Analysis{
			Worklist:   analysis.FIFO.String(),
			MaxVisits:  analysis.DefaultMaxVisits,
			Reflection: true,
		},
		Optimizer: Optimizer{
			Passes:       append([]string(nil), DefaultPasses...),
			MaxInputSize: 12000,
		},
		Log: Log{Verbosity: 0},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path loads the defaults only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "%s: read config", ierrors.ErrorBadConfig)
		}
		if err := cfg.decode(path, string(data)); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a configuration from toml text over the defaults
func Parse(data string) (Config, error) {
	cfg := Default()
	if err := cfg.decode("<config>", data); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode applies toml text to c and rejects keys no field takes
func (c *Config) decode(source, data string) error {
	meta, err := toml.Decode(data, c)
	if err != nil {
		return errors.Wrap(err, "%s: decode %s", ierrors.ErrorBadConfig, source)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errors.New("%s: %s: unknown key %s", ierrors.ErrorBadConfig, source, undecoded[0])
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Log.Verbosity = env.Int(EnvVerbosity, c.Log.Verbosity)
	c.Analysis.Worklist = env.Str(EnvWorklist, c.Analysis.Worklist)
	if env.Has(EnvVerify) {
		c.Optimizer.Verify = env.Bool(EnvVerify)
	}
	if env.Has(EnvReflection) {
		c.Analysis.Reflection = env.Bool(EnvReflection)
	}
}

// Validate reports the first setting that cannot be used
func (c Config) Validate() error {
	switch strings.ToLower(c.Analysis.Worklist) {
	case "fifo", "lifo":
	default:
		return errors.New("%s: unknown worklist order %q", ierrors.ErrorBadConfig, c.Analysis.Worklist)
	}
	if c.Analysis.MaxVisits <= 0 {
		return errors.New("%s: max_visits must be positive, got %d", ierrors.ErrorBadConfig, c.Analysis.MaxVisits)
	}
	if c.Optimizer.MaxInputSize < 0 {
		return errors.New("%s: max_input_size must not be negative", ierrors.ErrorBadConfig)
	}
	return nil
}

// Order returns the configured worklist discipline
func (a Analysis) Order() analysis.Order {
	if strings.EqualFold(a.Worklist, "lifo") {
		return analysis.LIFO
	}
	return analysis.FIFO
}

// Mode returns the dataflow mode matching the reflection setting
func (a Analysis) Mode() analysis.Mode {
	if a.Reflection {
		return analysis.Conservative
	}
	return analysis.NoReflection
}

// EngineOptions turns the settings into options for analysis.Run
func (a Analysis) EngineOptions() []analysis.Option {
	return []analysis.Option{analysis.WithOrder(a.Order()), analysis.WithMaxVisits(a.MaxVisits)}
}
