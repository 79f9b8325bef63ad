// Package config provides unified configuration loading for pneumatic.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/pneumatic/internal/logging"
)

// DirName is the per-user directory holding config, saves and traces.
const DirName = ".pneumatic"

// Config contains all pneumatic configuration settings.
type Config struct {
	// Simulation controls CLI playback.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Store locates the save-slot database.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Metrics configures the Prometheus text export.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SimulationConfig configures how the CLI plays a level.
type SimulationConfig struct {
	// TicksPerFrame is the most ticks each Advance call runs.
	TicksPerFrame int `json:"ticks_per_frame" yaml:"ticks_per_frame"`

	// MaxPasses is how many full script cycles `run` plays by default.
	MaxPasses int `json:"max_passes" yaml:"max_passes"`
}

// StoreConfig locates saved level sets.
type StoreConfig struct {
	// Path is the SQLite database file. Supports ~ and ${VAR}.
	Path string `json:"path" yaml:"path"`

	// Slot is the save slot commands read and write.
	Slot string `json:"slot" yaml:"slot"`
}

// LoggingConfig configures pneumatic's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables sim-point tracing to TraceDir/trace.jsonl.
	Level string `json:"level" yaml:"level"`

	// TraceDir is where trace.jsonl is written. Defaults to ~/.pneumatic.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Textfile, when set, receives the Prometheus text exposition after a run.
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dir := defaultDir()
	return &Config{
		Simulation: SimulationConfig{
			TicksPerFrame: 100,
			MaxPasses:     2,
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "pneumatic.db"),
			Slot: "default",
		},
		Logging: LoggingConfig{
			Level:    "info",
			TraceDir: dir,
		},
	}
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns ~/.pneumatic/config.yaml.
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.pneumatic/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	path := DefaultPath()
	if _, statErr := os.Stat(path); statErr == nil {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadPath is Load with an explicit config file, which must exist. An empty
// path behaves like Load.
func LoadPath(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Path = expandPath(config.Store.Path)
	config.Logging.TraceDir = expandPath(config.Logging.TraceDir)
	config.Metrics.Textfile = expandPath(config.Metrics.Textfile)

	return config, nil
}

// Save writes the configuration as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Simulation.TicksPerFrame <= 0 {
		return fmt.Errorf("ticks_per_frame must be positive, got %d", c.Simulation.TicksPerFrame)
	}
	if c.Simulation.MaxPasses <= 0 {
		return fmt.Errorf("max_passes must be positive, got %d", c.Simulation.MaxPasses)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must be set")
	}
	if c.Store.Slot == "" || strings.ContainsAny(c.Store.Slot, " \t\n/") {
		return fmt.Errorf("invalid store.slot %q (must be non-empty, without spaces or slashes)", c.Store.Slot)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// Keys lists every dot-notation key Get and Set accept, in display order.
var Keys = []string{
	"simulation.ticks_per_frame",
	"simulation.max_passes",
	"store.path",
	"store.slot",
	"logging.level",
	"logging.trace_dir",
	"metrics.textfile",
}

// Get retrieves a configuration value by dot-notation key.
func (c *Config) Get(key string) (any, bool) {
	switch key {
	case "simulation.ticks_per_frame":
		return c.Simulation.TicksPerFrame, true
	case "simulation.max_passes":
		return c.Simulation.MaxPasses, true
	case "store.path":
		return c.Store.Path, true
	case "store.slot":
		return c.Store.Slot, true
	case "logging.level":
		return c.Logging.Level, true
	case "logging.trace_dir":
		return c.Logging.TraceDir, true
	case "metrics.textfile":
		return c.Metrics.Textfile, true
	default:
		return nil, false
	}
}

// Set sets a configuration value by dot-notation key. The result is
// validated; on error c is unchanged.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "simulation.ticks_per_frame", "simulation.max_passes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %q is not an integer", key, value)
		}
		if key == "simulation.ticks_per_frame" {
			next.Simulation.TicksPerFrame = n
		} else {
			next.Simulation.MaxPasses = n
		}
	case "store.path":
		next.Store.Path = expandPath(value)
	case "store.slot":
		next.Store.Slot = value
	case "logging.level":
		next.Logging.Level = value
	case "logging.trace_dir":
		next.Logging.TraceDir = expandPath(value)
	case "metrics.textfile":
		next.Metrics.Textfile = expandPath(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// TraceLogger opens the sim-point trace configured by c. It is nil at info
// level.
func (c *Config) TraceLogger() *logging.TraceLogger {
	return logging.NewTraceLogger(c.Logging.TraceDir, c.Logging.Level)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PNEUMATIC_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("PNEUMATIC_STORE_PATH"); v != "" {
		config.Store.Path = expandPath(v)
	}
	if v := os.Getenv("PNEUMATIC_SLOT"); v != "" {
		config.Store.Slot = v
	}
	if v := os.Getenv("PNEUMATIC_TICKS_PER_FRAME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.TicksPerFrame = n
		}
	}
	if v := os.Getenv("PNEUMATIC_METRICS_TEXTFILE"); v != "" {
		config.Metrics.Textfile = expandPath(v)
	}
}

// expandPath expands ${VAR} patterns and a leading ~/.
func expandPath(s string) string {
	if strings.Contains(s, "${") {
		s = os.Expand(s, os.Getenv)
	}
	if strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, s[2:])
		}
	}
	return s
}
