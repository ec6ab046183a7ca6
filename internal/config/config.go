package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/gridsel/internal/config/loader"
	"github.com/dshills/gridsel/internal/traversal"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "GRIDSEL_"

// Config holds every gridsel setting.
type Config struct {
	Selection SelectionConfig `toml:"selection" yaml:"selection"`
	Traversal TraversalConfig `toml:"traversal" yaml:"traversal"`
	Structure StructureConfig `toml:"structure" yaml:"structure"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Clipboard ClipboardConfig `toml:"clipboard" yaml:"clipboard"`
	Script    ScriptConfig    `toml:"script" yaml:"script"`
	Grid      GridConfig      `toml:"grid" yaml:"grid"`
	Keymap    []KeyBinding    `toml:"keymap" yaml:"keymap"`
}

// SelectionConfig configures the coordinator.
type SelectionConfig struct {
	Multiple    bool `toml:"multiple" yaml:"multiple"`
	RowOriented bool `toml:"row_oriented" yaml:"row_oriented"`
}

// TraversalConfig is the default movement strategy.
type TraversalConfig struct {
	Scope     string `toml:"scope" yaml:"scope"`
	Cyclic    bool   `toml:"cyclic" yaml:"cyclic"`
	StepCount int    `toml:"step_count" yaml:"step_count"`
}

// StructureConfig configures the structural-change adapter.
type StructureConfig struct {
	ClearOnRefresh     bool `toml:"clear_on_refresh" yaml:"clear_on_refresh"`
	PreserveByIdentity bool `toml:"preserve_by_identity" yaml:"preserve_by_identity"`
}

// LoggingConfig selects the log level and destination. An empty file
// discards log output.
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// ClipboardConfig toggles selection.copy.
type ClipboardConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// ScriptConfig points at an optional Lua target predicate.
type ScriptConfig struct {
	Predicate string `toml:"predicate" yaml:"predicate"`
}

// GridConfig describes the data shown by the terminal view. Without a file
// an empty grid of Columns x Rows is used.
type GridConfig struct {
	File      string `toml:"file" yaml:"file"`
	Sheet     string `toml:"sheet" yaml:"sheet"`
	KeyColumn string `toml:"key_column" yaml:"key_column"`
	Columns   int    `toml:"columns" yaml:"columns"`
	Rows      int    `toml:"rows" yaml:"rows"`
}

// KeyBinding maps a key name such as "shift+down" to an action.
type KeyBinding struct {
	Keys   string         `toml:"keys" yaml:"keys"`
	Action string         `toml:"action" yaml:"action"`
	Args   map[string]any `toml:"args,omitempty" yaml:"args,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Selection: SelectionConfig{Multiple: true},
		Traversal: TraversalConfig{Scope: traversal.AxisScope.String(), StepCount: 1},
		Structure: StructureConfig{ClearOnRefresh: true},
		Logging:   LoggingConfig{Level: "info"},
		Clipboard: ClipboardConfig{Enabled: true},
		Grid:      GridConfig{Columns: 26, Rows: 100},
	}
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	fs  loader.FileSystem
	env loader.Loader
}

// WithFS reads the config file from fsys.
func WithFS(fsys loader.FileSystem) LoadOption {
	return func(o *loadOptions) { o.fs = fsys }
}

// WithEnviron replaces the process environment.
func WithEnviron(env []string) LoadOption {
	return func(o *loadOptions) { o.env = loader.NewEnvLoaderFrom(EnvPrefix, env) }
}

// Load layers defaults, the file at path (skipped when empty or missing)
// and the environment, then validates the result.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{fs: loader.OSFS{}, env: loader.NewEnvLoader(EnvPrefix)}
	for _, opt := range opts {
		opt(&o)
	}

	defaults, err := Default().toMap()
	if err != nil {
		return nil, err
	}
	sources := []loader.Loader{loader.MapLoader(defaults)}
	if path != "" {
		sources = append(sources, loader.NewFileLoaderWithFS(o.fs, path))
	}
	sources = append(sources, o.env)

	merged, err := loader.Merge(sources...)
	if err != nil {
		return nil, err
	}
	cfg, err := fromMap(merged)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks setting values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := traversal.ParseScope(c.Traversal.Scope); err != nil {
		errs = append(errs, &ValidationError{Path: "traversal.scope", Value: c.Traversal.Scope, Message: "must be axis or table"})
	}
	if c.Traversal.StepCount <= 0 {
		errs = append(errs, &ValidationError{Path: "traversal.step_count", Value: c.Traversal.StepCount, Message: "must be positive"})
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, &ValidationError{Path: "logging.level", Value: c.Logging.Level, Message: "must be debug, info, warn or error"})
	}
	if c.Grid.Columns < 0 || c.Grid.Rows < 0 {
		errs = append(errs, &ValidationError{Path: "grid", Value: fmt.Sprintf("%dx%d", c.Grid.Columns, c.Grid.Rows), Message: "size must not be negative"})
	}
	for i, b := range c.Keymap {
		if b.Keys == "" || b.Action == "" {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("keymap[%d]", i), Value: b.Keys, Message: "keys and action are required"})
		}
	}
	return errors.Join(errs...)
}

// Strategy builds the default traversal strategy.
func (c *Config) Strategy() (traversal.Strategy, error) {
	scope, err := traversal.ParseScope(c.Traversal.Scope)
	if err != nil {
		return traversal.Strategy{}, err
	}
	return traversal.New(scope, c.Traversal.Cyclic, c.Traversal.StepCount, nil)
}

// WriteTOML encodes the settings as TOML.
func (c *Config) WriteTOML(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// WriteFile saves the settings, choosing TOML or YAML by extension.
func (c *Config) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(c)
	}
	return c.WriteTOML(f)
}

// toMap converts the settings to the generic form the loaders merge.
func (c *Config) toMap() (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
