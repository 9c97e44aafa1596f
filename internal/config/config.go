// Package config loads analysis settings from disassemble.yaml and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"disassemble/internal/backend"
	"disassemble/internal/output"
	"disassemble/pkg/cfg"
)

// FileName is the project-level config file looked up by Load.
const FileName = "disassemble.yaml"

var ErrInvalid = errors.New("config: invalid value")

// Config holds all settings for an analysis run.
type Config struct {
	// Arch overrides the architecture detected from the ELF header. Raw
	// inputs require it.
	Arch string `yaml:"arch" env:"DISASM_ARCH"`

	// CallExit is the exit policy of the CFG builder: none or sentinel.
	CallExit string `yaml:"call_exit" env:"DISASM_CALL_EXIT"`

	// Workers bounds concurrent function analysis; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers" env:"DISASM_WORKERS"`

	// MaxInsts bounds instructions decoded per function; 0 is unlimited.
	MaxInsts int `yaml:"max_insts" env:"DISASM_MAX_INSTS"`

	Output OutputConfig `yaml:"output"`
	Render RenderConfig `yaml:"render"`

	Verbose bool `yaml:"verbose" env:"DISASM_VERBOSE"`
}

type OutputConfig struct {
	Format output.Format `yaml:"format" env:"DISASM_OUTPUT_FORMAT"`
	// Dir receives one file per command; empty writes to stdout.
	Dir string `yaml:"dir" env:"DISASM_OUTPUT_DIR"`
}

type RenderConfig struct {
	// DOT additionally writes Graphviz files next to the output.
	DOT bool `yaml:"dot" env:"DISASM_RENDER_DOT"`
}

// DefaultConfig returns a Config with defaults.
func DefaultConfig() *Config {
	return &Config{
		CallExit: cfg.CallExitNone.String(),
		Output: OutputConfig{
			Format: output.FormatText,
		},
	}
}

// Load reads ./disassemble.yaml when present, then applies environment
// overrides.
func Load() (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(FileName)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrap(err, "parse %s", FileName)
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrap(err, "read %s", FileName)
	}
	return finish(c)
}

// LoadFromFile reads configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parse config %s", path)
	}
	return finish(c)
}

func finish(c *Config) (*Config, error) {
	if err := applyEnvOverrides(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config %s", path)
	}
	return nil
}

// applyEnvOverrides sets every field carrying an env tag from its variable
// when the variable is non-empty.
func applyEnvOverrides(c *Config) error {
	return applyEnv(reflect.ValueOf(c).Elem())
}

func applyEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f, sf := v.Field(i), t.Field(i)
		if f.Kind() == reflect.Struct {
			if err := applyEnv(f); err != nil {
				return err
			}
			continue
		}

		key := sf.Tag.Get("env")
		if key == "" {
			continue
		}
		val := os.Getenv(key)
		if val == "" {
			continue
		}

		switch f.Kind() {
		case reflect.String:
			f.SetString(val)
		case reflect.Int:
			n, err := strconv.Atoi(val)
			if err != nil {
				return errors.Wrap(ErrInvalid, "%s=%q", key, val)
			}
			f.SetInt(int64(n))
		case reflect.Bool:
			f.SetBool(val == "true" || val == "1" || val == "yes")
		default:
			return errors.New("config: %s: unsupported field kind %v", key, f.Kind())
		}
	}
	return nil
}

// Validate rejects unknown enum values and negative limits.
func (c *Config) Validate() error {
	if c.Arch != "" {
		if _, err := backend.ParseArch(c.Arch); err != nil {
			return errors.Wrap(ErrInvalid, "arch: %v", err)
		}
	}
	if _, err := cfg.ParseCallExitPolicy(c.CallExit); err != nil {
		return errors.Wrap(ErrInvalid, "call_exit: %v", err)
	}
	if _, err := output.ParseFormat(string(c.Output.Format)); err != nil {
		return errors.Wrap(ErrInvalid, "output.format: %v", err)
	}
	if c.Workers < 0 {
		return errors.Wrap(ErrInvalid, "workers %d", c.Workers)
	}
	if c.MaxInsts < 0 {
		return errors.Wrap(ErrInvalid, "max_insts %d", c.MaxInsts)
	}
	return nil
}

// CFGOptions returns the builder options selected by the config.
func (c *Config) CFGOptions() []cfg.Option {
	p, err := cfg.ParseCallExitPolicy(c.CallExit)
	if err != nil {
		return nil
	}
	return []cfg.Option{cfg.WithCallExit(p)}
}

// Architecture returns the configured architecture, if any.
func (c *Config) Architecture() (backend.Arch, bool) {
	a, err := backend.ParseArch(c.Arch)
	return a, err == nil
}
