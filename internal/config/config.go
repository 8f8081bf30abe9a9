package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/sortviz/internal/loader"
)

const (
	DefaultPreset   = "Bubble Sort"
	DefaultFPS      = 60
	DefaultWidth    = 512
	DefaultHeight   = 512
	DefaultLogLevel = "info"

	envPrefix = "SORTVIZ_"
)

type Config struct {
	Preset        string        `yaml:"preset"`
	Size          int           `yaml:"size,omitempty"`
	Skip          int           `yaml:"skip,omitempty"`
	Seed          int64         `yaml:"seed,omitempty"`
	FPS           int           `yaml:"fps"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	SecurityLevel string        `yaml:"security_level"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	PresetsFile   string        `yaml:"presets_file,omitempty"`
	LogLevel      string        `yaml:"log_level"`
	Theme         string        `yaml:"theme,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Preset:        DefaultPreset,
		FPS:           DefaultFPS,
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		SecurityLevel: loader.SecurityLevelStandard,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads a yaml file over the defaults. An empty path yields the defaults. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides fields from SORTVIZ_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("PRESET", &c.Preset)
	str("SECURITY_LEVEL", &c.SecurityLevel)
	str("PRESETS_FILE", &c.PresetsFile)
	str("LOG_LEVEL", &c.LogLevel)
	str("THEME", &c.Theme)
	for name, dst := range map[string]*int{
		"SIZE":   &c.Size,
		"SKIP":   &c.Skip,
		"FPS":    &c.FPS,
		"WIDTH":  &c.Width,
		"HEIGHT": &c.Height,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	if v, ok := lookup(envPrefix + "SEED"); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", envPrefix, err)
		}
		c.Seed = seed
	}
	if v, ok := lookup(envPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Size < 0 {
		return fmt.Errorf("size must not be negative, got %d", c.Size)
	}
	if c.Skip < 0 {
		return fmt.Errorf("skip must not be negative, got %d", c.Skip)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	switch c.SecurityLevel {
	case loader.SecurityLevelStrict, loader.SecurityLevelStandard, loader.SecurityLevelPermissive:
	default:
		return fmt.Errorf("invalid security level: %s", c.SecurityLevel)
	}
	return nil
}

// Loader returns the script settings carried by the config.
func (c *Config) Loader() loader.Config {
	return loader.Config{SecurityLevel: c.SecurityLevel, Timeout: c.Timeout}
}

// Resolve returns p with the size and skip overrides of the config applied.
func (c *Config) Resolve(p Preset) Preset {
	if c.Size > 0 {
		p.Size = c.Size
	}
	if c.Skip > 0 {
		p.Skip = c.Skip
	}
	return p
}
