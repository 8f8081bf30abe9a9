package loader

import (
	"fmt"
	"time"
)

const (
	SecurityLevelStrict     = "strict"
	SecurityLevelStandard   = "standard"
	SecurityLevelPermissive = "permissive"
)

// Config controls how algorithm scripts are compiled and executed.
type Config struct {
	// SecurityLevel selects the sandbox restrictions (strict, standard, permissive).
	SecurityLevel string `yaml:"security_level" json:"security_level,omitempty"`

	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" json:"timeout,omitempty"`

	// CacheSize is the number of compiled programs kept around.
	CacheSize int `yaml:"cache_size" json:"cache_size,omitempty"`

	// MaxCallStackSize bounds script recursion depth.
	MaxCallStackSize int `yaml:"max_call_stack_size" json:"max_call_stack_size,omitempty"`
}

func DefaultConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.SecurityLevel == "" {
		c.SecurityLevel = SecurityLevelStandard
	}
	if c.CacheSize == 0 {
		c.CacheSize = 64
	}
	if c.MaxCallStackSize == 0 {
		c.MaxCallStackSize = 8192
	}
}

func (c *Config) Validate() error {
	switch c.SecurityLevel {
	case SecurityLevelStrict, SecurityLevelStandard, SecurityLevelPermissive:
	default:
		return NewConfigError(fmt.Sprintf("invalid security level: %s", c.SecurityLevel))
	}
	if c.Timeout < 0 {
		return NewConfigError("timeout must not be negative")
	}
	if c.CacheSize <= 0 {
		return NewConfigError("cache_size must be positive")
	}
	if c.MaxCallStackSize <= 0 {
		return NewConfigError("max_call_stack_size must be positive")
	}
	return nil
}
