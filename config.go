package sheetcrud

import (
	"time"

	"github.com/charmbracelet/log"
)

// Config represents configuration for the retrying store
type Config struct {
	MaxRetries    int           // Maximum number of retries for adapter calls (default: 3)
	RetryInterval time.Duration // Upper bound of the exponential backoff between retries (default: 2s)
	Logger        *log.Logger   // Logger for retry diagnostics (default: log.Default())
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
}

func (c *Config) withDefaults() Config {
	cfg := *DefaultConfig()
	if c == nil {
		cfg.Logger = log.Default()
		return cfg
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	if c.RetryInterval > 0 {
		cfg.RetryInterval = c.RetryInterval
	}
	cfg.Logger = c.Logger
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return cfg
}
