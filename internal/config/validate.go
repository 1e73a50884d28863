package config

import (
	"fmt"
	"strings"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// validLogLevels contains all supported log levels
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks option values that cannot be expressed as defaults
func (c *Config) Validate() error {
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("unsupported log level '%s': supported levels are debug, info, warn, error", c.LogLevel)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unsupported log format '%s': supported formats are text, json", c.LogFormat)
	}

	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}

	return nil
}
