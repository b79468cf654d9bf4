package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "JSONEDIT_"

// envMapping maps environment variables to the setting they override.
var envMapping = map[string]func(c *Config, v string) error{
	"JSONEDIT_LOG_LEVEL": func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	},
	"JSONEDIT_LOG_FORMAT": func(c *Config, v string) error {
		c.Log.Format = v
		return nil
	},
	"JSONEDIT_INDENT": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JSONEDIT_INDENT: %w", err)
		}
		c.Output.Indent = n
		return nil
	},
	"JSONEDIT_FILE_MODE": func(c *Config, v string) error {
		c.Output.FileMode = v
		return nil
	},
	"JSONEDIT_COLOR": func(c *Config, v string) error {
		c.Output.Color = strings.ToLower(v)
		return nil
	},
	"JSONEDIT_SYNC_INTERVAL": func(c *Config, v string) error {
		c.Sync.Interval = v
		return nil
	},
}

// ApplyEnv overrides settings from environment variables found by lookup.
// Unknown JSONEDIT_* variables are ignored. The result is validated.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for name, apply := range envMapping {
		val, ok := lookup(name)
		if !ok {
			continue
		}
		if err := apply(c, val); err != nil {
			return err
		}
	}
	return c.Validate()
}
