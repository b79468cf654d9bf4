// Package config holds jsonedit's settings: defaults, a TOML file and
// JSONEDIT_* environment overrides, applied in that order.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/dshills/jsonedit/internal/logging"
)

// Color modes for terminal output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// maxIndent matches the widest indent JSON.stringify accepts.
const maxIndent = 10

// Config is the complete jsonedit configuration.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Output OutputConfig `toml:"output"`
	Sync   SyncConfig   `toml:"sync"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// OutputConfig configures how documents are written and shown.
type OutputConfig struct {
	// Indent is the number of spaces per nesting level.
	Indent int `toml:"indent"`
	// FileMode is the octal permission for newly created files.
	FileMode string `toml:"fileMode"`
	// Color is one of auto, always or never.
	Color string `toml:"color"`
}

// SyncConfig configures external change detection.
type SyncConfig struct {
	Interval string `toml:"interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "warn",
			Format: string(logging.FormatConsole),
		},
		Output: OutputConfig{
			Indent:   2,
			FileMode: "0644",
			Color:    ColorAuto,
		},
		Sync: SyncConfig{
			Interval: "2s",
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "jsonedit", "config.toml")
}

// Validate checks every setting.
func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case string(logging.FormatConsole), string(logging.FormatJSON):
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if c.Output.Indent < 0 || c.Output.Indent > maxIndent {
		return fmt.Errorf("output.indent: %d out of range 0-%d", c.Output.Indent, maxIndent)
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("output.color: unknown mode %q", c.Output.Color)
	}
	if _, err := c.SyncInterval(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c Config) Level() zapcore.Level {
	return logging.ParseLogLevel(c.Log.Level)
}

// LogFormat returns the configured log format.
func (c Config) LogFormat() logging.Format {
	return logging.Format(strings.ToLower(c.Log.Format))
}

// IndentString returns the indent unit used when writing documents.
func (c Config) IndentString() string {
	return strings.Repeat(" ", c.Output.Indent)
}

// Mode parses output.fileMode.
func (c Config) Mode() (fs.FileMode, error) {
	m, err := strconv.ParseUint(c.Output.FileMode, 8, 32)
	if err != nil || m > 0o777 {
		return 0, fmt.Errorf("output.fileMode: invalid mode %q", c.Output.FileMode)
	}
	return fs.FileMode(m), nil
}

// SyncInterval parses sync.interval.
func (c Config) SyncInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sync.Interval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("sync.interval: invalid duration %q", c.Sync.Interval)
	}
	return d, nil
}
