package config

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/jsonedit/internal/logging"
	"github.com/dshills/jsonedit/internal/project/vfs"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.IndentString() != "  " {
		t.Errorf("IndentString = %q, want two spaces", cfg.IndentString())
	}
	if mode, _ := cfg.Mode(); mode != 0644 {
		t.Errorf("Mode = %o, want 644", mode)
	}
	if d, _ := cfg.SyncInterval(); d != 2*time.Second {
		t.Errorf("SyncInterval = %v, want 2s", d)
	}
	if cfg.Level() != zapcore.WarnLevel {
		t.Errorf("Level = %v, want warn", cfg.Level())
	}
	if cfg.LogFormat() != logging.FormatConsole {
		t.Errorf("LogFormat = %v", cfg.LogFormat())
	}
}

func TestLoad(t *testing.T) {
	memfs := vfs.NewMemFS()
	_ = memfs.AddFile("/config.toml", `
[log]
level = "debug"

[output]
indent = 4
color = "never"
`)

	cfg, err := Load(memfs, "/config.toml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Default()
	want.Log.Level = "debug"
	want.Output.Indent = 4
	want.Output.Color = ColorNever
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(vfs.NewMemFS(), "/nope.toml")
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}

	cfg, err = Load(vfs.NewMemFS(), "")
	if err != nil || cfg != Default() {
		t.Errorf("empty path: cfg=%+v err=%v", cfg, err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		message string
	}{
		{"syntax", "[log\nlevel = 1", 0, ""},
		{"unknown key", "[output]\nwidth = 80\n", 0, "width"},
		{"bad color", "[output]\ncolor = \"rainbow\"\n", 0, "output.color"},
		{"bad indent", "[output]\nindent = 12\n", 0, "output.indent"},
		{"bad mode", "[output]\nfileMode = \"rw\"\n", 0, "output.fileMode"},
		{"bad interval", "[sync]\ninterval = \"soon\"\n", 0, "sync.interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memfs := vfs.NewMemFS()
			_ = memfs.AddFile("/config.toml", tt.content)

			cfg, err := Load(memfs, "/config.toml")
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if pe.Path != "/config.toml" {
				t.Errorf("Path = %q", pe.Path)
			}
			if tt.line > 0 && pe.Line != tt.line {
				t.Errorf("Line = %d, want %d", pe.Line, tt.line)
			}
			if tt.message != "" && !strings.Contains(pe.Message, tt.message) {
				t.Errorf("Message = %q, want it to contain %q", pe.Message, tt.message)
			}
			if cfg != Default() {
				t.Error("failed load should return defaults")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"JSONEDIT_LOG_LEVEL":     "error",
		"JSONEDIT_INDENT":        "0",
		"JSONEDIT_FILE_MODE":     "600",
		"JSONEDIT_COLOR":         "ALWAYS",
		"JSONEDIT_SYNC_INTERVAL": "250ms",
		"JSONEDIT_UNKNOWN":       "ignored",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Level() != zapcore.ErrorLevel {
		t.Errorf("Level = %v", cfg.Level())
	}
	if cfg.IndentString() != "" {
		t.Errorf("IndentString = %q", cfg.IndentString())
	}
	if mode, _ := cfg.Mode(); mode != fs.FileMode(0600) {
		t.Errorf("Mode = %o", mode)
	}
	if cfg.Output.Color != ColorAlways {
		t.Errorf("Color = %q", cfg.Output.Color)
	}
	if d, _ := cfg.SyncInterval(); d != 250*time.Millisecond {
		t.Errorf("SyncInterval = %v", d)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"indent not a number", "JSONEDIT_INDENT", "two"},
		{"unknown color", "JSONEDIT_COLOR", "sometimes"},
		{"unknown format", "JSONEDIT_LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(func(k string) (string, bool) {
				if k == tt.key {
					return tt.val, true
				}
				return "", false
			})
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}
